package health

import "context"

// Pinger is implemented by dependencies that can be probed with a cheap
// round-trip, such as the snapshot store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker adapts a [Pinger] into a named [Checker].
func PingChecker(name string, p Pinger) Checker {
	return Checker{
		Name:  name,
		Check: p.Ping,
	}
}
