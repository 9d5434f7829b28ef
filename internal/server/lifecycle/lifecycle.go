// Package lifecycle holds the pure state machines that decide which status
// changes are legal for candidate documents and for candidates. Nothing here
// touches storage; callers apply the result with a conditional update.
package lifecycle

// Actor is who requests a transition.
type Actor int

const (
	ActorCandidate Actor = iota + 1
	ActorStaff
)

func (a Actor) String() string {
	switch a {
	case ActorCandidate:
		return "candidate"
	case ActorStaff:
		return "staff"
	default:
		return "unknown"
	}
}
