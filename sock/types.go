package sock

import "fmt"

// Type is a socket type. The values match the ZMQ_* socket type numbers.
type Type int

// Socket types.
const (
	Pair Type = iota
	Pub
	Sub
	Req
	Rep
	Dealer
	Router
	Pull
	Push
	XPub
	XSub
	Stream
)

var typeNames = [...]string{
	"PAIR", "PUB", "SUB", "REQ", "REP",
	"DEALER", "ROUTER", "PULL", "PUSH",
	"XPUB", "XSUB", "STREAM",
}

// String returns the socket type as its printable constant name.
func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeNames[t]
}

// Valid reports whether t is one of the known socket types.
func (t Type) Valid() bool {
	return t >= 0 && int(t) < len(typeNames)
}

// Serverish reports whether endpoints without a sigil are bound (true) or
// connected (false) by the typed constructors.
func (t Type) Serverish() bool {
	switch t {
	case Pub, Rep, Router, Pull, XPub:
		return true
	default:
		return false
	}
}

// ParseType returns the Type for a name such as "PUSH". Matching is exact.
func ParseType(name string) (Type, error) {
	for i, n := range typeNames {
		if n == name {
			return Type(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownType, name)
}
