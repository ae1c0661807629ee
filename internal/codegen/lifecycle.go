package codegen

import "fmt"

// Lifecycle is one of the three phases every surface compiles into.
type Lifecycle int

const (
	Construct Lifecycle = iota
	Update
	Destruct
)

// Lifecycles lists every lifecycle in emission order.
var Lifecycles = []Lifecycle{Construct, Update, Destruct}

func (l Lifecycle) String() string {
	switch l {
	case Construct:
		return "construct"
	case Update:
		return "update"
	case Destruct:
		return "destruct"
	default:
		return "unknown"
	}
}

// ParseLifecycle parses the lowercase lifecycle name.
func ParseLifecycle(s string) (Lifecycle, bool) {
	for _, l := range Lifecycles {
		if l.String() == s {
			return l, true
		}
	}
	return 0, false
}

// MarshalText encodes the lifecycle by name.
func (l Lifecycle) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText decodes a lifecycle name.
func (l *Lifecycle) UnmarshalText(text []byte) error {
	parsed, ok := ParseLifecycle(string(text))
	if !ok {
		return fmt.Errorf("unknown lifecycle %q", text)
	}
	*l = parsed
	return nil
}
