package wire

import (
	"fmt"
	"strings"
)

// ArgType is the type of a single message argument, expressed with
// the same letters libwayland uses in its signatures.
type ArgType byte

const (
	ArgInt    ArgType = 'i'
	ArgUint   ArgType = 'u'
	ArgFixed  ArgType = 'f'
	ArgString ArgType = 's'
	ArgObject ArgType = 'o'
	ArgNewID  ArgType = 'n'
	ArgArray  ArgType = 'a'
	ArgFD     ArgType = 'h'
)

func (t ArgType) String() string {
	switch t {
	case ArgInt:
		return "int"
	case ArgUint:
		return "uint"
	case ArgFixed:
		return "fixed"
	case ArgString:
		return "string"
	case ArgObject:
		return "object"
	case ArgNewID:
		return "new_id"
	case ArgArray:
		return "array"
	case ArgFD:
		return "fd"
	default:
		return fmt.Sprintf("ArgType(%q)", byte(t))
	}
}

// Arg describes one argument of a message.
type Arg struct {
	Type     ArgType
	Nullable bool
}

// Message describes a single request or event.
type Message struct {
	Name string

	// Since is the interface version the message was introduced in.
	// Zero is treated as one.
	Since uint32

	// Signature lists the argument types of the message. A '?' before
	// a 's' or 'o' marks the argument as nullable. A new_id whose
	// interface is not fixed by the protocol is written as "sun".
	Signature string

	// Destructor marks messages after which the object no longer
	// exists.
	Destructor bool

	// Creates is the interface of the object created by the message's
	// new_id argument, if it has one with a fixed interface.
	Creates *Interface
}

// Args parses the message's signature.
func (m Message) Args() []Arg {
	args := make([]Arg, 0, len(m.Signature))
	var nullable bool
	for _, c := range []byte(m.Signature) {
		if c == '?' {
			nullable = true
			continue
		}
		args = append(args, Arg{Type: ArgType(c), Nullable: nullable})
		nullable = false
	}
	return args
}

// Available reports whether the message may be used on an object of
// the given version.
func (m Message) Available(version uint32) bool {
	return version >= max(m.Since, 1)
}

// Interface describes a protocol interface.
type Interface struct {
	Name     string
	Version  uint32
	Requests []Message
	Events   []Message
}

func (i *Interface) String() string {
	return i.Name
}

// Request returns the request with the given opcode.
func (i *Interface) Request(op uint16) (Message, bool) {
	if int(op) >= len(i.Requests) {
		return Message{}, false
	}
	return i.Requests[op], true
}

// Event returns the event with the given opcode.
func (i *Interface) Event(op uint16) (Message, bool) {
	if int(op) >= len(i.Events) {
		return Message{}, false
	}
	return i.Events[op], true
}

// Validate checks the descriptor for malformed signatures. It is
// meant to be called from tests of packages that declare interfaces.
func (i *Interface) Validate() error {
	check := func(kind string, msgs []Message) error {
		for op, m := range msgs {
			if m.Name == "" {
				return fmt.Errorf("%v %v %v: missing name", i.Name, kind, op)
			}
			if m.Since > i.Version {
				return fmt.Errorf("%v.%v: since %v is above interface version %v", i.Name, m.Name, m.Since, i.Version)
			}
			if strings.HasSuffix(m.Signature, "?") {
				return fmt.Errorf("%v.%v: dangling nullability marker", i.Name, m.Name)
			}
			for _, arg := range m.Args() {
				switch arg.Type {
				case ArgInt, ArgUint, ArgFixed, ArgArray, ArgFD, ArgNewID:
					if arg.Nullable {
						return fmt.Errorf("%v.%v: %v can not be nullable", i.Name, m.Name, arg.Type)
					}
				case ArgString, ArgObject:
				default:
					return fmt.Errorf("%v.%v: unknown argument type %q", i.Name, m.Name, byte(arg.Type))
				}
			}
		}
		return nil
	}

	if i.Version == 0 {
		return fmt.Errorf("%v: version must be at least 1", i.Name)
	}
	if err := check("request", i.Requests); err != nil {
		return err
	}
	return check("event", i.Events)
}
