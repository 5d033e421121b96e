// Package protocol defines the types necessary for unmarshalling a
// protocol-specification XML file and converting it into the wire
// package's interface descriptors.
package protocol

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"deedles.dev/wlkit/wire"
)

type Protocol struct {
	Name      string `xml:"name,attr"`
	Copyright string `xml:"copyright"`

	Interfaces []Interface `xml:"interface"`
}

// Load decodes a protocol XML document.
func Load(r io.Reader) (proto Protocol, err error) {
	err = xml.NewDecoder(r).Decode(&proto)
	if err != nil {
		return proto, fmt.Errorf("decode protocol: %w", err)
	}
	return proto, nil
}

// Interface returns the interface with the given name.
func (p Protocol) Interface(name string) (Interface, bool) {
	for _, i := range p.Interfaces {
		if i.Name == name {
			return i, true
		}
	}
	return Interface{}, false
}

type Interface struct {
	Name        string      `xml:"name,attr"`
	Version     int         `xml:"version,attr"`
	Description Description `xml:"description"`

	Requests []Op   `xml:"request"`
	Events   []Op   `xml:"event"`
	Enums    []Enum `xml:"enum"`
}

type Description struct {
	Summary string `xml:"summary,attr"`
	Full    string `xml:",chardata"`
}

type Op struct {
	Name        string      `xml:"name,attr"`
	Type        string      `xml:"type,attr"`
	Since       int         `xml:"since,attr"`
	Description Description `xml:"description"`

	Args []Arg `xml:"arg"`
}

// Destructor reports whether the op destroys its object.
func (op Op) Destructor() bool {
	return op.Type == "destructor"
}

// Signature returns the op's arguments in the format used by
// wire.Message. A new_id without a fixed interface expands to "sun".
func (op Op) Signature() (string, error) {
	var sb strings.Builder
	for _, arg := range op.Args {
		if arg.AllowNull {
			sb.WriteByte('?')
		}

		switch arg.Type {
		case "int":
			sb.WriteByte('i')
		case "uint":
			sb.WriteByte('u')
		case "fixed":
			sb.WriteByte('f')
		case "string":
			sb.WriteByte('s')
		case "object":
			sb.WriteByte('o')
		case "new_id":
			if arg.Interface == "" {
				sb.WriteString("su")
			}
			sb.WriteByte('n')
		case "array":
			sb.WriteByte('a')
		case "fd":
			sb.WriteByte('h')
		default:
			return "", fmt.Errorf("%v: argument %v: unknown type %q", op.Name, arg.Name, arg.Type)
		}
	}
	return sb.String(), nil
}

// Creates returns the interface of the op's new_id argument, if it has
// one with a fixed interface.
func (op Op) Creates() string {
	for _, arg := range op.Args {
		if arg.Type == "new_id" {
			return arg.Interface
		}
	}
	return ""
}

type Arg struct {
	Name    string `xml:"name,attr"`
	Summary string `xml:"summary,attr"`

	Type      string `xml:"type,attr"`
	Interface string `xml:"interface,attr"`
	Enum      string `xml:"enum,attr"`
	AllowNull bool   `xml:"allow-null,attr"`
	Version   int    `xml:"version,attr"`
}

type Enum struct {
	Name        string      `xml:"name,attr"`
	Since       int         `xml:"since,attr"`
	Bitfield    bool        `xml:"bitfield,attr"`
	Description Description `xml:"description"`

	Entries []Entry `xml:"entry"`
}

type Entry struct {
	Name    string `xml:"name,attr"`
	Summary string `xml:"summary,attr"`
	Value   string `xml:"value,attr"`
	Since   int    `xml:"since,attr"`
}

func (e Entry) Int() (int, error) {
	v, err := strconv.ParseInt(e.Value, 0, 0)
	return int(v), err
}

// Uint returns the entry's value as the uint32 it is sent as.
func (e Entry) Uint() (uint32, error) {
	v, err := strconv.ParseUint(e.Value, 0, 32)
	return uint32(v), err
}

// Convert builds wire descriptors for every interface in p. Interfaces
// referenced by new_id arguments are looked up in p first and then in
// deps, which should hold the descriptors of the protocols p depends
// on. References to unknown interfaces are an error.
func Convert(p Protocol, deps ...*wire.Interface) ([]*wire.Interface, error) {
	byName := make(map[string]*wire.Interface, len(p.Interfaces)+len(deps))
	for _, dep := range deps {
		byName[dep.Name] = dep
	}

	ifaces := make([]*wire.Interface, 0, len(p.Interfaces))
	for _, i := range p.Interfaces {
		iface := &wire.Interface{Name: i.Name, Version: uint32(i.Version)}
		byName[i.Name] = iface
		ifaces = append(ifaces, iface)
	}

	convert := func(i Interface, ops []Op) ([]wire.Message, error) {
		msgs := make([]wire.Message, 0, len(ops))
		for _, op := range ops {
			sig, err := op.Signature()
			if err != nil {
				return nil, fmt.Errorf("%v.%w", i.Name, err)
			}

			msg := wire.Message{
				Name:       op.Name,
				Signature:  sig,
				Destructor: op.Destructor(),
			}
			if op.Since > 1 {
				msg.Since = uint32(op.Since)
			}
			if name := op.Creates(); name != "" {
				creates, ok := byName[name]
				if !ok {
					return nil, fmt.Errorf("%v.%v: unknown interface %v", i.Name, op.Name, name)
				}
				msg.Creates = creates
			}
			msgs = append(msgs, msg)
		}
		return msgs, nil
	}

	for n, i := range p.Interfaces {
		var err error
		ifaces[n].Requests, err = convert(i, i.Requests)
		if err != nil {
			return nil, err
		}
		ifaces[n].Events, err = convert(i, i.Events)
		if err != nil {
			return nil, err
		}
		if err := ifaces[n].Validate(); err != nil {
			return nil, err
		}
	}
	return ifaces, nil
}
