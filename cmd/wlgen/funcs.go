package main

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"deedles.dev/wlkit/protocol"
)

var initialisms = map[string]string{
	"id":  "ID",
	"fd":  "FD",
	"url": "URL",
	"xdg": "XDG",
}

func (ctx Context) ident(v string) string {
	var pkg string
	v, ok := ctx.cutPrefix(v, ctx.Config.Prefixes...)
	if !ok {
		for _, i := range ctx.Config.Imports {
			v, ok = strings.CutPrefix(v, i.Prefix)
			if ok {
				pkg = i.Name + "."
				break
			}
		}
	}
	if pkg == "" {
		v = strings.TrimSuffix(v, ctx.Config.Suffix)
	}

	return pkg + ctx.camel(v)
}

func (ctx Context) cutPrefix(v string, prefixes ...string) (string, bool) {
	for _, prefix := range prefixes {
		if prefix == "" {
			continue
		}
		if after, ok := strings.CutPrefix(v, prefix); ok {
			return after, true
		}
	}
	return v, false
}

func (ctx Context) camel(v string) string {
	var buf strings.Builder
	buf.Grow(len(v))
	for _, word := range strings.Split(v, "_") {
		if word == "" {
			continue
		}
		if init, ok := initialisms[word]; ok {
			buf.WriteString(init)
			continue
		}

		for i, c := range word {
			if i == 0 {
				c = unicode.ToUpper(c)
			}
			buf.WriteRune(c)
		}
	}
	return buf.String()
}

func (ctx Context) trimLines(v string) string {
	lines := strings.Split(strings.TrimSpace(v), "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return strings.Join(lines, "\n")
}

func (ctx Context) comment(v string) string {
	if len(v) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, line := range strings.Split(ctx.trimLines(v), "\n") {
		sb.WriteString("// ")
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (ctx Context) summary(i protocol.Interface) string {
	s := fmt.Sprintf("%v is %v", ctx.ident(i.Name), i.Name)
	if i.Description.Summary == "" {
		return s + "."
	}
	return s + ": " + i.Description.Summary + "."
}

// message returns a wire.Message literal for op.
func (ctx Context) message(op protocol.Op) (string, error) {
	sig, err := op.Signature()
	if err != nil {
		return "", err
	}

	fields := []string{"Name: " + strconv.Quote(op.Name)}
	if op.Since > 1 {
		fields = append(fields, fmt.Sprintf("Since: %v", op.Since))
	}
	if sig != "" {
		fields = append(fields, "Signature: "+strconv.Quote(sig))
	}
	if op.Destructor() {
		fields = append(fields, "Destructor: true")
	}
	if creates := op.Creates(); creates != "" {
		fields = append(fields, "Creates: "+ctx.ident(creates))
	}
	return "{" + strings.Join(fields, ", ") + "}", nil
}

// imports returns the configured imports that the protocol refers to.
func (ctx Context) imports() []Import {
	var refs []string
	for _, i := range ctx.Protocol.Interfaces {
		for _, ops := range [][]protocol.Op{i.Requests, i.Events} {
			for _, op := range ops {
				if creates := op.Creates(); creates != "" {
					refs = append(refs, creates)
				}
			}
		}
	}

	return slices.DeleteFunc(slices.Clone(ctx.Config.Imports), func(imp Import) bool {
		for _, ref := range refs {
			if _, local := ctx.cutPrefix(ref, ctx.Config.Prefixes...); local {
				continue
			}
			if strings.HasPrefix(ref, imp.Prefix) {
				return false
			}
		}
		return true
	})
}
