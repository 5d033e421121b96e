// Command wlgen generates wire.Interface descriptors from a Wayland
// protocol XML file.
package main

import (
	"bytes"
	_ "embed"
	"flag"
	"fmt"
	"go/format"
	"io"
	"os"
	"strings"
	"text/template"

	"deedles.dev/wlkit/protocol"
	"github.com/charmbracelet/log"
)

//go:embed descriptor.tmpl
var descriptorTemplate string

// Import maps interfaces with a name prefix to a package that holds
// their descriptors.
type Import struct {
	Prefix string
	Name   string
	Path   string
}

type Config struct {
	Pkg      string
	Prefixes []string
	Suffix   string
	Imports  []Import
}

type Context struct {
	Config   Config
	Protocol protocol.Protocol
	T        *template.Template
}

func loadXML(path string) (proto protocol.Protocol, err error) {
	file, err := os.Open(path)
	if err != nil {
		return proto, err
	}
	defer file.Close()

	return protocol.Load(file)
}

// parseImport parses an -import flag of the form prefix=path. The
// package name is the last element of the path.
func parseImport(v string) (Import, error) {
	prefix, path, ok := strings.Cut(v, "=")
	if !ok || (prefix == "") || (path == "") {
		return Import{}, fmt.Errorf("invalid import %q, expected prefix=path", v)
	}
	name := path[strings.LastIndexByte(path, '/')+1:]
	return Import{Prefix: prefix, Name: name, Path: path}, nil
}

// Generate writes formatted descriptor source for proto to w.
func Generate(w io.Writer, proto protocol.Protocol, config Config) error {
	ctx := Context{Config: config, Protocol: proto}
	ctx.T = template.New("descriptor").Funcs(template.FuncMap{
		"ident":   ctx.ident,
		"camel":   ctx.camel,
		"comment": ctx.comment,
		"summary": ctx.summary,
		"imports": ctx.imports,
		"message": ctx.message,
	})
	_, err := ctx.T.Parse(descriptorTemplate)
	if err != nil {
		return fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	err = ctx.T.Execute(&buf, ctx)
	if err != nil {
		return fmt.Errorf("execute template: %w", err)
	}

	src, err := format.Source(buf.Bytes())
	if err != nil {
		return fmt.Errorf("format output: %w\n%s", err, buf.Bytes())
	}
	_, err = w.Write(src)
	return err
}

type importFlags []Import

func (f *importFlags) String() string {
	return fmt.Sprint(*f)
}

func (f *importFlags) Set(v string) error {
	i, err := parseImport(v)
	if err != nil {
		return err
	}
	*f = append(*f, i)
	return nil
}

func main() {
	xmlfile := flag.String("xml", "", "protocol XML file")
	out := flag.String("out", "", "output file (default stdout)")
	pkg := flag.String("pkg", "", "output package name")
	prefix := flag.String("prefix", "wl_", "comma-separated interface name prefixes to strip")
	suffix := flag.String("suffix", "", "interface name suffix to strip, such as _v1")
	var imports importFlags
	flag.Var(&imports, "import", "prefix=path of a package with descriptors for interfaces with that prefix (repeatable)")
	flag.Parse()

	if (*xmlfile == "") || (*pkg == "") {
		flag.Usage()
		os.Exit(2)
	}

	proto, err := loadXML(*xmlfile)
	if err != nil {
		log.Fatal("load XML", "err", err)
	}

	w := io.Writer(os.Stdout)
	if *out != "" {
		file, err := os.Create(*out)
		if err != nil {
			log.Fatal("create output", "err", err)
		}
		defer file.Close()
		w = file
	}

	config := Config{
		Pkg:      *pkg,
		Prefixes: strings.Split(*prefix, ","),
		Suffix:   *suffix,
		Imports:  imports,
	}
	err = Generate(w, proto, config)
	if err != nil {
		log.Fatal("generate", "err", err)
	}
}
