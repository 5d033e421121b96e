package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	cl "deedles.dev/wlkit/client"
	"deedles.dev/wlkit/client/linuxdmabuf"
	"deedles.dev/wlkit/fourcc"
	protodmabuf "deedles.dev/wlkit/proto/linuxdmabuf"
	"deedles.dev/wlkit/proto/wayland"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

func newGlobalsCmd(a *app) *cobra.Command {
	var formats bool
	cmd := &cobra.Command{
		Use:   "globals",
		Short: "List the globals advertised by a Wayland server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			return listGlobals(ctx, cmd.OutOrStdout(), a.cfg.Socket, formats)
		},
	}
	cmd.Flags().BoolVarP(&formats, "formats", "f", false, "also list wl_shm and linux-dmabuf formats")
	return cmd
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
}

// listGlobals connects to the server on socket, or the one named by
// the environment if socket is empty, and writes its globals to w.
func listGlobals(ctx context.Context, w io.Writer, socket string, formats bool) error {
	dial := cl.Dial
	if socket != "" {
		dial = func() (*cl.Display, error) { return cl.DialSocket(socket) }
	}
	display, err := dial()
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer display.Close()

	registry := display.GetRegistry()
	if err := display.RoundTrip(ctx); err != nil {
		return fmt.Errorf("get globals: %w", err)
	}

	globals := registry.Globals()
	names := make([]uint32, 0, len(globals))
	for name := range globals {
		names = append(names, name)
	}
	slices.Sort(names)

	t := newTable("NAME", "INTERFACE", "VERSION")
	for _, name := range names {
		g := globals[name]
		t.Row(strconv.FormatUint(uint64(name), 10), g.Name, strconv.FormatUint(uint64(g.Version), 10))
	}
	fmt.Fprintln(w, t.Render())

	if !formats {
		return nil
	}
	return listFormats(ctx, w, display, registry)
}

func listFormats(ctx context.Context, w io.Writer, display *cl.Display, registry *cl.Registry) error {
	var (
		shm    *cl.Shm
		dmabuf *linuxdmabuf.Dmabuf
	)
	if name, _, ok := registry.Find(wayland.Shm); ok {
		shm = cl.BindShm(registry, name, 1)
	}
	if name, version, ok := registry.Find(protodmabuf.Dmabuf); ok {
		dmabuf = linuxdmabuf.Bind(registry, name, min(version, protodmabuf.Dmabuf.Version))
	}
	if err := display.RoundTrip(ctx); err != nil {
		return fmt.Errorf("get formats: %w", err)
	}

	if shm != nil {
		t := newTable("WL_SHM FORMAT", "NAME")
		for _, f := range shm.Formats() {
			t.Row(f.String(), f.Name())
		}
		fmt.Fprintln(w, t.Render())
	}

	if dmabuf != nil {
		mods := dmabuf.Formats()
		keys := make([]fourcc.Format, 0, len(mods))
		for f := range mods {
			keys = append(keys, f)
		}
		slices.Sort(keys)

		t := newTable("DMABUF FORMAT", "NAME", "MODIFIERS")
		for _, f := range keys {
			hex := make([]string, 0, len(mods[f]))
			for _, mod := range mods[f] {
				hex = append(hex, fmt.Sprintf("0x%016x", mod))
			}
			t.Row(f.String(), f.Name(), strings.Join(hex, " "))
		}
		fmt.Fprintln(w, t.Render())
	}

	return nil
}
