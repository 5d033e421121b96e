package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"deedles.dev/wlkit/internal/config"
	wl "deedles.dev/wlkit/server"
	"deedles.dev/wlkit/server/idlenotify"
	"deedles.dev/wlkit/server/linuxdmabuf"
	"deedles.dev/wlkit/server/shortcutsinhibit"
	"deedles.dev/wlkit/wire"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run a headless Wayland server",
		Long: `serve listens on a Wayland socket and accepts clients until it is
interrupted. Surfaces are never shown, but committed buffers are
released and frame callbacks are answered as if they were.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, unix.SIGTERM)
			defer stop()

			return serve(ctx, a.cfg, a.logger, func(path string) {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			})
		},
	}
}

// newServer creates a display with the globals enabled by cfg.
func newServer(cfg *config.Config, logger *log.Logger) (*wl.Display, error) {
	display := wl.NewDisplay()
	display.Logger = logger

	start := time.Now()
	comp := wl.NewCompositor(display)
	comp.OnSurface(func(s *wl.Surface) {
		logger.Debug("surface created", "surface", s.Resource())
		s.OnCommit(func(s *wl.Surface) {
			if b := s.Buffer(); b != nil {
				logger.Debug("commit", "surface", s.Resource(), "buffer", b.Resource(), "size", b.Size())
			}
			s.SendFrameDone(uint32(time.Since(start).Milliseconds()))
		})
	})

	formats, err := cfg.Shm.Fourccs()
	if err != nil {
		return nil, err
	}
	wl.NewShm(display, formats...)

	caps, err := cfg.Seat.Caps()
	if err != nil {
		return nil, err
	}
	wl.NewSeat(display, cfg.Seat.Name, caps)

	if cfg.Idle.Enabled {
		n := idlenotify.New(display, cfg.Idle.Version, cfg.Idle.Timeouts)
		n.OnNotification(func(note *idlenotify.Notification) {
			logger.Debug("idle notification", "resource", note.Resource(), "timeout", note.Duration(), "input", note.Input())
		})
	}

	if cfg.Dmabuf.Enabled {
		table, err := cfg.Dmabuf.Table()
		if err != nil {
			return nil, err
		}
		d := linuxdmabuf.New(display, cfg.Dmabuf.Version, table, headlessImporter{})
		d.OnBuffer(func(buf *wl.DmabufBuffer) {
			attrs := buf.Attributes()
			logger.Debug("dmabuf imported", "buffer", buf.Resource(), "format", attrs.Format, "planes", len(attrs.Planes))
		})
	}

	if cfg.ShortcutsInhibit.Enabled {
		m := shortcutsinhibit.New(display)
		m.OnInhibitor(func(inh *shortcutsinhibit.Inhibitor) {
			logger.Debug("shortcuts inhibited", "surface", inh.Surface().Resource())
			inh.Activate()
		})
	}

	return display, nil
}

// headlessImporter accepts every dmabuf that passes validation. There
// is no renderer to import into, so the buffer's attributes are the
// only handle.
type headlessImporter struct{}

func (headlessImporter) Import(attrs *wl.DmabufAttributes) (any, error) {
	return attrs.Format, nil
}

// serve runs a server until ctx is canceled. ready, if not nil, is
// called with the socket path once clients can connect.
func serve(ctx context.Context, cfg *config.Config, logger *log.Logger, ready func(path string)) error {
	display, err := newServer(cfg, logger)
	if err != nil {
		return err
	}

	lis, err := wire.Listen(cfg.Socket)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	path := lis.Addr().String()
	logger.Info("listening", "socket", path)
	if ready != nil {
		ready(path)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return display.Serve(lis)
	})
	g.Go(func() error {
		return display.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		err := display.Close()
		lis.Close()
		return err
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
