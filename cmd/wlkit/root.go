package main

import (
	"fmt"

	"deedles.dev/wlkit/internal/config"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// app holds the state shared by every command.
type app struct {
	configPath string
	cfg        *config.Config
	logger     *log.Logger
}

func newRootCmd() *cobra.Command {
	var a app
	cmd := &cobra.Command{
		Use:   "wlkit",
		Short: "Headless Wayland server and protocol toolkit",
		Long: `wlkit runs a headless Wayland server that offers the core shm
protocol along with linux-dmabuf, ext-idle-notify and
keyboard-shortcuts-inhibit, and can list the globals of any server.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "config file (default is wlkit.toml in the user config directory or .)")
	flags.StringP("socket", "s", "", "socket name or path")
	flags.String("log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(newServeCmd(&a), newGlobalsCmd(&a))
	return cmd
}

func (a *app) load(cmd *cobra.Command) error {
	v := config.New(a.configPath)
	if err := v.BindPFlag("socket", cmd.Flags().Lookup("socket")); err != nil {
		return fmt.Errorf("bind socket flag: %w", err)
	}
	if err := v.BindPFlag("log.level", cmd.Flags().Lookup("log-level")); err != nil {
		return fmt.Errorf("bind log-level flag: %w", err)
	}

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	logger := log.NewWithOptions(cmd.ErrOrStderr(), log.Options{
		Prefix:          "wlkit",
		ReportTimestamp: true,
	})
	if err := cfg.Log.Apply(logger); err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}
