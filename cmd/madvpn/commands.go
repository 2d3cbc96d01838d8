package main

import (
	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/madvpn/internal/app"
	"github.com/MrSnakeDoc/madvpn/internal/config"
	"github.com/MrSnakeDoc/madvpn/internal/domain"
	"github.com/MrSnakeDoc/madvpn/internal/logger"
	"github.com/MrSnakeDoc/madvpn/internal/version"
)

type rootFlags struct {
	logLevel string
	json     bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "madvpn",
		Short: "Remote control front end for the OpenVPN service",
		Long: `madvpn starts, stops and reports on the OpenVPN systemd unit.

Without a subcommand it runs the daemon, which exposes the remote buttons
over HTTP. The status, start, stop and info subcommands run one action and exit.`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(flags)
		},
	}
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override MADVPN_LOG_LEVEL (debug, info, warn, error)")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the daemon (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(flags)
		},
	})

	for _, sub := range []struct {
		action domain.Action
		short  string
	}{
		{domain.ActionStatus, "Show the OpenVPN service status"},
		{domain.ActionStart, "Start the OpenVPN service and show the new status"},
		{domain.ActionStop, "Stop the OpenVPN service and show the new status"},
		{domain.ActionInfo, "Show the remote control help"},
	} {
		root.AddCommand(newActionCmd(sub.action, sub.short, flags))
	}

	return root
}

func newActionCmd(action domain.Action, short string, flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   action.String(),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// one-shot actions only log warnings unless asked otherwise
			cfg, log, err := setup(flags, "warn")
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			return app.RunAction(cmd.Context(), cfg, log, action, cmd.OutOrStdout(),
				app.ActionOptions{JSON: flags.json})
		},
	}
	cmd.Flags().BoolVar(&flags.json, "json", false, "print the result as JSON")
	return cmd
}

func runServe(flags *rootFlags) error {
	cfg, log, err := setup(flags, "")
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	a, err := app.New(cfg, log)
	if err != nil {
		log.Error("❌ madvpn failed to start", logger.Error(err))
		return err
	}
	return a.Run()
}

// setup loads the configuration and builds the logger. The --log-level flag
// wins over MADVPN_LOG_LEVEL, which wins over defaultLevel.
func setup(flags *rootFlags, defaultLevel string) (*config.Config, logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	level := cfg.LogLevel
	switch {
	case flags.logLevel != "":
		level = flags.logLevel
	case defaultLevel != "" && !cfg.LogLevelSet:
		level = defaultLevel
	}
	cfg.LogLevel = level

	return cfg, logger.New(level, cfg.PrettyLog), nil
}
