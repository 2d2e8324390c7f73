package cli

import (
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/turtacn/dtiscope/internal/infrastructure/monitoring/logging"
)

// VersionInfo is the output of `dtiscope version`.
type VersionInfo struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	BuildDate string `json:"build_date" yaml:"build_date"`
	GoVersion string `json:"go_version" yaml:"go_version"`
}

func (v VersionInfo) String() string {
	return "dtiscope " + v.Version + " (commit " + v.Commit + ", built " + v.BuildDate + ", " + v.GoVersion + ")"
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return PrintResult(cmd, VersionInfo{
				Version:   Version,
				Commit:    GitCommit,
				BuildDate: BuildDate,
				GoVersion: runtime.Version(),
			})
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket session API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := cliCtx.App(ctx)
			if err != nil {
				return err
			}
			cliCtx.Logger.Info("starting dtiscope server",
				logging.String("version", Version),
				logging.String("addr", cliCtx.Config.Server.Addr()))
			return a.Serve(ctx, Version, cliCtx.ConfigPath)
		},
	}
}

//Personal.AI order the ending
