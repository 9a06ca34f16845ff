package main

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/promptwatch/promptwatch/pkg/monitor"
)

func newMonitorCommand() *cobra.Command {
	var (
		continuous     bool
		interval       time.Duration
		stabilityDelay time.Duration
		jobTimeout     time.Duration
		dryRun         bool
		skipBusyCheck  bool
		serverURL      string
	)

	cmd := &cobra.Command{
		Use:   "monitor <directory>",
		Short: "process every ready prompt file in a directory",
		Long: `Sweeps a directory for .prompt files, generates the next response for each
file that ends on a human turn, and renames finished files with a .complete
or .error suffix. Run it under an external advisory lock (e.g. flock) when
triggered from cron; the monitor performs no locking itself.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			info, err := os.Stat(dir)
			if err != nil {
				return errors.Wrapf(err, "directory %q", dir)
			}
			if !info.IsDir() {
				return errors.Errorf("%q is not a directory", dir)
			}

			ctrl := monitor.NewController(dir)
			ctrl.StabilityDelay = stabilityDelay
			ctrl.JobTimeout = jobTimeout
			ctrl.DryRun = dryRun
			if !skipBusyCheck {
				ctrl.Busy = monitor.NewBackendBusyChecker(serverURL)
			}

			if continuous {
				err := ctrl.Run(cmd.Context(), interval)
				if errors.Is(err, context.Canceled) {
					log.Info().Msg("monitor stopped by interrupt")
					return nil
				}
				return err
			}

			count, err := ctrl.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			log.Info().Int("processed", count).Msg("single run completed")
			return nil
		},
	}

	cmd.Flags().BoolVar(&continuous, "continuous", false, "run continuously instead of a single pass")
	cmd.Flags().DurationVar(&interval, "interval", 60*time.Second, "time between sweeps in continuous mode")
	cmd.Flags().DurationVar(&stabilityDelay, "stability-delay", 2*time.Second, "sampling delay of the file stability check")
	cmd.Flags().DurationVar(&jobTimeout, "job-timeout", 2*time.Hour, "upper bound on a single generation call")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be processed without generating")
	cmd.Flags().BoolVar(&skipBusyCheck, "skip-busy-check", false, "process even when the backend looks busy")
	cmd.Flags().StringVar(&serverURL, "server-url", "http://localhost:11434", "backend probed by the busy check")
	return cmd
}
