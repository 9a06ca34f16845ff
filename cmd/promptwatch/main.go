package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/promptwatch/promptwatch/pkg/monitor"
)

// exitBusy mirrors EX_TEMPFAIL: the backend was occupied and the sweep was
// skipped, which wrapper scripts treat differently from a real failure.
const exitBusy = 75

var rootCmd = &cobra.Command{
	Use:           "promptwatch",
	Short:         "carry on LLM conversations through .prompt files",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		logFile, _ := cmd.Flags().GetString("log")
		initLogger(verbose, logFile)
	},
}

func initLogger(verbose bool, logFile string) {
	var writer io.Writer = zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "2006-01-02 15:04:05",
	}

	if logFile != "" {
		writer = io.MultiWriter(writer, zerolog.ConsoleWriter{
			NoColor:    true,
			TimeFormat: "2006-01-02 15:04:05",
			Out: &lumberjack.Logger{
				Filename:   logFile,
				MaxSize:    10, // megabytes
				MaxBackups: 3,
			},
		})
	}

	log.Logger = zerolog.New(writer).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
	rootCmd.PersistentFlags().String("log", "", "also write activity log to this file")
	rootCmd.AddCommand(newRunCommand(), newMonitorCommand())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, monitor.ErrBackendBusy) {
			log.Warn().Msg("aborted: backend busy")
			os.Exit(exitBusy)
		}
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
