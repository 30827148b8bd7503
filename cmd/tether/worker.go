package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quotecast/tether/internal/logging"
	"github.com/quotecast/tether/pkg/adapters/process"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the stdio compute worker",
	Long:  `Reads task envelopes as JSON lines on stdin and writes one JSON response line per task to stdout. Intended to be launched by the process executor; logs go to stderr.`,
	Run: func(cmd *cobra.Command, args []string) {
		level, _ := cmd.Flags().GetString("log-level")
		logger := logging.New(logging.ParseLevel(level))

		worker := process.NewWorker(process.WithWorkerLogger(logger))
		registerHandlers(worker)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info("stdio worker started")
		if err := worker.Run(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "worker error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
