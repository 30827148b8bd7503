package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/quotecast/tether/internal/logging"
	redisAdapter "github.com/quotecast/tether/pkg/adapters/redis"
)

var redisWorkerCmd = &cobra.Command{
	Use:   "redis-worker",
	Short: "Run the Redis-transport compute worker",
	Long:  `Consumes task envelopes from a Redis request list and publishes responses on the reply channel. Run one or more of these next to a Redis instance shared with the submitting process.`,
	Run: func(cmd *cobra.Command, args []string) {
		level, _ := cmd.Flags().GetString("log-level")
		addr, _ := cmd.Flags().GetString("addr")
		password, _ := cmd.Flags().GetString("password")
		db, _ := cmd.Flags().GetInt("db")
		queue, _ := cmd.Flags().GetString("queue")
		reply, _ := cmd.Flags().GetString("reply-channel")

		logger := logging.New(logging.ParseLevel(level))
		client := backend.NewClient(&backend.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		})

		worker := redisAdapter.NewWorker(client,
			redisAdapter.WithWorkerQueue(queue),
			redisAdapter.WithWorkerReplyChannel(reply),
			redisAdapter.WithWorkerLogger(logger),
		)
		registerHandlers(worker)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info("redis worker started", "addr", addr, "queue", queue)
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "redis worker error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	redisWorkerCmd.Flags().String("addr", "localhost:6379", "Redis address")
	redisWorkerCmd.Flags().String("password", "", "Redis password")
	redisWorkerCmd.Flags().Int("db", 0, "Redis database")
	redisWorkerCmd.Flags().String("queue", "", "Request list key (default tether:tasks)")
	redisWorkerCmd.Flags().String("reply-channel", "", "Reply pub/sub channel (default tether:replies)")
	rootCmd.AddCommand(redisWorkerCmd)
}
