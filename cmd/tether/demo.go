package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	tether "github.com/quotecast/tether"
	"github.com/quotecast/tether/internal/logging"
	"github.com/quotecast/tether/pkg/adapters/inproc"
	"github.com/quotecast/tether/pkg/domain"
	"github.com/quotecast/tether/pkg/observability"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a synthetic pipeline with a monitoring endpoint",
	Long:  `Drives coordinated calls and offload tasks against an in-process worker pool, exposing /stats and /metrics so the degradation counters can be watched live. Some tasks are deliberately malformed to exercise the fallback path.`,
	Run: func(cmd *cobra.Command, args []string) {
		level, _ := cmd.Flags().GetString("log-level")
		port, _ := cmd.Flags().GetString("port")
		logger := logging.New(logging.ParseLevel(level))

		exec := inproc.New(inproc.WithLogger(logger))
		registerHandlers(exec)

		client := tether.New(tether.WithLogger(logger), tether.WithExecutor(exec))
		defer client.Close()

		reg := prometheus.NewRegistry()
		collector := observability.NewCollector(client.Policy().Stats(),
			observability.WithRouter(client.Router()),
			observability.WithCoordinator(client.Coordinator()),
		)
		if err := reg.Register(collector); err != nil {
			fmt.Printf("Error registering collector: %v\n", err)
			os.Exit(1)
		}

		srv := &http.Server{
			Addr:    ":" + port,
			Handler: observability.NewHandler(client.Policy().Stats(), reg),
		}

		serverErrors := make(chan error, 1)
		go func() {
			fmt.Printf("Monitoring endpoint on %s (/stats, /metrics)\n", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		go driveTraffic(ctx, client, logger)

		select {
		case err := <-serverErrors:
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)
		case <-ctx.Done():
			fmt.Println("\nShutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				_ = srv.Close()
			}
		}
	},
}

// driveTraffic issues a steady mix of coordinated quote calls and offload
// tasks, including malformed ones, until the context is cancelled.
func driveTraffic(ctx context.Context, client *tether.Client, logger *slog.Logger) {
	symbols := []string{"EURUSD", "GBPUSD", "USDJPY", "XAUUSD"}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		symbol := symbols[rand.Intn(len(symbols))]

		_, _ = client.Run(ctx, domain.Call{
			Operation: "quote",
			Targets:   []string{symbol, "M5"},
			Freshness: 2 * time.Second,
			Priority:  domain.PriorityInteractive,
			Fn: func(ctx context.Context) (any, error) {
				time.Sleep(50 * time.Millisecond) // simulated broker latency
				return 1 + rand.Float64(), nil
			},
		})

		payload := seriesPayload{Symbol: symbol, Closes: randomCloses(30), Periods: 14}
		if rand.Intn(5) == 0 {
			payload.Periods = 0 // force the invalid_payload fallback path
		}

		res := client.Offload(ctx, "indicators", domain.Task{
			ID:      domain.NewTaskID(),
			Type:    "sma",
			Payload: map[string]any{"symbol": payload.Symbol, "closes": payload.Closes, "periods": payload.Periods},
			Timeout: 2 * time.Second,
		}, func(ctx context.Context) (any, error) {
			return map[string]any{"symbol": symbol, "sma": 1.0}, nil
		})

		if res.FallbackUsed {
			logger.Info("degraded", "reason", string(res.Reason))
		}
	}
}

func randomCloses(n int) []float64 {
	out := make([]float64, n)
	price := 1.10
	for i := range out {
		price += (rand.Float64() - 0.5) / 100
		out[i] = price
	}
	return out
}

func init() {
	demoCmd.Flags().String("port", "9180", "Monitoring listen port")
	rootCmd.AddCommand(demoCmd)
}
