package main

import (
	"context"
	"fmt"
	"math"

	"github.com/quotecast/tether/pkg/domain"
)

// seriesPayload is the input for the built-in series computations.
type seriesPayload struct {
	Symbol  string    `json:"symbol"`
	Closes  []float64 `json:"closes"`
	Periods int       `json:"periods"`
}

func (p seriesPayload) validate() error {
	if p.Periods <= 0 {
		return fmt.Errorf("invalid payload: periods must be positive, got %d", p.Periods)
	}
	if len(p.Closes) < p.Periods {
		return fmt.Errorf("invalid payload: need at least %d closes, got %d", p.Periods, len(p.Closes))
	}
	return nil
}

type handlerRegistry interface {
	Register(taskType string, h domain.Handler)
}

// registerHandlers installs the built-in computations shared by every worker
// flavor (stdio and redis).
func registerHandlers(r handlerRegistry) {
	r.Register("echo", func(ctx context.Context, payload any) (any, error) {
		return payload, nil
	})

	// Simple moving average of the last N closes.
	r.Register("sma", func(ctx context.Context, payload any) (any, error) {
		p, err := domain.DecodePayload[seriesPayload](payload)
		if err != nil {
			return nil, err
		}
		if err := p.validate(); err != nil {
			return nil, err
		}

		window := p.Closes[len(p.Closes)-p.Periods:]
		var sum float64
		for _, c := range window {
			sum += c
		}
		return map[string]any{
			"symbol": p.Symbol,
			"sma":    sum / float64(p.Periods),
		}, nil
	})

	// Sample standard deviation of the last N closes.
	r.Register("volatility", func(ctx context.Context, payload any) (any, error) {
		p, err := domain.DecodePayload[seriesPayload](payload)
		if err != nil {
			return nil, err
		}
		if err := p.validate(); err != nil {
			return nil, err
		}
		if p.Periods < 2 {
			return nil, fmt.Errorf("invalid payload: volatility needs at least 2 periods")
		}

		window := p.Closes[len(p.Closes)-p.Periods:]
		var sum float64
		for _, c := range window {
			sum += c
		}
		mean := sum / float64(p.Periods)

		var sq float64
		for _, c := range window {
			sq += (c - mean) * (c - mean)
		}
		return map[string]any{
			"symbol":     p.Symbol,
			"volatility": math.Sqrt(sq / float64(p.Periods-1)),
		}, nil
	})
}
