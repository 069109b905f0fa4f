package marketplace

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// FeederConfig controls the synthetic order flow.
type FeederConfig struct {
	Interval   time.Duration   // how often a batch is placed
	BatchSize  int             // orders registered per batch
	NumUsers   int             // simulated traders
	BasePrice  decimal.Decimal // price per kg orders cluster around
	CancelRate float64         // fraction of a batch's size cancelled from earlier orders
	Seed       int64
}

func DefaultFeederConfig() FeederConfig {
	return FeederConfig{
		Interval:   time.Second,
		BatchSize:  10,
		NumUsers:   20,
		BasePrice:  decimal.RequireFromString("21.50"),
		CancelRate: 0.5,
		Seed:       time.Now().UnixNano(),
	}
}

// StartFeeder registers and cancels random orders on app until ctx is done
// or the returned cancel func is called.
func StartFeeder(ctx context.Context, app *App, cfg FeederConfig, logger *zap.SugaredLogger) context.CancelFunc {
	def := DefaultFeederConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if !cfg.BasePrice.IsPositive() {
		cfg.BasePrice = def.BasePrice
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	gen := NewOrderGenerator(cfg.NumUsers, cfg.BasePrice, cfg.Seed)
	feedCtx, cancel := context.WithCancel(ctx)

	go func() {
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		start := time.Now()
		var placed, cancelled int

		logger.Infow("ordergen_started", "batch", cfg.BatchSize, "interval", cfg.Interval, "users", cfg.NumUsers)

		for {
			select {
			case <-feedCtx.Done():
				logger.Infow("ordergen_stopped",
					"placed", placed,
					"cancelled", cancelled,
					"elapsed", time.Since(start).Round(time.Second),
				)
				return

			case <-ticker.C:
				p, c := runBatch(app, gen, cfg, logger)
				placed += p
				cancelled += c
			}
		}
	}()

	return cancel
}

func runBatch(app *App, gen *OrderGenerator, cfg FeederConfig, logger *zap.SugaredLogger) (placed, cancelled int) {
	for _, o := range gen.PickCancels(int(float64(cfg.BatchSize) * cfg.CancelRate)) {
		if err := app.CancelOrder(o); err != nil {
			logger.Warnw("ordergen_cancel_failed", "order_id", o.ID, "err", err)
			continue
		}
		cancelled++
	}
	for i := 0; i < cfg.BatchSize; i++ {
		o := gen.NextOrder(app.NewOrder)
		if err := app.RegisterOrder(o); err != nil {
			logger.Warnw("ordergen_register_failed", "order_id", o.ID, "err", err)
			continue
		}
		placed++
	}
	return placed, cancelled
}
