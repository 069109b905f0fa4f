// Package marketplace is the live order board: it validates orders, keeps them
// in an orderbook.Store and answers market-depth queries.
package marketplace

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/silverbars/marketplace/pkg/app/core/orderbook"
	"github.com/silverbars/marketplace/pkg/events"
	"github.com/silverbars/marketplace/pkg/metrics"
	"github.com/silverbars/marketplace/pkg/util"
)

type App struct {
	store      orderbook.Store
	aggregator *orderbook.Aggregator
	clock      util.Clock
	logger     *zap.SugaredLogger
	metrics    *metrics.Metrics
	publisher  events.Publisher

	// OnChange, if set, runs after every mutation that changed side.
	// It is called synchronously on the caller's goroutine.
	OnChange func(side orderbook.Side)
}

type Option func(*App)

func WithClock(c util.Clock) Option { return func(a *App) { a.clock = c } }

func WithLogger(l *zap.SugaredLogger) Option { return func(a *App) { a.logger = l } }

func WithMetrics(m *metrics.Metrics) Option { return func(a *App) { a.metrics = m } }

func WithPublisher(p events.Publisher) Option { return func(a *App) { a.publisher = p } }

func NewApp(store orderbook.Store, opts ...Option) *App {
	a := &App{
		store:      store,
		aggregator: orderbook.NewAggregator(store),
		clock:      util.RealClock{},
		logger:     zap.NewNop().Sugar(),
		publisher:  events.NopPublisher{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewOrder builds an order stamped with a fresh id and the app clock. It does not register it.
func (a *App) NewOrder(userID string, price, qty decimal.Decimal, side orderbook.Side) orderbook.Order {
	return orderbook.NewOrder(userID, price, qty, side, a.clock.Now())
}

func (a *App) RegisterOrder(o orderbook.Order) error {
	if err := o.Validate(); err != nil {
		a.reject(o, err)
		return fmt.Errorf("register order: %w", err)
	}
	if err := a.store.Register(o); err != nil {
		return fmt.Errorf("register order %s: %w", o.ID, err)
	}

	a.logger.Infow("order_registered",
		"order_id", o.ID,
		"user_id", o.UserID,
		"side", o.Side,
		"price_per_kg", o.PricePerKg,
		"quantity_kg", o.QuantityKg,
	)
	if a.metrics != nil {
		a.metrics.OrdersRegistered.WithLabelValues(o.Side.String()).Inc()
	}
	a.publisher.Publish(events.Event{Type: events.OrderRegistered, Order: o, At: a.clock.Now()})
	a.changed(o.Side)
	return nil
}

// CancelOrder removes the live order with o's id. Only the id is consulted,
// and cancelling an order that is not live is not an error.
func (a *App) CancelOrder(o orderbook.Order) error {
	removed, ok, err := a.store.Cancel(o)
	if err != nil {
		return fmt.Errorf("cancel order %s: %w", o.ID, err)
	}
	if !ok {
		a.logger.Debugw("cancel_miss", "order_id", o.ID)
		if a.metrics != nil {
			a.metrics.CancelMisses.Inc()
		}
		return nil
	}

	a.logger.Infow("order_cancelled", "order_id", removed.ID, "user_id", removed.UserID, "side", removed.Side)
	if a.metrics != nil {
		a.metrics.OrdersCancelled.WithLabelValues(removed.Side.String()).Inc()
	}
	a.publisher.Publish(events.Event{Type: events.OrderCancelled, Order: removed, At: a.clock.Now()})
	a.changed(removed.Side)
	return nil
}

func (a *App) CancelOrderByID(id string) error {
	return a.CancelOrder(orderbook.Order{ID: id})
}

func (a *App) GetLiveOrders(side orderbook.Side) ([]orderbook.Order, error) {
	if !side.Valid() {
		return nil, fmt.Errorf("%w: %d", orderbook.ErrUnknownSide, int8(side))
	}
	orders, err := a.aggregator.AllLive(side)
	if err != nil {
		return nil, fmt.Errorf("live orders %s: %w", side, err)
	}
	if a.metrics != nil {
		a.metrics.LiveOrders.WithLabelValues(side.String()).Set(float64(len(orders)))
	}
	return orders, nil
}

func (a *App) GetSummary(side orderbook.Side) ([]orderbook.AggregateRow, error) {
	if !side.Valid() {
		return nil, fmt.Errorf("%w: %d", orderbook.ErrUnknownSide, int8(side))
	}
	start := time.Now()
	rows, err := a.aggregator.Summarize(side)
	if err != nil {
		return nil, fmt.Errorf("summary %s: %w", side, err)
	}
	elapsed := time.Since(start)
	if a.metrics != nil {
		a.metrics.SummaryDuration.WithLabelValues(side.String()).Observe(elapsed.Seconds())
	}
	a.logger.Debugw("summary_computed", "side", side, "rows", len(rows), "took", elapsed)
	return rows, nil
}

func (a *App) reject(o orderbook.Order, err error) {
	reason := rejectReason(err)
	a.logger.Warnw("order_rejected", "order_id", o.ID, "user_id", o.UserID, "reason", reason, "err", err)
	if a.metrics != nil {
		a.metrics.OrdersRejected.WithLabelValues(reason).Inc()
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, orderbook.ErrMissingID):
		return "missing_id"
	case errors.Is(err, orderbook.ErrMissingUser):
		return "missing_user"
	case errors.Is(err, orderbook.ErrUnknownSide):
		return "unknown_side"
	case errors.Is(err, orderbook.ErrInvalidPrice):
		return "invalid_price"
	case errors.Is(err, orderbook.ErrInvalidQuantity):
		return "invalid_quantity"
	default:
		return "other"
	}
}

// sizer is implemented by stores that can count a side without copying it.
type sizer interface {
	Len(side orderbook.Side) int
}

func (a *App) changed(side orderbook.Side) {
	if a.metrics != nil {
		if s, ok := a.store.(sizer); ok {
			a.metrics.LiveOrders.WithLabelValues(side.String()).Set(float64(s.Len(side)))
		}
	}
	if a.OnChange != nil {
		a.OnChange(side)
	}
}
