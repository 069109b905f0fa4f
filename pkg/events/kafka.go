package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaConfig struct {
	Brokers    []string
	Topic      string
	BufferSize int           // pending events before Publish starts dropping
	Timeout    time.Duration // per write
}

// KafkaPublisher writes events keyed by order id from a single background worker.
type KafkaPublisher struct {
	writer  messageWriter
	queue   chan Event
	timeout time.Duration
	logger  *zap.SugaredLogger

	// OnDrop is called when the buffer is full and an event is discarded.
	OnDrop func(Event)

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewKafkaPublisher(cfg KafkaConfig, logger *zap.SugaredLogger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		BatchTimeout: 10 * time.Millisecond,
	}
	return newKafkaPublisher(w, cfg, logger)
}

func newKafkaPublisher(w messageWriter, cfg KafkaConfig, logger *zap.SugaredLogger) *KafkaPublisher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1024
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	p := &KafkaPublisher{
		writer:  w,
		queue:   make(chan Event, cfg.BufferSize),
		timeout: cfg.Timeout,
		logger:  logger,
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// Publish queues e without blocking. Events published after Close are dropped.
func (p *KafkaPublisher) Publish(e Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.queue <- e:
	default:
		if p.OnDrop != nil {
			p.OnDrop(e)
		}
		p.logger.Warnw("order_event_dropped", "type", e.Type, "order_id", e.Order.ID)
	}
}

func (p *KafkaPublisher) run() {
	defer close(p.done)
	for e := range p.queue {
		value, err := json.Marshal(e)
		if err != nil {
			p.logger.Errorw("order_event_encode_failed", "order_id", e.Order.ID, "err", err)
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		err = p.writer.WriteMessages(ctx, kafka.Message{
			Key:   []byte(e.Order.ID),
			Value: value,
		})
		cancel()
		if err != nil {
			p.logger.Errorw("order_event_publish_failed", "type", e.Type, "order_id", e.Order.ID, "err", err)
		}
	}
}

// Close drains queued events and closes the writer.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	<-p.done
	return p.writer.Close()
}
