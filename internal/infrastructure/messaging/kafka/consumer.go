package kafka

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/dtiscope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/dtiscope/pkg/errors"
)

var (
	ErrAlreadyRunning = errors.New(errors.ErrCodeConflict, "consumer already running")
	ErrConsumerClosed = errors.New(errors.ErrCodeInternal, "consumer closed")
)

// EventHandler receives decoded envelopes.  A non-nil error stops Run.
type EventHandler func(ctx context.Context, env *EventEnvelope) error

// ConsumerConfig holds configuration for the Consumer.
type ConsumerConfig struct {
	Brokers []string
	Topic   string
	// GroupID enables committed offsets.  Empty means an ungrouped reader
	// starting at StartOffset.
	GroupID string
	// FromBeginning reads the whole topic instead of only new events.
	FromBeginning bool
	// EventTypes filters envelopes; empty accepts all.
	EventTypes []string
	MaxWait    time.Duration
}

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer tails the events topic.
type Consumer struct {
	reader  ReaderInterface
	config  ConsumerConfig
	logger  logging.Logger
	filter  map[string]struct{}
	running atomic.Bool
	closed  atomic.Bool

	consumed atomic.Int64
	skipped  atomic.Int64
}

// NewConsumer creates a Consumer.
func NewConsumer(cfg ConsumerConfig, logger logging.Logger) (*Consumer, error) {
	if err := ValidateConsumerConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.MaxWait == 0 {
		cfg.MaxWait = time.Second
	}
	start := kafka.LastOffset
	if cfg.FromBeginning {
		start = kafka.FirstOffset
	}
	rc := kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		MaxWait:     cfg.MaxWait,
		StartOffset: start,
	}
	if cfg.GroupID != "" {
		rc.GroupID = cfg.GroupID
		rc.GroupTopics = []string{cfg.Topic}
	} else {
		rc.Topic = cfg.Topic
	}
	return newConsumerWithReader(kafka.NewReader(rc), cfg, logger), nil
}

func newConsumerWithReader(r ReaderInterface, cfg ConsumerConfig, logger logging.Logger) *Consumer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	c := &Consumer{reader: r, config: cfg, logger: logger.Named("kafka")}
	if len(cfg.EventTypes) > 0 {
		c.filter = make(map[string]struct{}, len(cfg.EventTypes))
		for _, t := range cfg.EventTypes {
			c.filter[t] = struct{}{}
		}
	}
	return c
}

// Run fetches messages until ctx is cancelled, the handler fails or the
// consumer is closed.  Messages that do not decode are logged and skipped.
// Cancellation returns nil.
func (c *Consumer) Run(ctx context.Context, handler EventHandler) error {
	if c.closed.Load() {
		return ErrConsumerClosed
	}
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer c.running.Store(false)

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || c.closed.Load() {
				return nil
			}
			return errors.Wrap(err, errors.ErrCodeExternalService, "kafka fetch failed")
		}
		c.consumed.Add(1)

		env, err := MessageToEventEnvelope(m)
		switch {
		case err != nil:
			c.skipped.Add(1)
			c.logger.WithError(err).Warn("skipping undecodable message", logging.Int64("offset", m.Offset))
		case !c.accepts(env.EventType):
			c.skipped.Add(1)
		default:
			if err := handler(ctx, env); err != nil {
				return err
			}
		}

		if c.config.GroupID != "" {
			if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
				c.logger.WithError(err).Warn("commit failed", logging.Int64("offset", m.Offset))
			}
		}
	}
}

func (c *Consumer) accepts(eventType string) bool {
	if c.filter == nil {
		return true
	}
	_, ok := c.filter[eventType]
	return ok
}

// Consumed returns the number of messages fetched.
func (c *Consumer) Consumed() int64 { return c.consumed.Load() }

// Skipped returns the number of messages filtered out or undecodable.
func (c *Consumer) Skipped() int64 { return c.skipped.Load() }

// Close closes the reader.
func (c *Consumer) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := c.reader.Close()
	c.logger.Info("kafka consumer closed", logging.Int64("consumed", c.consumed.Load()))
	return err
}

// ValidateConsumerConfig validates configuration.
func ValidateConsumerConfig(cfg ConsumerConfig) error {
	if len(cfg.Brokers) == 0 {
		return errors.New(errors.ErrCodeValidation, "brokers required")
	}
	return nil
}

//Personal.AI order the ending
