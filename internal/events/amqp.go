package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

type ConnectionOptions struct {
	URL           string
	RetryAttempts int
	Delay         time.Duration
	MaxDelay      time.Duration
	Logger        *slog.Logger
}

// DialWithRetry connects with exponential backoff, giving up after
// RetryAttempts or when ctx ends.
func DialWithRetry(ctx context.Context, cfg ConnectionOptions) (*amqp091.Connection, error) {
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	var lastErr error
	sleep := cfg.Delay
	for i := 1; i <= cfg.RetryAttempts; i++ {
		conn, err := amqp091.Dial(cfg.URL)
		if err == nil {
			if i > 1 {
				cfg.Logger.Info("rabbit connected", slog.Int("attempt", i))
			}
			return conn, nil
		}
		lastErr = err
		if i == cfg.RetryAttempts {
			break
		}

		cfg.Logger.Warn("rabbit dial failed",
			slog.Int("attempt", i),
			slog.Duration("sleep", sleep),
			slog.Any("error", err),
		)

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, errors.New("dial cancelled: " + ctx.Err().Error())
		case <-timer.C:
		}

		sleep *= 2
		if cfg.MaxDelay > 0 && sleep > cfg.MaxDelay {
			sleep = cfg.MaxDelay
		}
	}

	return nil, fmt.Errorf("connect to rabbitmq after %d attempts: %w", cfg.RetryAttempts, lastErr)
}

type rmqPublisher struct {
	conn     *amqp091.Connection
	exchange string
	log      *slog.Logger
	now      func() time.Time
}

// NewAMQPPublisher dials the broker and declares exchange as a durable topic
// exchange.
func NewAMQPPublisher(ctx context.Context, cfg ConnectionOptions, exchange string) (Publisher, error) {
	conn, err := DialWithRetry(ctx, cfg)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &rmqPublisher{
		conn:     conn,
		exchange: exchange,
		log:      logger,
		now:      time.Now,
	}, nil
}

func (r *rmqPublisher) Publish(ctx context.Context, key string, msg Envelope) error {
	ch, err := r.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	msgID := msg.Meta.ID
	if msgID == "" {
		msgID = uuid.NewString()
	}
	cid := msgID
	if msg.Meta.CorrelationID != nil {
		cid = *msg.Meta.CorrelationID
	}

	err = ch.PublishWithContext(
		ctx, r.exchange, key, false, false,
		amqp091.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp091.Persistent,
			MessageId:     msgID,
			CorrelationId: cid,
			Type:          msg.Meta.Type,
			Timestamp:     r.now(),
			Body:          body,
		},
	)
	if err == nil {
		r.log.Debug("published", slog.String("key", key), slog.String("exchange", r.exchange))
	}
	return err
}

func (r *rmqPublisher) Close() error {
	return r.conn.Close()
}
