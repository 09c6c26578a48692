// Package events carries the outbound boundary to the live-update fan-out.
// Notification is best-effort: a failure here never affects an
// already-committed transfer and is never retried.
package events

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// TransactionSentChannel is the pub/sub channel committed transaction ids are
// published to.
const TransactionSentChannel = "transactions.sent"

type Notifier interface {
	TransactionSent(ctx context.Context, transactionID string) error
}

// RedisNotifier publishes committed transaction ids over Redis pub/sub.
type RedisNotifier struct {
	client *redis.Client
	logger zerolog.Logger
}

func NewRedisNotifier(client *redis.Client, logger zerolog.Logger) *RedisNotifier {
	return &RedisNotifier{
		client: client,
		logger: logger,
	}
}

func (n *RedisNotifier) TransactionSent(ctx context.Context, transactionID string) error {
	if err := n.client.Publish(ctx, TransactionSentChannel, transactionID).Err(); err != nil {
		n.logger.Warn().Err(err).Str("transaction_id", transactionID).Msg("Failed to publish transaction event")
		return fmt.Errorf("publish transaction event: %w", err)
	}

	n.logger.Debug().Str("transaction_id", transactionID).Msg("Published transaction event")
	return nil
}

// NopNotifier is used when no pub/sub backend is configured.
type NopNotifier struct{}

func (NopNotifier) TransactionSent(ctx context.Context, transactionID string) error {
	return nil
}
