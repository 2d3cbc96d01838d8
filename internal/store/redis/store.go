package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/madvpn/internal/domain"
)

// Store handles Redis operations for on-screen notifications.
// Entries only live as long as the notification is displayed.
type Store struct {
	client  *redis.Client
	channel string
}

// NewStore creates a new Redis store publishing on channel
func NewStore(client *redis.Client, channel string) *Store {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Store{
		client:  client,
		channel: channel,
	}
}

// Channel returns the pub/sub channel notifications are published on
func (s *Store) Channel() string {
	return s.channel
}

// ShowNotification publishes n and marks it as the one on screen until its
// display duration runs out. Both writes go through one pipeline.
func (s *Store) ShowNotification(ctx context.Context, n domain.Notification) (int64, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal notification: %w", err)
	}

	ttl := n.Duration
	if ttl <= 0 {
		ttl = time.Second
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, CurrentNotificationKey(), data, ttl)
	if n.Action != "" {
		pipe.Set(ctx, LastActionKey(n.Action.String()), data, ttl)
	}
	published := pipe.Publish(ctx, s.channel, data)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to show notification: %w", err)
	}
	return published.Val(), nil
}

// CurrentNotification returns the notification on screen, or nil when none is.
func (s *Store) CurrentNotification(ctx context.Context) (*domain.Notification, error) {
	return s.get(ctx, CurrentNotificationKey())
}

// LastActionNotification returns the last notification raised by action
// while it is still displayed.
func (s *Store) LastActionNotification(ctx context.Context, action domain.Action) (*domain.Notification, error) {
	return s.get(ctx, LastActionKey(action.String()))
}

// ClearNotification removes the on-screen notification
func (s *Store) ClearNotification(ctx context.Context) error {
	if err := s.client.Del(ctx, CurrentNotificationKey()).Err(); err != nil {
		return fmt.Errorf("failed to clear notification: %w", err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, key string) (*domain.Notification, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // nothing on screen
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}

	var n domain.Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("failed to unmarshal notification: %w", err)
	}
	return &n, nil
}
