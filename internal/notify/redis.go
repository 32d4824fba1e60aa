package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"assetledger/internal/core"
)

// DefaultChannel is used when no channel is configured.
const DefaultChannel = "assetledger.notifications"

// Message is the payload published for each committed notification.
type Message struct {
	ID          int64                 `json:"id"`
	UserID      int64                 `json:"user_id"`
	AssetID     *int64                `json:"asset_id,omitempty"`
	Title       string                `json:"title"`
	Message     string                `json:"message"`
	Type        core.NotificationType `json:"type"`
	LinkURL     *string               `json:"link_url,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	PublishedAt time.Time             `json:"published_at"`
}

// RedisPublisher fans committed notifications out over Redis pub/sub.
type RedisPublisher struct {
	rdb     *goredis.Client
	channel string
	log     core.Logger
	now     func() time.Time
}

type Options struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// NewRedisPublisher connects to Redis and verifies the connection.
func NewRedisPublisher(ctx context.Context, opts Options, log core.Logger) (*RedisPublisher, error) {
	if opts.Addr == "" {
		return nil, errors.New("redis address required")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisPublisherFromClient(rdb, opts.Channel, log), nil
}

// NewRedisPublisherFromClient wraps an existing client.
func NewRedisPublisherFromClient(rdb *goredis.Client, channel string, log core.Logger) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	if log == nil {
		log = Noop{}
	}
	return &RedisPublisher{rdb: rdb, channel: channel, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// Channel returns the pub/sub channel notifications are published on.
func (p *RedisPublisher) Channel() string { return p.channel }

// Publish sends one message per notification in a single pipeline.
func (p *RedisPublisher) Publish(ctx context.Context, notifications []core.Notification) error {
	if p == nil || p.rdb == nil {
		return errors.New("redis publisher not initialized")
	}
	if len(notifications) == 0 {
		return nil
	}
	now := p.now()
	_, err := p.rdb.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, n := range notifications {
			raw, err := json.Marshal(toMessage(n, now))
			if err != nil {
				return fmt.Errorf("encode notification %d: %w", n.ID, err)
			}
			pipe.Publish(ctx, p.channel, raw)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	p.log.Debug("notifications published", "channel", p.channel, "count", len(notifications))
	return nil
}

func (p *RedisPublisher) Close() error {
	if p == nil || p.rdb == nil {
		return nil
	}
	return p.rdb.Close()
}

func toMessage(n core.Notification, now time.Time) Message {
	return Message{
		ID:          n.ID,
		UserID:      n.UserID,
		AssetID:     n.AssetID,
		Title:       n.Title,
		Message:     n.Message,
		Type:        n.Type,
		LinkURL:     n.LinkURL,
		CreatedAt:   n.CreatedAt,
		PublishedAt: now,
	}
}
