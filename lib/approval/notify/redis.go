package approvalnotify

import (
	"context"
	"encoding/json"
	"time"

	"approvals-backend/lib/utils/helpers"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	recentEventsLimit = 100
	DefaultChannel    = "approvals:changed"
)

// NewRedisClient parses url and checks the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err = client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "connect to redis")
	}
	return client, nil
}

// NewRedisPublisher publishes events on channel and keeps the latest ones in
// the <channel>:recent list for consumers that reconnect. A blank channel falls back to DefaultChannel.
func NewRedisPublisher(client *redis.Client, channel string) Provider {
	return &redisPublisher{
		client:  client,
		channel: helpers.TrimmedOrDefault(channel, DefaultChannel),
	}
}

type redisPublisher struct {
	client  *redis.Client
	channel string
}

func (p redisPublisher) RecentKey() string {
	return p.channel + ":recent"
}

func (p redisPublisher) ApprovalChanged(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal approval event")
	}
	_, err = p.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Publish(ctx, p.channel, payload)
		pipe.LPush(ctx, p.RecentKey(), payload)
		pipe.LTrim(ctx, p.RecentKey(), 0, recentEventsLimit-1)
		return nil
	})
	return errors.Wrap(err, "publish approval event")
}
