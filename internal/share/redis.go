// Package share implements the native-share and clipboard capabilities
// used by the exporter.
package share

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/tendant/tryon-pipeline/internal/export"
)

// DefaultChannel is where share notices are published
const DefaultChannel = "tryon:shares"

// RedisConfig configures the redis share target
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	Channel  string
}

// Envelope is a shared result as stored under its key
type Envelope struct {
	ID        string    `msgpack:"id"`
	Title     string    `msgpack:"title"`
	Text      string    `msgpack:"text"`
	FileName  string    `msgpack:"file_name"`
	MimeType  string    `msgpack:"mime_type"`
	Data      []byte    `msgpack:"data"`
	CreatedAt time.Time `msgpack:"created_at"`
}

// Notice announces a new share on the channel
type Notice struct {
	ID       string `msgpack:"id"`
	Key      string `msgpack:"key"`
	Title    string `msgpack:"title"`
	FileName string `msgpack:"file_name"`
}

// redisClient is the subset of *redis.Client used for sharing
type redisClient interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// RedisSharer shares results by storing them in redis and publishing a notice
type RedisSharer struct {
	client  redisClient
	ttl     time.Duration
	channel string
	logger  *zap.Logger
	now     func() time.Time
}

// NewRedisSharer connects to redis. An empty Addr yields a sharer that reports unavailable.
func NewRedisSharer(cfg RedisConfig, logger *zap.Logger) *RedisSharer {
	var client redisClient
	if cfg.Addr != "" {
		client = redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
	}
	return newRedisSharer(client, cfg, logger)
}

func newRedisSharer(client redisClient, cfg RedisConfig, logger *zap.Logger) *RedisSharer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	return &RedisSharer{
		client:  client,
		ttl:     cfg.TTL,
		channel: cfg.Channel,
		logger:  logger,
		now:     time.Now,
	}
}

// Available reports whether a redis target is configured
func (s *RedisSharer) Available() bool {
	return s.client != nil
}

// Ping checks connectivity
func (s *RedisSharer) Ping(ctx context.Context) error {
	if s.client == nil {
		return export.ErrShareUnavailable
	}
	return s.client.Ping(ctx).Err()
}

// Share stores p under share:<id> and publishes a notice for it
func (s *RedisSharer) Share(ctx context.Context, p export.Payload) error {
	if s.client == nil {
		return export.ErrShareUnavailable
	}

	id := uuid.NewString()
	key := "share:" + id
	data, err := msgpack.Marshal(&Envelope{
		ID:        id,
		Title:     p.Title,
		Text:      p.Text,
		FileName:  p.File.Name,
		MimeType:  p.File.MimeType,
		Data:      p.File.Data,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode share: %w", err)
	}
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store share: %w", err)
	}

	notice, err := msgpack.Marshal(&Notice{ID: id, Key: key, Title: p.Title, FileName: p.File.Name})
	if err != nil {
		return fmt.Errorf("failed to encode notice: %w", err)
	}
	if err := s.client.Publish(ctx, s.channel, notice).Err(); err != nil {
		return fmt.Errorf("failed to publish share: %w", err)
	}

	s.logger.Info("result shared", zap.String("key", key), zap.String("channel", s.channel))
	return nil
}

// Close releases the redis connection
func (s *RedisSharer) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// DecodeEnvelope decodes a stored share
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// DecodeNotice decodes a published notice
func DecodeNotice(data []byte) (*Notice, error) {
	var n Notice
	if err := msgpack.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	return &n, nil
}
