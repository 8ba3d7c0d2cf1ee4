package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/yourusername/sldl-jobs/internal/domain"
)

// NewRedisClient constructs a go-redis client for the events publisher
func NewRedisClient(addr string) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

// PingRedis validates the connection
func PingRedis(ctx context.Context, client *redis.Client) error {
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err()
}

const (
	redisQueueSize      = 256
	redisPublishTimeout = 2 * time.Second
)

var (
	// ErrEventDropped is returned when the publish queue is full
	ErrEventDropped = errors.New("redis publish queue full, notification dropped")

	// ErrEmitterClosed is returned by Emit after Close
	ErrEmitterClosed = errors.New("redis emitter closed")
)

// RedisEmitter publishes notifications as JSON on a pub/sub channel. Emit
// only enqueues; a single worker publishes in order so a slow or absent
// broker never blocks the caller.
type RedisEmitter struct {
	client  redis.UniversalClient
	channel string
	logger  *zap.Logger

	queue     chan []byte
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// NewRedisEmitter creates an emitter publishing to channel
func NewRedisEmitter(client redis.UniversalClient, channel string, logger *zap.Logger) *RedisEmitter {
	return newRedisEmitter(client, channel, logger, redisQueueSize)
}

func newRedisEmitter(client redis.UniversalClient, channel string, logger *zap.Logger, queueSize int) *RedisEmitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &RedisEmitter{
		client:  client,
		channel: channel,
		logger:  logger,
		queue:   make(chan []byte, queueSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go e.run()
	return e
}

func (e *RedisEmitter) Emit(ctx context.Context, n domain.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}

	select {
	case <-e.done:
		return ErrEmitterClosed
	default:
	}

	select {
	case e.queue <- payload:
		return nil
	default:
		return ErrEventDropped
	}
}

func (e *RedisEmitter) run() {
	defer close(e.stopped)
	for {
		select {
		case payload := <-e.queue:
			e.publish(context.Background(), payload)
		case <-e.done:
			e.drain()
			return
		}
	}
}

// drain publishes what is still queued, sharing one publish timeout
func (e *RedisEmitter) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), redisPublishTimeout)
	defer cancel()
	for {
		select {
		case payload := <-e.queue:
			if ctx.Err() != nil {
				continue
			}
			e.publish(ctx, payload)
		default:
			return
		}
	}
}

func (e *RedisEmitter) publish(ctx context.Context, payload []byte) {
	ctx, cancel := context.WithTimeout(ctx, redisPublishTimeout)
	defer cancel()
	if err := e.client.Publish(ctx, e.channel, payload).Err(); err != nil {
		e.logger.Debug("Redis publish failed",
			zap.String("channel", e.channel),
			zap.Error(err))
	}
}

// Close flushes queued notifications and releases the client
func (e *RedisEmitter) Close() error {
	var err error
	e.closeOnce.Do(func() {
		close(e.done)
		<-e.stopped
		err = e.client.Close()
	})
	return err
}
