package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisShareTextCache struct {
	client redis.UniversalClient
}

func NewRedisShareTextCache(ctx context.Context, devMode bool, redis_endpoint string) (*RedisShareTextCache, error) {
	var client redis.UniversalClient
	if devMode {
		client = redis.NewClient(&redis.Options{
			Addr: redis_endpoint,
		})
	} else {
		client = redis.NewClient(&redis.Options{
			Addr: redis_endpoint,
			// AWS elasticache endpoints require TLS
			TLSConfig: &tls.Config{},
		})
	}

	err := client.Ping(ctx).Err()
	if err != nil {
		return nil, err
	}

	return &RedisShareTextCache{client: client}, nil
}

func (redisCache *RedisShareTextCache) Publish(ctx context.Context, channel string, message []byte) error {
	if err := redisCache.client.Publish(ctx, channel, message).Err(); err != nil {
		return err
	}
	return nil
}

func (redisCache *RedisShareTextCache) Subscribe(ctx context.Context, channel string, handler func(message []byte)) error {
	pubsub := redisCache.client.Subscribe(ctx, channel)
	// Ensure subscription is established
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		log.Printf("Pubsub channel closed: %s", channel)
		return err
	}

	ch := pubsub.Channel()

	go func() {
		defer pubsub.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				handler([]byte(msg.Payload))
			}
		}
	}()

	return nil
}

// Hash tags keep each text's keys in one cluster slot
func buildTextKey(hashId string) string {
	return "text:{" + hashId + "}"
}

const (
	textTTL = 10 * time.Minute

	// List pages go stale on any public mutation, so they live short and
	// are versioned by a generation counter. Bumping the counter orphans
	// every cached page at once; the orphans simply expire.
	listPageTTL = 60 * time.Second

	publicListGenKey = "texts:public:gen"
)

func (redisCache *RedisShareTextCache) GetText(ctx context.Context, hashId string) ([]byte, error) {
	data, err := redisCache.client.Get(ctx, buildTextKey(hashId)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Not cached
		}
		return nil, err
	}
	return data, nil
}

func (redisCache *RedisShareTextCache) SetText(ctx context.Context, hashId string, data []byte) error {
	return redisCache.client.Set(ctx, buildTextKey(hashId), data, textTTL).Err()
}

func (redisCache *RedisShareTextCache) InvalidateText(ctx context.Context, hashId string) error {
	return redisCache.client.Del(ctx, buildTextKey(hashId)).Err()
}

func (redisCache *RedisShareTextCache) publicListGen(ctx context.Context) (int64, error) {
	gen, err := redisCache.client.Get(ctx, publicListGenKey).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, err
	}
	return gen, nil
}

func buildListPageKey(gen int64, page int, pageSize int) string {
	return fmt.Sprintf("texts:public:%d:%d:%d", gen, page, pageSize)
}

func (redisCache *RedisShareTextCache) GetPublicListPage(ctx context.Context, page int, pageSize int) ([]byte, error) {
	gen, err := redisCache.publicListGen(ctx)
	if err != nil {
		return nil, err
	}

	data, err := redisCache.client.Get(ctx, buildListPageKey(gen, page, pageSize)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Not cached
		}
		return nil, err
	}
	return data, nil
}

func (redisCache *RedisShareTextCache) SetPublicListPage(ctx context.Context, page int, pageSize int, data []byte) error {
	gen, err := redisCache.publicListGen(ctx)
	if err != nil {
		return err
	}

	return redisCache.client.Set(ctx, buildListPageKey(gen, page, pageSize), data, listPageTTL).Err()
}

func (redisCache *RedisShareTextCache) BumpPublicListGen(ctx context.Context) error {
	return redisCache.client.Incr(ctx, publicListGenKey).Err()
}
