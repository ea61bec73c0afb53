package service

import (
	"errors"

	"github.com/spcfox/sharetext/cache"
	"github.com/spcfox/sharetext/mq"
	"github.com/spcfox/sharetext/opaqueid"
	"github.com/spcfox/sharetext/store"
	"github.com/spcfox/sharetext/worker"
)

type Limits struct {
	MaxNameLength  int
	MaxTitleLength int
	MaxBodyLength  int
	SaltLength     int
}

func DefaultLimits() Limits {
	return Limits{
		MaxNameLength:  100,
		MaxTitleLength: 200,
		MaxBodyLength:  100000,
		SaltLength:     32,
	}
}

type Service struct {
	Store       store.ShareTextStore
	Cache       cache.ShareTextCache
	MQ          mq.MessageQueue
	ViewBatcher *worker.ViewBatcher
	Codec       *opaqueid.Codec
	JWTSecret   []byte
	Limits      Limits
}

func NewService(
	store store.ShareTextStore,
	cache cache.ShareTextCache,
	mq mq.MessageQueue,
	viewBatcher *worker.ViewBatcher,
	codec *opaqueid.Codec,
	jwtSecret []byte,
	limits Limits,
) (*Service, error) {
	if len(jwtSecret) < 32 {
		return nil, errors.New("jwt secret must be at least 32 bytes")
	}
	if codec == nil {
		return nil, errors.New("opaque id codec is required")
	}
	if limits.MaxNameLength <= 0 || limits.MaxTitleLength <= 0 || limits.MaxBodyLength <= 0 {
		return nil, errors.New("length limits must be positive")
	}
	if limits.SaltLength <= 0 {
		return nil, errors.New("salt length must be positive")
	}

	return &Service{
		Store:       store,
		Cache:       cache,
		MQ:          mq,
		ViewBatcher: viewBatcher,
		Codec:       codec,
		JWTSecret:   jwtSecret,
		Limits:      limits,
	}, nil
}
