package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/spcfox/sharetext/cache"
	"github.com/spcfox/sharetext/mq"
	"github.com/spcfox/sharetext/opaqueid"
	"github.com/spcfox/sharetext/store"
)

type PurgeAccountTextsMessage struct {
	AccountId int64 `json:"accountId"`
}

type textDeletedEvent struct {
	Type   string `json:"type"`
	TextId string `json:"textId"`
}

// PurgeConsumer drains the purge queue: when an account is deleted its
// texts are removed asynchronously, their cache entries dropped and a
// deletion event published for any live watchers.
type PurgeConsumer struct {
	purgeQueue     mq.MessageQueue
	shareTextStore store.ShareTextStore
	shareTextCache cache.ShareTextCache
	codec          *opaqueid.Codec
}

func NewPurgeConsumer(purgeQueue mq.MessageQueue, shareTextStore store.ShareTextStore, shareTextCache cache.ShareTextCache, codec *opaqueid.Codec) *PurgeConsumer {
	return &PurgeConsumer{
		purgeQueue:     purgeQueue,
		shareTextStore: shareTextStore,
		shareTextCache: shareTextCache,
		codec:          codec,
	}
}

// Allow up to 5 minutes for the throttled batch deletion of all the
// account's texts
const visibilityTimeout = 300

func (pc *PurgeConsumer) Run(shutdownCtx context.Context) {
	for {
		msg, err := pc.purgeQueue.Receive(shutdownCtx, visibilityTimeout)

		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			log.Printf("purgeConsumer receive error: %v", err)
			continue
		}

		if msg == nil {
			continue
		}

		var purgeMsg PurgeAccountTextsMessage
		if err := json.Unmarshal([]byte(msg.Body), &purgeMsg); err != nil {
			continue
		}

		// timeout should be a little less than queue visibility timeout
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(visibilityTimeout-1)*time.Second)

		// Collect the ids first: they are needed for cache invalidation
		// and watcher notification after the rows are gone.
		textIds, err := pc.shareTextStore.GetAuthorTextIds(ctx, purgeMsg.AccountId)
		if err != nil {
			log.Printf("Failed to get text ids for account %d: %v", purgeMsg.AccountId, err)
		}

		err = pc.shareTextStore.DeleteAuthorTexts(ctx, purgeMsg.AccountId)

		if err == nil {
			for _, textId := range textIds {
				hashId, encErr := pc.codec.Encode(textId)
				if encErr != nil {
					continue
				}
				if cacheErr := pc.shareTextCache.InvalidateText(ctx, hashId); cacheErr != nil {
					log.Printf("Failed to invalidate text %s: %v", hashId, cacheErr)
				}
				event := textDeletedEvent{Type: "text_deleted", TextId: hashId}
				if eventBytes, marshalErr := json.Marshal(event); marshalErr == nil {
					pc.shareTextCache.Publish(ctx, "text:"+hashId, eventBytes)
				}
			}
			if cacheErr := pc.shareTextCache.BumpPublicListGen(ctx); cacheErr != nil {
				log.Printf("Failed to bump public list generation: %v", cacheErr)
			}
		}

		cancel()

		if err != nil {
			log.Printf("shareTextStore delete account texts error: %v", err)
			continue
		}

		err = pc.purgeQueue.Delete(context.Background(), msg)
		if err != nil {
			log.Printf("purgeConsumer delete error: %v", err)
			continue
		}
	}
}
