package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/spcfox/sharetext/cache"
	"github.com/spcfox/sharetext/service"
)

type subscription struct {
	client *Client
	textId string
}

// Hub maintains the set of active clients and fans text events out to
// their watchers. Each watched text gets exactly one redis subscription
// no matter how many clients follow it; the subscription is torn down
// when the last watcher leaves.
type Hub struct {
	shareTextCache         cache.ShareTextCache
	OpenCh                 chan *Client
	CloseCh                chan *Client
	SubscribeCh            chan subscription
	UnsubscribeCh          chan subscription
	AccountDeletedCh       chan int64
	accountToClients       map[int64]map[*Client]struct{}
	textToClients          map[string]map[*Client]struct{}
	textToSubscriberCancel map[string]context.CancelFunc
}

func NewHub(shareTextCache cache.ShareTextCache) *Hub {
	return &Hub{
		shareTextCache:         shareTextCache,
		OpenCh:                 make(chan *Client, 256),
		CloseCh:                make(chan *Client, 256),
		SubscribeCh:            make(chan subscription, 1024),
		UnsubscribeCh:          make(chan subscription, 1024),
		AccountDeletedCh:       make(chan int64, 64),
		accountToClients:       make(map[int64]map[*Client]struct{}),
		textToClients:          make(map[string]map[*Client]struct{}),
		textToSubscriberCancel: make(map[string]context.CancelFunc),
	}
}

const (
	maxConnectionsPerAccount      = 3
	maxSubscriptionsPerConnection = 50
)

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.OpenCh:
			// Anonymous watchers are not capped per account, only by the
			// per-connection subscription limit
			if client.accountId == nil {
				continue
			}
			accountId := *client.accountId

			if _, ok := h.accountToClients[accountId]; !ok {
				h.accountToClients[accountId] = make(map[*Client]struct{})
			}

			if len(h.accountToClients[accountId]) >= maxConnectionsPerAccount {
				log.Printf("Account %d reached max connections (%d)", accountId, maxConnectionsPerAccount)
				close(client.Send)
				continue
			}

			h.accountToClients[accountId][client] = struct{}{}

		case client := <-h.CloseCh:
			for textId := range client.subscribedTexts {
				delete(h.textToClients[textId], client)
				if len(h.textToClients[textId]) == 0 {
					if cancel, ok := h.textToSubscriberCancel[textId]; ok {
						cancel()
						delete(h.textToSubscriberCancel, textId)
					}
					delete(h.textToClients, textId)
				}
			}
			if client.accountId != nil {
				accountId := *client.accountId
				delete(h.accountToClients[accountId], client)
				if len(h.accountToClients[accountId]) == 0 {
					delete(h.accountToClients, accountId)
				}
			}

		case sub := <-h.SubscribeCh:
			if len(sub.client.subscribedTexts) >= maxSubscriptionsPerConnection {
				log.Printf("Connection reached max subscriptions (%d)", maxSubscriptionsPerConnection)
				continue
			}
			if h.textToClients[sub.textId] == nil {
				log.Printf("Subscriber does not exist, creating for text: %s", sub.textId)

				ctx, cancel := context.WithCancel(context.Background())
				textId := sub.textId
				channel := "text:" + textId

				err := h.shareTextCache.Subscribe(ctx, channel, func(messageBytes []byte) {
					for client := range h.textToClients[textId] {
						client.Send <- messageBytes
					}
				})
				if err != nil {
					log.Printf("Failed to create redis sub for channel %s: %v", channel, err)
					cancel()
					continue
				}

				h.textToClients[sub.textId] = make(map[*Client]struct{})
				h.textToSubscriberCancel[sub.textId] = cancel
			}
			h.textToClients[sub.textId][sub.client] = struct{}{}
			sub.client.subscribedTexts[sub.textId] = struct{}{}

		case unsub := <-h.UnsubscribeCh:
			delete(h.textToClients[unsub.textId], unsub.client)
			delete(unsub.client.subscribedTexts, unsub.textId)
			if len(h.textToClients[unsub.textId]) == 0 {
				if cancel, ok := h.textToSubscriberCancel[unsub.textId]; ok {
					cancel()
					delete(h.textToSubscriberCancel, unsub.textId)
				}
				delete(h.textToClients, unsub.textId)
			}

		case accountId := <-h.AccountDeletedCh:
			if clients, ok := h.accountToClients[accountId]; ok {
				for client := range clients {
					close(client.Send)
					delete(h.accountToClients[accountId], client)
				}
				delete(h.accountToClients, accountId)
			}
		}
	}
}

func (h *Hub) InitSubscriptions(shutdownCtx context.Context) error {
	err := h.shareTextCache.Subscribe(shutdownCtx, "account-deleted", func(message []byte) {
		var accountDeletedMsg service.AccountDeletedMessage
		if err := json.Unmarshal(message, &accountDeletedMsg); err == nil {
			h.AccountDeletedCh <- accountDeletedMsg.AccountId
		}
	})
	if err != nil {
		log.Printf("WS hub failed to subscribe to account-deleted: %v", err)
		return err
	}

	return nil
}
