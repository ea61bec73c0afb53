package api

import (
	"context"
	"log"
	"net/http"

	"github.com/gofrs/uuid/v5"

	"github.com/spcfox/sharetext/api/rest"
	"github.com/spcfox/sharetext/api/ws"
	"github.com/spcfox/sharetext/cache"
	"github.com/spcfox/sharetext/mq"
	"github.com/spcfox/sharetext/opaqueid"
	"github.com/spcfox/sharetext/service"
	"github.com/spcfox/sharetext/store"
	"github.com/spcfox/sharetext/worker"
)

type ShareTextAPI struct {
	restHandler *rest.Handler
	wsHandler   *ws.Handler
	shutdownCtx context.Context
}

func NewShareTextAPI(
	shareTextStore store.ShareTextStore,
	purgeQueue mq.MessageQueue,
	shareTextCache cache.ShareTextCache,
	codec *opaqueid.Codec,
	jwtSecret []byte,
	limits service.Limits,
	shutdownCtx context.Context,
) (*ShareTextAPI, error) {
	wsHub := ws.NewHub(shareTextCache)
	err := wsHub.InitSubscriptions(shutdownCtx)
	if err != nil {
		log.Printf("Failed to start WS Hub subscriptions service: %v", err)
		return &ShareTextAPI{}, err
	}
	go wsHub.Run()

	viewBatcher := worker.NewViewBatcher(shareTextStore, 60000)
	go viewBatcher.Run(shutdownCtx)

	purgeConsumer := worker.NewPurgeConsumer(purgeQueue, shareTextStore, shareTextCache, codec)
	go purgeConsumer.Run(shutdownCtx)

	svc, err := service.NewService(
		shareTextStore,
		shareTextCache,
		purgeQueue,
		viewBatcher,
		codec,
		jwtSecret,
		limits,
	)
	if err != nil {
		log.Printf("Failed to create service: %v", err)
		return &ShareTextAPI{}, err
	}

	restHandler := rest.NewHandler(svc)
	wsHandler := ws.NewHandler(svc, wsHub)

	return &ShareTextAPI{
		restHandler: restHandler,
		wsHandler:   wsHandler,
		shutdownCtx: shutdownCtx,
	}, nil
}

func (shareTextAPI *ShareTextAPI) RegisterRoutes(mux *http.ServeMux, requiredOrigin string) {
	// Health check endpoint (no auth required)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("POST /account/create", withRequestLog(shareTextAPI.restHandler.HandleCreateAccount))
	mux.HandleFunc("GET /account/info", withRequestLog(shareTextAPI.restHandler.HandleAccountInfo))
	mux.HandleFunc("POST /account/edit", withRequestLog(shareTextAPI.restHandler.HandleEditAccount))
	mux.HandleFunc("POST /account/revoke", withRequestLog(shareTextAPI.restHandler.HandleRevokeToken))
	mux.HandleFunc("DELETE /account", withRequestLog(shareTextAPI.restHandler.HandleDeleteAccount))

	mux.HandleFunc("POST /text/create", withRequestLog(shareTextAPI.restHandler.HandleCreateText))
	mux.HandleFunc("GET /text/list", withRequestLog(shareTextAPI.restHandler.HandleTextList))
	mux.HandleFunc("GET /text/user-list", withRequestLog(shareTextAPI.restHandler.HandleUserTextList))
	mux.HandleFunc("GET /text/{textId}", withRequestLog(shareTextAPI.restHandler.HandleGetText))
	mux.HandleFunc("POST /text/edit/{textId}", withRequestLog(shareTextAPI.restHandler.HandleEditText))
	mux.HandleFunc("POST /text/delete/{textId}", withRequestLog(shareTextAPI.restHandler.HandleDeleteText))

	wsUpgrader := shareTextAPI.wsHandler.NewWsUpgrader(requiredOrigin)
	mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		shareTextAPI.wsHandler.ServeWS(wsUpgrader, w, r, shareTextAPI.shutdownCtx)
	})
}

// withRequestLog tags each request with an id so log lines from one call
// can be grouped when several are in flight.
func withRequestLog(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestId, err := uuid.NewV4()
		if err == nil {
			log.Printf("[%s] %s %s", requestId, r.Method, r.URL.Path)
		}
		next(w, r)
	}
}
