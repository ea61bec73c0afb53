package main

import (
	"context"
	"encoding/base64"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/spcfox/sharetext/api"
	"github.com/spcfox/sharetext/cache/redis"
	"github.com/spcfox/sharetext/mq/sqsmq"
	"github.com/spcfox/sharetext/opaqueid"
	"github.com/spcfox/sharetext/service"
	"github.com/spcfox/sharetext/store/dynamo"
)

const (
	DynamoDBTable        = "ShareText"
	SQSPurgeAccountQueue = "PurgeAccountTextsQueue"
)

func main() {
	// Local runs keep settings in a .env file; deployed environments
	// inject real env vars and have no file to load
	godotenv.Load()

	ctx := context.Background()
	devMode := os.Getenv("DEV_MODE") == "true"

	shareTextStore, err := dynamo.NewDynamoShareTextStore(ctx, devMode, os.Getenv("DYNAMODB_ENDPOINT"), DynamoDBTable)
	if err != nil {
		log.Fatalf("Failed to create dynamodb store: %v", err)
	}

	purgeQueue, err := sqsmq.NewSQSMessageQueue(ctx, devMode, os.Getenv("SQS_ENDPOINT"), SQSPurgeAccountQueue)
	if err != nil {
		log.Fatalf("Failed to create SQS MQ: %v", err)
	}

	shareTextCache, err := redis.NewRedisShareTextCache(ctx, devMode, os.Getenv("REDIS_ENDPOINT"))
	if err != nil {
		log.Fatalf("Failed to create redis cache: %v", err)
	}

	jwtSecret, err := base64.StdEncoding.DecodeString(os.Getenv("JWT_SECRET"))
	if err != nil {
		log.Fatalf("Failed to decode base64 jwtSecret: %v", err)
	}

	codec, err := opaqueid.NewCodec(os.Getenv("HASHID_SALT"))
	if err != nil {
		log.Fatalf("Failed to create opaque id codec: %v", err)
	}

	limits := service.DefaultLimits()
	if v := os.Getenv("MAX_BODY_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limits.MaxBodyLength = n
		}
	}

	shutdownCtx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	shareTextApi, err := api.NewShareTextAPI(shareTextStore, purgeQueue, shareTextCache, codec, jwtSecret, limits, shutdownCtx)
	if err != nil {
		log.Fatalf("Failed to create sharetext api: %v", err)
	}

	mux := http.NewServeMux()
	shareTextApi.RegisterRoutes(mux, os.Getenv("ALLOWED_ORIGIN"))

	hostPort := "8080"
	if p := os.Getenv("HOST_PORT"); p != "" {
		hostPort = p
	}
	log.Printf("Starting server on host port: %s\n", hostPort)
	log.Fatal(http.ListenAndServe(":"+hostPort, mux))
}
