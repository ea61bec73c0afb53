package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	cachemocks "github.com/spcfox/sharetext/cache/mocks"
	mqmocks "github.com/spcfox/sharetext/mq/mocks"
	"github.com/spcfox/sharetext/opaqueid"
	"github.com/spcfox/sharetext/service"
	storemocks "github.com/spcfox/sharetext/store/mocks"
	"github.com/spcfox/sharetext/worker"
)

// Helper to setup the service with mocks
func setupService(t *testing.T) (*service.Service, *storemocks.MockStore, *cachemocks.MockCache, *mqmocks.MockMQ, *worker.ViewBatcher) {
	mockStore := new(storemocks.MockStore)
	mockCache := new(cachemocks.MockCache)
	mockMQ := new(mqmocks.MockMQ)

	// Real batcher; tests verify items are pushed to its channel
	viewBatcher := worker.NewViewBatcher(mockStore, 1000)

	codec, err := opaqueid.NewCodec("test-salt")
	assert.NoError(t, err)

	svc, err := service.NewService(
		mockStore,
		mockCache,
		mockMQ,
		viewBatcher,
		codec,
		[]byte("0123456789abcdef0123456789abcdef"),
		service.DefaultLimits(),
	)
	assert.NoError(t, err)

	return svc, mockStore, mockCache, mockMQ, viewBatcher
}

// Helper that creates a channel and wraps a mock call to signal when it's called
func wrapMockWithSignal(call *mock.Call) chan struct{} {
	done := make(chan struct{})
	call.Run(func(args mock.Arguments) {
		close(done)
	})
	return done
}
