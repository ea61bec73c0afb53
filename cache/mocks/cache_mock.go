package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Publish(ctx context.Context, channel string, message []byte) error {
	args := m.Called(ctx, channel, message)
	return args.Error(0)
}

func (m *MockCache) Subscribe(ctx context.Context, channel string, handler func(message []byte)) error {
	args := m.Called(ctx, channel, handler)
	return args.Error(0)
}

func (m *MockCache) GetText(ctx context.Context, hashId string) ([]byte, error) {
	args := m.Called(ctx, hashId)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCache) SetText(ctx context.Context, hashId string, data []byte) error {
	args := m.Called(ctx, hashId, data)
	return args.Error(0)
}

func (m *MockCache) InvalidateText(ctx context.Context, hashId string) error {
	args := m.Called(ctx, hashId)
	return args.Error(0)
}

func (m *MockCache) GetPublicListPage(ctx context.Context, page int, pageSize int) ([]byte, error) {
	args := m.Called(ctx, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCache) SetPublicListPage(ctx context.Context, page int, pageSize int, data []byte) error {
	args := m.Called(ctx, page, pageSize, data)
	return args.Error(0)
}

func (m *MockCache) BumpPublicListGen(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
