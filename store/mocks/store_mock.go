package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/spcfox/sharetext/models"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateAccount(ctx context.Context, name string, salt string) (models.Account, error) {
	args := m.Called(ctx, name, salt)
	return args.Get(0).(models.Account), args.Error(1)
}

func (m *MockStore) GetAccount(ctx context.Context, accountId int64) (models.Account, error) {
	args := m.Called(ctx, accountId)
	return args.Get(0).(models.Account), args.Error(1)
}

func (m *MockStore) UpdateAccountName(ctx context.Context, accountId int64, name string) (models.Account, error) {
	args := m.Called(ctx, accountId, name)
	return args.Get(0).(models.Account), args.Error(1)
}

func (m *MockStore) UpdateAccountSalt(ctx context.Context, accountId int64, currentSalt string, newSalt string) (models.Account, error) {
	args := m.Called(ctx, accountId, currentSalt, newSalt)
	return args.Get(0).(models.Account), args.Error(1)
}

func (m *MockStore) DeleteAccount(ctx context.Context, accountId int64) error {
	args := m.Called(ctx, accountId)
	return args.Error(0)
}

func (m *MockStore) CreateText(ctx context.Context, text models.Text) (models.Text, error) {
	args := m.Called(ctx, text)
	return args.Get(0).(models.Text), args.Error(1)
}

func (m *MockStore) GetText(ctx context.Context, textId int64) (models.Text, error) {
	args := m.Called(ctx, textId)
	return args.Get(0).(models.Text), args.Error(1)
}

func (m *MockStore) UpdateText(ctx context.Context, authorId int64, textId int64, title *string, body *string, visibility *models.Visibility) (models.Text, error) {
	args := m.Called(ctx, authorId, textId, title, body, visibility)
	return args.Get(0).(models.Text), args.Error(1)
}

func (m *MockStore) DeleteText(ctx context.Context, authorId int64, textId int64) (models.Text, error) {
	args := m.Called(ctx, authorId, textId)
	return args.Get(0).(models.Text), args.Error(1)
}

func (m *MockStore) ListPublicTexts(ctx context.Context, page int, pageSize int) ([]models.Text, error) {
	args := m.Called(ctx, page, pageSize)
	return args.Get(0).([]models.Text), args.Error(1)
}

func (m *MockStore) ListTextsByAuthor(ctx context.Context, authorId int64, page int, pageSize int) ([]models.Text, error) {
	args := m.Called(ctx, authorId, page, pageSize)
	return args.Get(0).([]models.Text), args.Error(1)
}

func (m *MockStore) GetAuthorTextIds(ctx context.Context, authorId int64) ([]int64, error) {
	args := m.Called(ctx, authorId)
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockStore) DeleteAuthorTexts(ctx context.Context, authorId int64) error {
	args := m.Called(ctx, authorId)
	return args.Error(0)
}

func (m *MockStore) IncrementTextViews(ctx context.Context, textId int64, delta int) error {
	args := m.Called(ctx, textId, delta)
	return args.Error(0)
}
