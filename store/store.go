package store

import (
	"context"
	"errors"

	"github.com/spcfox/sharetext/models"
)

type ShareTextStore interface {
	CreateAccount(ctx context.Context, name string, salt string) (models.Account, error)
	GetAccount(ctx context.Context, accountId int64) (models.Account, error)
	UpdateAccountName(ctx context.Context, accountId int64, name string) (models.Account, error)
	// UpdateAccountSalt is a compare-and-swap: it only applies when the
	// stored salt still equals currentSalt, otherwise it fails with
	// ErrConditionFailed. This is what keeps concurrent revocations from
	// silently losing an update.
	UpdateAccountSalt(ctx context.Context, accountId int64, currentSalt string, newSalt string) (models.Account, error)
	DeleteAccount(ctx context.Context, accountId int64) error

	CreateText(ctx context.Context, text models.Text) (models.Text, error)
	GetText(ctx context.Context, textId int64) (models.Text, error)
	UpdateText(ctx context.Context, authorId int64, textId int64, title *string, body *string, visibility *models.Visibility) (models.Text, error)
	DeleteText(ctx context.Context, authorId int64, textId int64) (models.Text, error)
	ListPublicTexts(ctx context.Context, page int, pageSize int) ([]models.Text, error)
	ListTextsByAuthor(ctx context.Context, authorId int64, page int, pageSize int) ([]models.Text, error)

	GetAuthorTextIds(ctx context.Context, authorId int64) ([]int64, error)
	DeleteAuthorTexts(ctx context.Context, authorId int64) error
	IncrementTextViews(ctx context.Context, textId int64, delta int) error
}

// Custom error types for clarity
var (
	ErrItemNotFound    = errors.New("item does not exist")
	ErrConditionFailed = errors.New("condition not met")
)
