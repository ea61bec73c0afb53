package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/spcfox/sharetext/models"
	"github.com/spcfox/sharetext/service"
	storemocks "github.com/spcfox/sharetext/store/mocks"
)

func TestCreateAccount_NameValidation(t *testing.T) {
	svc, _, _, _, _ := setupService(t)
	ctx := context.Background()

	_, _, err := svc.CreateAccount(ctx, "")
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	_, _, err = svc.CreateAccount(ctx, "   \t\n  ")
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	_, _, err = svc.CreateAccount(ctx, strings.Repeat("x", 101))
	assert.ErrorIs(t, err, service.ErrInvalidInput)
	assert.Contains(t, err.Error(), "maximum 100 characters")
}

func TestCreateAccount_NameTrimmed(t *testing.T) {
	svc, mockStore, _, _, _ := setupService(t)
	ctx := context.Background()

	created := models.Account{Id: 1, Name: "alice", Salt: "whatever"}
	mockStore.On("CreateAccount", ctx, "alice", mock.MatchedBy(func(salt string) bool {
		return len(salt) == 32
	})).Return(created, nil)

	account, token, err := svc.CreateAccount(ctx, "  alice  ")
	assert.NoError(t, err)
	assert.Equal(t, "alice", account.Name)
	assert.NotEmpty(t, token)
}

func authedAccount(t *testing.T, svc *service.Service, mockStore *storemocks.MockStore, id int64) (models.Account, string) {
	account := models.Account{Id: id, Name: "author", Salt: "salt"}
	token, err := svc.CreateToken(account)
	assert.NoError(t, err)
	mockStore.On("GetAccount", mock.Anything, id).Return(account, nil)
	return account, token
}

func TestCreateText_TitleValidation(t *testing.T) {
	svc, mockStore, _, _, _ := setupService(t)
	ctx := context.Background()

	_, token := authedAccount(t, svc, mockStore, 1)

	_, err := svc.CreateText(ctx, token, "", "body", models.VisibilityPublic)
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	_, err = svc.CreateText(ctx, token, strings.Repeat("t", 201), "body", models.VisibilityPublic)
	assert.ErrorIs(t, err, service.ErrInvalidInput)
	assert.Contains(t, err.Error(), "maximum 200 characters")
}

// A body far longer than the title limit is fine; the body is checked
// against its own limit only.
func TestCreateText_LongBodyWithinBodyLimit(t *testing.T) {
	svc, mockStore, mockCache, _, _ := setupService(t)
	ctx := context.Background()

	account, token := authedAccount(t, svc, mockStore, 1)
	body := strings.Repeat("b", 5000)

	created := models.Text{
		Id:         10,
		Title:      "title",
		Body:       body,
		AuthorId:   account.Id,
		AuthorName: account.Name,
		Visibility: models.VisibilityUnlisted,
	}
	mockStore.On("CreateText", ctx, mock.MatchedBy(func(text models.Text) bool {
		return text.Body == body && text.AuthorId == account.Id
	})).Return(created, nil)
	mockCache.On("BumpPublicListGen", mock.Anything).Return(nil)

	hashId, err := svc.CreateText(ctx, token, "title", body, models.VisibilityUnlisted)
	assert.NoError(t, err)
	assert.NotEmpty(t, hashId)
}

func TestCreateText_BodyOverLimit(t *testing.T) {
	svc, mockStore, _, _, _ := setupService(t)
	ctx := context.Background()

	_, token := authedAccount(t, svc, mockStore, 1)

	_, err := svc.CreateText(ctx, token, "title", strings.Repeat("b", 100001), models.VisibilityPublic)
	assert.ErrorIs(t, err, service.ErrInvalidInput)
	assert.Contains(t, err.Error(), "maximum 100000 characters")
}

func TestCreateText_BlankBody(t *testing.T) {
	svc, mockStore, _, _, _ := setupService(t)
	ctx := context.Background()

	_, token := authedAccount(t, svc, mockStore, 1)

	_, err := svc.CreateText(ctx, token, "title", "   ", models.VisibilityPublic)
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

// Rune count, not byte count: multibyte names at the limit pass.
func TestCreateAccount_MultibyteNameAtLimit(t *testing.T) {
	svc, mockStore, _, _, _ := setupService(t)
	ctx := context.Background()

	name := strings.Repeat("я", 100)
	created := models.Account{Id: 2, Name: name, Salt: "s"}
	mockStore.On("CreateAccount", ctx, name, mock.Anything).Return(created, nil)

	_, _, err := svc.CreateAccount(ctx, name)
	assert.NoError(t, err)
}
