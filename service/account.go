package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spcfox/sharetext/models"
	"github.com/spcfox/sharetext/store"
	"github.com/spcfox/sharetext/worker"
)

type AccountDeletedMessage struct {
	AccountId int64 `json:"accountId"`
}

// CreateAccount registers a display name and hands back the only
// credential the account will ever have: a signed token. There is no
// password; whoever holds a valid token is the account.
func (s *Service) CreateAccount(ctx context.Context, name string) (models.Account, string, error) {
	name, err := s.prepareName(name)
	if err != nil {
		return models.Account{}, "", err
	}

	salt, err := s.generateSalt()
	if err != nil {
		return models.Account{}, "", err
	}

	account, err := s.Store.CreateAccount(ctx, name, salt)
	if err != nil {
		return models.Account{}, "", fmt.Errorf("create account failed: %w", err)
	}

	token, err := s.CreateToken(account)
	if err != nil {
		return models.Account{}, "", err
	}

	return account, token, nil
}

func (s *Service) GetAccountInfo(ctx context.Context, token string) (models.Account, error) {
	return s.AuthenticateToken(ctx, token)
}

func (s *Service) EditAccountName(ctx context.Context, token string, name string) (models.Account, error) {
	account, err := s.AuthenticateToken(ctx, token)
	if err != nil {
		return models.Account{}, err
	}

	name, err = s.prepareName(name)
	if err != nil {
		return models.Account{}, err
	}

	updated, err := s.Store.UpdateAccountName(ctx, account.Id, name)
	if err != nil {
		if errors.Is(err, store.ErrItemNotFound) {
			return models.Account{}, fmt.Errorf("%w: account removed", ErrInvalidToken)
		}
		return models.Account{}, fmt.Errorf("update name failed: %w", err)
	}

	return updated, nil
}

// RevokeToken rotates the account's salt and returns a token bound to the
// new one. Every previously issued token dies with the old salt; no
// blacklist, no per-token state.
func (s *Service) RevokeToken(ctx context.Context, token string) (string, error) {
	account, err := s.AuthenticateToken(ctx, token)
	if err != nil {
		return "", err
	}

	account, err = s.rotateSalt(ctx, account)
	if err != nil {
		return "", err
	}

	return s.CreateToken(account)
}

func (s *Service) DeleteAccount(ctx context.Context, token string) error {
	account, err := s.AuthenticateToken(ctx, token)
	if err != nil {
		return err
	}

	if err := s.Store.DeleteAccount(ctx, account.Id); err != nil {
		if errors.Is(err, store.ErrItemNotFound) {
			return fmt.Errorf("%w: account removed", ErrInvalidToken)
		}
		return fmt.Errorf("delete account failed: %w", err)
	}

	// Async side-effects - return to caller as soon as the store
	// operation is done
	go func() {
		deletedMsg := AccountDeletedMessage{AccountId: account.Id}
		if deletedMsgBytes, err := json.Marshal(deletedMsg); err == nil {
			s.Cache.Publish(context.Background(), "account-deleted", deletedMsgBytes)
		}

		purgeMsg := worker.PurgeAccountTextsMessage{AccountId: account.Id}
		if purgeMsgBytes, err := json.Marshal(purgeMsg); err == nil {
			s.MQ.Send(context.Background(), string(purgeMsgBytes))
		}
	}()

	return nil
}
