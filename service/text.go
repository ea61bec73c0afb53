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

// TextView is the outward shape of a text: the numeric id is replaced by
// its opaque encoding and CanEdit tells the client whether to show edit
// affordances for the requester that performed the read.
type TextView struct {
	TextId     string `json:"textId"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	Author     string `json:"author"`
	Visibility string `json:"visibility"`
	Views      int64  `json:"views"`
	CreatedAt  int64  `json:"createdAt"`
	EditedAt   int64  `json:"editedAt"`
	CanEdit    bool   `json:"canEdit"`
}

type TextEvent struct {
	Type       string `json:"type"`
	TextId     string `json:"textId"`
	Title      string `json:"title,omitempty"`
	Visibility string `json:"visibility,omitempty"`
	EditedAt   int64  `json:"editedAt,omitempty"`
}

// optionalRequester resolves an optional token. No token means an
// anonymous requester; a present but invalid token is an error rather
// than a silent downgrade to anonymous.
func (s *Service) optionalRequester(ctx context.Context, token string) (*int64, error) {
	if len(token) == 0 {
		return nil, nil
	}
	account, err := s.AuthenticateToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return &account.Id, nil
}

func (s *Service) decodeTextId(hashId string) (int64, error) {
	textId, err := s.Codec.Decode(hashId)
	if err != nil {
		return 0, fmt.Errorf("%w: text %q", ErrNotFound, hashId)
	}
	return textId, nil
}

func (s *Service) textView(text models.Text, requesterId *int64) (TextView, error) {
	hashId, err := s.Codec.Encode(text.Id)
	if err != nil {
		return TextView{}, fmt.Errorf("encode text id failed: %w", err)
	}
	return TextView{
		TextId:     hashId,
		Title:      text.Title,
		Body:       text.Body,
		Author:     text.AuthorName,
		Visibility: text.Visibility.String(),
		Views:      text.Views,
		CreatedAt:  text.CreatedAt,
		EditedAt:   text.EditedAt,
		CanEdit:    CanEdit(requesterId, text),
	}, nil
}

func (s *Service) textViews(texts []models.Text, requesterId *int64) ([]TextView, error) {
	views := make([]TextView, 0, len(texts))
	for _, text := range texts {
		view, err := s.textView(text, requesterId)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// loadText reads a text through the cache. Cached entries are the raw
// model, never a rendered view: permission checks and CanEdit depend on
// who is asking.
func (s *Service) loadText(ctx context.Context, textId int64, hashId string) (models.Text, error) {
	if data, err := s.Cache.GetText(ctx, hashId); err == nil && data != nil {
		var text models.Text
		if err := json.Unmarshal(data, &text); err == nil {
			return text, nil
		}
	}

	text, err := s.Store.GetText(ctx, textId)
	if err != nil {
		if errors.Is(err, store.ErrItemNotFound) {
			return models.Text{}, fmt.Errorf("%w: text %q", ErrNotFound, hashId)
		}
		return models.Text{}, fmt.Errorf("get text failed: %w", err)
	}

	if data, err := json.Marshal(text); err == nil {
		s.Cache.SetText(ctx, hashId, data)
	}

	return text, nil
}

func (s *Service) GetText(ctx context.Context, token string, hashId string) (TextView, error) {
	textId, err := s.decodeTextId(hashId)
	if err != nil {
		return TextView{}, err
	}

	requesterId, err := s.optionalRequester(ctx, token)
	if err != nil {
		return TextView{}, err
	}

	text, err := s.loadText(ctx, textId, hashId)
	if err != nil {
		return TextView{}, err
	}

	if !CanRead(requesterId, text) {
		return TextView{}, fmt.Errorf("%w: text %q", ErrPermissionDenied, hashId)
	}

	if s.ViewBatcher != nil {
		s.ViewBatcher.UpdateCh <- worker.ViewUpdate{TextId: text.Id, Delta: 1}
	}

	return s.textView(text, requesterId)
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func normalizePaging(page int, pageSize int) (int, int) {
	if page < 0 {
		page = 0
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// GetTextList returns a page of Public texts, newest first. Unlisted and
// Private texts never show up here no matter who asks.
func (s *Service) GetTextList(ctx context.Context, token string, page int, pageSize int) ([]TextView, error) {
	requesterId, err := s.optionalRequester(ctx, token)
	if err != nil {
		return nil, err
	}

	page, pageSize = normalizePaging(page, pageSize)

	if data, err := s.Cache.GetPublicListPage(ctx, page, pageSize); err == nil && data != nil {
		var texts []models.Text
		if err := json.Unmarshal(data, &texts); err == nil {
			return s.textViews(texts, requesterId)
		}
	}

	texts, err := s.Store.ListPublicTexts(ctx, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("list public texts failed: %w", err)
	}

	if data, err := json.Marshal(texts); err == nil {
		s.Cache.SetPublicListPage(ctx, page, pageSize, data)
	}

	return s.textViews(texts, requesterId)
}

func (s *Service) GetUserTextList(ctx context.Context, token string, page int, pageSize int) ([]TextView, error) {
	account, err := s.AuthenticateToken(ctx, token)
	if err != nil {
		return nil, err
	}

	page, pageSize = normalizePaging(page, pageSize)

	texts, err := s.Store.ListTextsByAuthor(ctx, account.Id, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("list account texts failed: %w", err)
	}

	return s.textViews(texts, &account.Id)
}

func (s *Service) CreateText(ctx context.Context, token string, title string, body string, visibility models.Visibility) (string, error) {
	account, err := s.AuthenticateToken(ctx, token)
	if err != nil {
		return "", err
	}

	title, err = s.prepareTitle(title)
	if err != nil {
		return "", err
	}
	body, err = s.prepareBody(body)
	if err != nil {
		return "", err
	}

	text, err := s.Store.CreateText(ctx, models.Text{
		Title:      title,
		Body:       body,
		AuthorId:   account.Id,
		AuthorName: account.Name,
		Visibility: visibility,
	})
	if err != nil {
		return "", fmt.Errorf("create text failed: %w", err)
	}

	hashId, err := s.Codec.Encode(text.Id)
	if err != nil {
		return "", fmt.Errorf("encode text id failed: %w", err)
	}

	if text.Visibility == models.VisibilityPublic {
		go s.Cache.BumpPublicListGen(context.Background())
	}

	return hashId, nil
}

// EditText applies a partial update: nil fields are left untouched. Only
// the author passes the store's ownership condition; visibility moves
// freely between the three tiers.
func (s *Service) EditText(ctx context.Context, token string, hashId string, title *string, body *string, visibility *models.Visibility) (string, error) {
	textId, err := s.decodeTextId(hashId)
	if err != nil {
		return "", err
	}

	account, err := s.AuthenticateToken(ctx, token)
	if err != nil {
		return "", err
	}

	if title != nil {
		prepared, err := s.prepareTitle(*title)
		if err != nil {
			return "", err
		}
		title = &prepared
	}
	if body != nil {
		prepared, err := s.prepareBody(*body)
		if err != nil {
			return "", err
		}
		body = &prepared
	}

	updated, err := s.Store.UpdateText(ctx, account.Id, textId, title, body, visibility)
	if err != nil {
		return "", s.mapTextWriteError(err, hashId)
	}

	go func() {
		ctx := context.Background()
		s.Cache.InvalidateText(ctx, hashId)
		s.Cache.BumpPublicListGen(ctx)
		event := TextEvent{
			Type:       "text_updated",
			TextId:     hashId,
			Title:      updated.Title,
			Visibility: updated.Visibility.String(),
			EditedAt:   updated.EditedAt,
		}
		if eventBytes, err := json.Marshal(event); err == nil {
			s.Cache.Publish(ctx, "text:"+hashId, eventBytes)
		}
	}()

	return hashId, nil
}

func (s *Service) DeleteText(ctx context.Context, token string, hashId string) (string, error) {
	textId, err := s.decodeTextId(hashId)
	if err != nil {
		return "", err
	}

	account, err := s.AuthenticateToken(ctx, token)
	if err != nil {
		return "", err
	}

	deleted, err := s.Store.DeleteText(ctx, account.Id, textId)
	if err != nil {
		return "", s.mapTextWriteError(err, hashId)
	}

	go func() {
		ctx := context.Background()
		s.Cache.InvalidateText(ctx, hashId)
		if deleted.Visibility == models.VisibilityPublic {
			s.Cache.BumpPublicListGen(ctx)
		}
		event := TextEvent{Type: "text_deleted", TextId: hashId}
		if eventBytes, err := json.Marshal(event); err == nil {
			s.Cache.Publish(ctx, "text:"+hashId, eventBytes)
		}
	}()

	return hashId, nil
}

// CanWatchText gates live subscriptions with the same read policy as
// GetText.
func (s *Service) CanWatchText(ctx context.Context, requesterId *int64, hashId string) error {
	textId, err := s.decodeTextId(hashId)
	if err != nil {
		return err
	}

	text, err := s.loadText(ctx, textId, hashId)
	if err != nil {
		return err
	}

	if !CanRead(requesterId, text) {
		return fmt.Errorf("%w: text %q", ErrPermissionDenied, hashId)
	}

	return nil
}

func (s *Service) mapTextWriteError(err error, hashId string) error {
	if errors.Is(err, store.ErrItemNotFound) {
		return fmt.Errorf("%w: text %q", ErrNotFound, hashId)
	}
	if errors.Is(err, store.ErrConditionFailed) {
		return fmt.Errorf("%w: text %q", ErrPermissionDenied, hashId)
	}
	return fmt.Errorf("text write failed: %w", err)
}
