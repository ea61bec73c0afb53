package service_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/spcfox/sharetext/models"
	"github.com/spcfox/sharetext/service"
	"github.com/spcfox/sharetext/store"
	"github.com/spcfox/sharetext/worker"
)

func encodeId(t *testing.T, svc *service.Service, id int64) string {
	hashId, err := svc.Codec.Encode(id)
	assert.NoError(t, err)
	return hashId
}

func TestGetText_PublicAnonymous(t *testing.T) {
	svc, mockStore, mockCache, _, viewBatcher := setupService(t)
	ctx := context.Background()

	text := models.Text{
		Id:         10,
		Title:      "hello",
		Body:       "world",
		AuthorId:   1,
		AuthorName: "author",
		Visibility: models.VisibilityPublic,
		Views:      5,
	}
	hashId := encodeId(t, svc, text.Id)

	mockCache.On("GetText", ctx, hashId).Return(nil, nil)
	mockStore.On("GetText", ctx, text.Id).Return(text, nil)
	mockCache.On("SetText", ctx, hashId, mock.Anything).Return(nil)

	view, err := svc.GetText(ctx, "", hashId)
	assert.NoError(t, err)
	assert.Equal(t, hashId, view.TextId)
	assert.Equal(t, "hello", view.Title)
	assert.Equal(t, "world", view.Body)
	assert.Equal(t, "author", view.Author)
	assert.Equal(t, "PUBLIC", view.Visibility)
	assert.False(t, view.CanEdit)

	// The read queues a view increment
	select {
	case update := <-viewBatcher.UpdateCh:
		assert.Equal(t, worker.ViewUpdate{TextId: text.Id, Delta: 1}, update)
	case <-time.After(100 * time.Millisecond):
		assert.Fail(t, "timed out waiting for view update")
	}
}

func TestGetText_PrivateDeniedAnonymously(t *testing.T) {
	svc, mockStore, mockCache, _, viewBatcher := setupService(t)
	ctx := context.Background()

	text := models.Text{Id: 11, AuthorId: 1, Visibility: models.VisibilityPrivate}
	hashId := encodeId(t, svc, text.Id)

	mockCache.On("GetText", ctx, hashId).Return(nil, nil)
	mockStore.On("GetText", ctx, text.Id).Return(text, nil)
	mockCache.On("SetText", ctx, hashId, mock.Anything).Return(nil)

	_, err := svc.GetText(ctx, "", hashId)
	assert.ErrorIs(t, err, service.ErrPermissionDenied)

	// A denied read must not count a view
	select {
	case <-viewBatcher.UpdateCh:
		assert.Fail(t, "denied read queued a view update")
	default:
	}
}

func TestGetText_PrivateOwnerCanEdit(t *testing.T) {
	svc, mockStore, mockCache, _, _ := setupService(t)
	ctx := context.Background()

	account, token := authedAccount(t, svc, mockStore, 1)
	text := models.Text{Id: 12, AuthorId: account.Id, Visibility: models.VisibilityPrivate}
	hashId := encodeId(t, svc, text.Id)

	mockCache.On("GetText", ctx, hashId).Return(nil, nil)
	mockStore.On("GetText", ctx, text.Id).Return(text, nil)
	mockCache.On("SetText", ctx, hashId, mock.Anything).Return(nil)

	view, err := svc.GetText(ctx, token, hashId)
	assert.NoError(t, err)
	assert.True(t, view.CanEdit)
	assert.Equal(t, "PRIVATE", view.Visibility)
}

func TestGetText_ServedFromCache(t *testing.T) {
	svc, mockStore, mockCache, _, _ := setupService(t)
	ctx := context.Background()

	text := models.Text{Id: 13, Title: "cached", AuthorId: 1, Visibility: models.VisibilityUnlisted}
	hashId := encodeId(t, svc, text.Id)

	cached, err := json.Marshal(text)
	assert.NoError(t, err)
	mockCache.On("GetText", ctx, hashId).Return(cached, nil)

	view, err := svc.GetText(ctx, "", hashId)
	assert.NoError(t, err)
	assert.Equal(t, "cached", view.Title)
	mockStore.AssertNotCalled(t, "GetText", mock.Anything, mock.Anything)
}

func TestGetText_MalformedIdIsNotFound(t *testing.T) {
	svc, _, _, _, _ := setupService(t)

	_, err := svc.GetText(context.Background(), "", "!!!not-an-id!!!")
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestGetText_MissingIsNotFound(t *testing.T) {
	svc, mockStore, mockCache, _, _ := setupService(t)
	ctx := context.Background()

	hashId := encodeId(t, svc, 999)
	mockCache.On("GetText", ctx, hashId).Return(nil, nil)
	mockStore.On("GetText", ctx, int64(999)).Return(models.Text{}, store.ErrItemNotFound)

	_, err := svc.GetText(ctx, "", hashId)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestGetTextList_CacheMiss(t *testing.T) {
	svc, mockStore, mockCache, _, _ := setupService(t)
	ctx := context.Background()

	texts := []models.Text{
		{Id: 2, Title: "newer", AuthorId: 1, Visibility: models.VisibilityPublic},
		{Id: 1, Title: "older", AuthorId: 1, Visibility: models.VisibilityPublic},
	}

	mockCache.On("GetPublicListPage", ctx, 0, 20).Return(nil, nil)
	mockStore.On("ListPublicTexts", ctx, 0, 20).Return(texts, nil)
	mockCache.On("SetPublicListPage", ctx, 0, 20, mock.Anything).Return(nil)

	views, err := svc.GetTextList(ctx, "", 0, 0)
	assert.NoError(t, err)
	assert.Len(t, views, 2)
	assert.Equal(t, "newer", views[0].Title)
	assert.Equal(t, "older", views[1].Title)
}

func TestGetTextList_PageSizeCapped(t *testing.T) {
	svc, mockStore, mockCache, _, _ := setupService(t)
	ctx := context.Background()

	mockCache.On("GetPublicListPage", ctx, 0, 100).Return(nil, nil)
	mockStore.On("ListPublicTexts", ctx, 0, 100).Return([]models.Text{}, nil)
	mockCache.On("SetPublicListPage", ctx, 0, 100, mock.Anything).Return(nil)

	_, err := svc.GetTextList(ctx, "", -3, 5000)
	assert.NoError(t, err)
	mockStore.AssertCalled(t, "ListPublicTexts", ctx, 0, 100)
}

func TestGetUserTextList_RequiresAuth(t *testing.T) {
	svc, _, _, _, _ := setupService(t)

	_, err := svc.GetUserTextList(context.Background(), "", 0, 20)
	assert.ErrorIs(t, err, service.ErrInvalidToken)
}

func TestGetUserTextList(t *testing.T) {
	svc, mockStore, _, _, _ := setupService(t)
	ctx := context.Background()

	account, token := authedAccount(t, svc, mockStore, 1)
	texts := []models.Text{
		{Id: 3, Title: "mine", AuthorId: account.Id, Visibility: models.VisibilityPrivate},
	}
	mockStore.On("ListTextsByAuthor", ctx, account.Id, 0, 20).Return(texts, nil)

	views, err := svc.GetUserTextList(ctx, token, 0, 20)
	assert.NoError(t, err)
	assert.Len(t, views, 1)
	assert.True(t, views[0].CanEdit)
}

func TestEditText_Success(t *testing.T) {
	svc, mockStore, mockCache, _, _ := setupService(t)
	ctx := context.Background()

	account, token := authedAccount(t, svc, mockStore, 1)
	textId := int64(20)
	hashId := encodeId(t, svc, textId)

	newBody := "updated body"
	updated := models.Text{
		Id:         textId,
		Title:      "title",
		Body:       newBody,
		AuthorId:   account.Id,
		Visibility: models.VisibilityPublic,
		EditedAt:   time.Now().UnixMilli(),
	}

	mockStore.On("UpdateText", ctx, account.Id, textId, (*string)(nil), mock.MatchedBy(func(body *string) bool {
		return body != nil && *body == newBody
	}), (*models.Visibility)(nil)).Return(updated, nil)

	invalidateDone := wrapMockWithSignal(mockCache.On("InvalidateText", mock.Anything, hashId).Return(nil))
	bumpDone := wrapMockWithSignal(mockCache.On("BumpPublicListGen", mock.Anything).Return(nil))
	publishDone := wrapMockWithSignal(mockCache.On("Publish", mock.Anything, "text:"+hashId, mock.MatchedBy(func(msg []byte) bool {
		var event map[string]any
		if err := json.Unmarshal(msg, &event); err != nil {
			return false
		}
		return event["type"] == "text_updated" && event["textId"] == hashId
	})).Return(nil))

	gotId, err := svc.EditText(ctx, token, hashId, nil, &newBody, nil)
	assert.NoError(t, err)
	assert.Equal(t, hashId, gotId)

	for name, done := range map[string]chan struct{}{
		"InvalidateText":    invalidateDone,
		"BumpPublicListGen": bumpDone,
		"Publish":           publishDone,
	} {
		select {
		case <-done:
		case <-time.After(1 * time.Second):
			assert.Fail(t, "timed out waiting for "+name)
		}
	}
}

func TestEditText_ByNonAuthorIsDenied(t *testing.T) {
	svc, mockStore, _, _, _ := setupService(t)
	ctx := context.Background()

	account, token := authedAccount(t, svc, mockStore, 2)
	textId := int64(21)
	hashId := encodeId(t, svc, textId)

	title := "hijack"
	mockStore.On("UpdateText", ctx, account.Id, textId, mock.Anything, (*string)(nil), (*models.Visibility)(nil)).
		Return(models.Text{}, store.ErrConditionFailed)

	_, err := svc.EditText(ctx, token, hashId, &title, nil, nil)
	assert.ErrorIs(t, err, service.ErrPermissionDenied)
}

func TestEditText_ValidatesFields(t *testing.T) {
	svc, mockStore, _, _, _ := setupService(t)
	ctx := context.Background()

	_, token := authedAccount(t, svc, mockStore, 1)
	hashId := encodeId(t, svc, 22)

	blank := "   "
	_, err := svc.EditText(ctx, token, hashId, &blank, nil, nil)
	assert.ErrorIs(t, err, service.ErrInvalidInput)
	mockStore.AssertNotCalled(t, "UpdateText", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteText_Success(t *testing.T) {
	svc, mockStore, mockCache, _, _ := setupService(t)
	ctx := context.Background()

	account, token := authedAccount(t, svc, mockStore, 1)
	textId := int64(30)
	hashId := encodeId(t, svc, textId)

	deleted := models.Text{Id: textId, AuthorId: account.Id, Visibility: models.VisibilityPublic}
	mockStore.On("DeleteText", ctx, account.Id, textId).Return(deleted, nil)

	invalidateDone := wrapMockWithSignal(mockCache.On("InvalidateText", mock.Anything, hashId).Return(nil))
	bumpDone := wrapMockWithSignal(mockCache.On("BumpPublicListGen", mock.Anything).Return(nil))
	publishDone := wrapMockWithSignal(mockCache.On("Publish", mock.Anything, "text:"+hashId, mock.MatchedBy(func(msg []byte) bool {
		var event map[string]any
		if err := json.Unmarshal(msg, &event); err != nil {
			return false
		}
		return event["type"] == "text_deleted" && event["textId"] == hashId
	})).Return(nil))

	gotId, err := svc.DeleteText(ctx, token, hashId)
	assert.NoError(t, err)
	assert.Equal(t, hashId, gotId)

	for name, done := range map[string]chan struct{}{
		"InvalidateText":    invalidateDone,
		"BumpPublicListGen": bumpDone,
		"Publish":           publishDone,
	} {
		select {
		case <-done:
		case <-time.After(1 * time.Second):
			assert.Fail(t, "timed out waiting for "+name)
		}
	}
}

func TestDeleteText_MissingIsNotFound(t *testing.T) {
	svc, mockStore, _, _, _ := setupService(t)
	ctx := context.Background()

	account, token := authedAccount(t, svc, mockStore, 1)
	textId := int64(31)
	hashId := encodeId(t, svc, textId)

	mockStore.On("DeleteText", ctx, account.Id, textId).Return(models.Text{}, store.ErrItemNotFound)

	_, err := svc.DeleteText(ctx, token, hashId)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestCanWatchText(t *testing.T) {
	svc, mockStore, mockCache, _, _ := setupService(t)
	ctx := context.Background()

	text := models.Text{Id: 40, AuthorId: 1, Visibility: models.VisibilityPrivate}
	hashId := encodeId(t, svc, text.Id)

	mockCache.On("GetText", ctx, hashId).Return(nil, nil)
	mockStore.On("GetText", ctx, text.Id).Return(text, nil)
	mockCache.On("SetText", ctx, hashId, mock.Anything).Return(nil)

	// Anonymous watcher cannot follow a private text
	err := svc.CanWatchText(ctx, nil, hashId)
	assert.ErrorIs(t, err, service.ErrPermissionDenied)

	// The author can
	authorId := int64(1)
	err = svc.CanWatchText(ctx, &authorId, hashId)
	assert.NoError(t, err)
}
