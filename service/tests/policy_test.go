package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spcfox/sharetext/models"
	"github.com/spcfox/sharetext/service"
)

func ptr(id int64) *int64 {
	return &id
}

func TestCanRead(t *testing.T) {
	author := int64(1)
	stranger := int64(2)

	cases := []struct {
		name        string
		visibility  models.Visibility
		requesterId *int64
		want        bool
	}{
		{"public anonymous", models.VisibilityPublic, nil, true},
		{"public stranger", models.VisibilityPublic, ptr(stranger), true},
		{"public author", models.VisibilityPublic, ptr(author), true},
		{"unlisted anonymous", models.VisibilityUnlisted, nil, true},
		{"unlisted stranger", models.VisibilityUnlisted, ptr(stranger), true},
		{"unlisted author", models.VisibilityUnlisted, ptr(author), true},
		{"private anonymous", models.VisibilityPrivate, nil, false},
		{"private stranger", models.VisibilityPrivate, ptr(stranger), false},
		{"private author", models.VisibilityPrivate, ptr(author), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			text := models.Text{Id: 100, AuthorId: author, Visibility: tc.visibility}
			assert.Equal(t, tc.want, service.CanRead(tc.requesterId, text))
		})
	}
}

func TestCanEdit(t *testing.T) {
	author := int64(1)
	stranger := int64(2)
	text := models.Text{Id: 100, AuthorId: author, Visibility: models.VisibilityPublic}

	assert.True(t, service.CanEdit(ptr(author), text))
	assert.False(t, service.CanEdit(ptr(stranger), text))
	assert.False(t, service.CanEdit(nil, text))
}
