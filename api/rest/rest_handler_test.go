package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spcfox/sharetext/service"
)

func TestWriteError_Mapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid token", fmt.Errorf("%w: stale salt", service.ErrInvalidToken), http.StatusUnauthorized, "INVALID_TOKEN"},
		{"permission denied", fmt.Errorf("%w: text \"abc\"", service.ErrPermissionDenied), http.StatusForbidden, "PERMISSION_DENIED"},
		{"not found", fmt.Errorf("%w: text \"abc\"", service.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"invalid input", fmt.Errorf("%w: title is empty", service.ErrInvalidInput), http.StatusBadRequest, "INVALID_INPUT"},
		{"internal", errors.New("dynamo down"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	h := &Handler{}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.writeError(rr, tc.err)

			assert.Equal(t, tc.wantStatus, rr.Code)

			var resp errorResponse
			assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tc.wantCode, resp.Code)
		})
	}
}

// Internal faults must not leak their message to clients
func TestWriteError_InternalIsOpaque(t *testing.T) {
	h := &Handler{}
	rr := httptest.NewRecorder()
	h.writeError(rr, errors.New("secret infrastructure detail"))

	var resp errorResponse
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotContains(t, resp.Message, "secret infrastructure detail")
}

func TestGetTokenFromAuthHeader(t *testing.T) {
	h := &Handler{}

	r := httptest.NewRequest(http.MethodGet, "/account/info", nil)
	assert.Equal(t, "", h.getTokenFromAuthHeader(r))

	r.Header.Set("Authorization", "Bearer sometoken")
	assert.Equal(t, "sometoken", h.getTokenFromAuthHeader(r))

	r.Header.Set("Authorization", "Basic abc")
	assert.Equal(t, "", h.getTokenFromAuthHeader(r))
}
