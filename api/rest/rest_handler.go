package rest

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/spcfox/sharetext/models"
	"github.com/spcfox/sharetext/service"
)

type Handler struct {
	Service *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{Service: svc}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError translates service failures into stable wire codes. Anything
// that is not one of the known sentinels is an internal fault: logged
// server-side, opaque to the client.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var status int
	var code string

	switch {
	case errors.Is(err, service.ErrInvalidToken):
		status, code = http.StatusUnauthorized, "INVALID_TOKEN"
	case errors.Is(err, service.ErrPermissionDenied):
		status, code = http.StatusForbidden, "PERMISSION_DENIED"
	case errors.Is(err, service.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, service.ErrInvalidInput):
		status, code = http.StatusBadRequest, "INVALID_INPUT"
	default:
		log.Printf("Internal error: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(errorResponse{Code: "INTERNAL_ERROR", Message: "internal error"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Code: code, Message: err.Error()})
}

func (h *Handler) sendResponse(w http.ResponseWriter, resp any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

func (h *Handler) getTokenFromAuthHeader(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(authHeader, prefix) {
		return ""
	}
	return strings.TrimPrefix(authHeader, prefix)
}

type createAccountRequest struct {
	Name string `json:"name"`
}

type accountResponse struct {
	Id      int64  `json:"id"`
	Name    string `json:"name"`
	Created int64  `json:"created"`
	Token   string `json:"token,omitempty"`
}

func (h *Handler) HandleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	account, token, err := h.Service.CreateAccount(r.Context(), req.Name)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.sendResponse(w, accountResponse{
		Id:      account.Id,
		Name:    account.Name,
		Created: account.Created,
		Token:   token,
	})
}

func (h *Handler) HandleAccountInfo(w http.ResponseWriter, r *http.Request) {
	token := h.getTokenFromAuthHeader(r)

	account, err := h.Service.GetAccountInfo(r.Context(), token)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.sendResponse(w, accountResponse{
		Id:      account.Id,
		Name:    account.Name,
		Created: account.Created,
	})
}

type editAccountRequest struct {
	Name string `json:"name"`
}

func (h *Handler) HandleEditAccount(w http.ResponseWriter, r *http.Request) {
	token := h.getTokenFromAuthHeader(r)

	var req editAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	account, err := h.Service.EditAccountName(r.Context(), token, req.Name)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.sendResponse(w, accountResponse{
		Id:      account.Id,
		Name:    account.Name,
		Created: account.Created,
	})
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (h *Handler) HandleRevokeToken(w http.ResponseWriter, r *http.Request) {
	token := h.getTokenFromAuthHeader(r)

	newToken, err := h.Service.RevokeToken(r.Context(), token)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.sendResponse(w, tokenResponse{Token: newToken})
}

type successResponse struct {
	Success bool `json:"success"`
}

func (h *Handler) HandleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	token := h.getTokenFromAuthHeader(r)

	if err := h.Service.DeleteAccount(r.Context(), token); err != nil {
		h.writeError(w, err)
		return
	}

	h.sendResponse(w, successResponse{Success: true})
}

type createTextRequest struct {
	Title      string `json:"title"`
	Body       string `json:"body"`
	Visibility string `json:"visibility"`
}

type textIdResponse struct {
	TextId string `json:"textId"`
}

func (h *Handler) HandleCreateText(w http.ResponseWriter, r *http.Request) {
	token := h.getTokenFromAuthHeader(r)

	var req createTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	visibility := models.VisibilityPublic
	if req.Visibility != "" {
		parsed, ok := models.ParseVisibility(req.Visibility)
		if !ok {
			h.sendVisibilityError(w, req.Visibility)
			return
		}
		visibility = parsed
	}

	hashId, err := h.Service.CreateText(r.Context(), token, req.Title, req.Body, visibility)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.sendResponse(w, textIdResponse{TextId: hashId})
}

func (h *Handler) HandleGetText(w http.ResponseWriter, r *http.Request) {
	token := h.getTokenFromAuthHeader(r)
	hashId := r.PathValue("textId")

	text, err := h.Service.GetText(r.Context(), token, hashId)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.sendResponse(w, text)
}

func (h *Handler) HandleTextList(w http.ResponseWriter, r *http.Request) {
	token := h.getTokenFromAuthHeader(r)
	page, pageSize := parsePaging(r)

	texts, err := h.Service.GetTextList(r.Context(), token, page, pageSize)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.sendResponse(w, texts)
}

func (h *Handler) HandleUserTextList(w http.ResponseWriter, r *http.Request) {
	token := h.getTokenFromAuthHeader(r)
	page, pageSize := parsePaging(r)

	texts, err := h.Service.GetUserTextList(r.Context(), token, page, pageSize)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.sendResponse(w, texts)
}

type editTextRequest struct {
	Title      *string `json:"title"`
	Body       *string `json:"body"`
	Visibility *string `json:"visibility"`
}

func (h *Handler) HandleEditText(w http.ResponseWriter, r *http.Request) {
	token := h.getTokenFromAuthHeader(r)
	hashId := r.PathValue("textId")

	var req editTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	var visibility *models.Visibility
	if req.Visibility != nil {
		parsed, ok := models.ParseVisibility(*req.Visibility)
		if !ok {
			h.sendVisibilityError(w, *req.Visibility)
			return
		}
		visibility = &parsed
	}

	updatedId, err := h.Service.EditText(r.Context(), token, hashId, req.Title, req.Body, visibility)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.sendResponse(w, textIdResponse{TextId: updatedId})
}

func (h *Handler) HandleDeleteText(w http.ResponseWriter, r *http.Request) {
	token := h.getTokenFromAuthHeader(r)
	hashId := r.PathValue("textId")

	deletedId, err := h.Service.DeleteText(r.Context(), token, hashId)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.sendResponse(w, textIdResponse{TextId: deletedId})
}

func (h *Handler) sendVisibilityError(w http.ResponseWriter, value string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(errorResponse{
		Code:    "INVALID_INPUT",
		Message: "unknown visibility: " + value,
	})
}

func parsePaging(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	return page, pageSize
}
