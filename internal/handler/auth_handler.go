package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"sessionlog-sync-server/internal/domain"
	"sessionlog-sync-server/internal/service"
	"sessionlog-sync-server/pkg/response"

	"github.com/go-playground/validator/v10"
)

type AuthHandler struct {
	authService *service.AuthService
	validate    *validator.Validate
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validator.New(),
	}
}

func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req domain.TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	token, err := h.authService.IssueToken(req.RemoteID, req.AccessKey)
	if err != nil {
		if errors.Is(err, service.ErrInvalidAccessKey) {
			response.Unauthorized(w, "invalid access key")
			return
		}
		response.InternalError(w, "failed to issue token")
		return
	}

	response.JSON(w, http.StatusOK, domain.TokenResponse{
		Token:     token,
		ExpiresIn: int64(h.authService.TokenTTL().Seconds()),
	})
}
