package handlers

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/username/finflow/backend/src/logger"
	"github.com/username/finflow/backend/src/models"
	"github.com/username/finflow/backend/src/security/validation"
	"github.com/username/finflow/backend/src/services"
	"github.com/username/finflow/backend/src/utils"
)

type UserHandler struct {
	users     *services.UserService
	validator *validation.Validator
}

func NewUserHandler(users *services.UserService, validator *validation.Validator) *UserHandler {
	return &UserHandler{users: users, validator: validator}
}

func (h *UserHandler) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.users.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, models.RegisterResponse{
		Message:  "User registered successfully",
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
}

// TokenHandler exchanges credentials for a bearer token. It accepts an
// OAuth2-style form body as well as JSON.
func (h *UserHandler) TokenHandler(w http.ResponseWriter, r *http.Request) {
	var req models.TokenRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			utils.SendJSONError(w, "Invalid form body", http.StatusBadRequest)
			return
		}
		req.Username = r.PostForm.Get("username")
		req.Password = r.PostForm.Get("password")
	}
	if err := h.validator.Struct(req); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	token, err := h.users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrUnauthenticated) {
			logger.FromContext(r.Context()).Info("Login failed", "username", req.Username)
			utils.SendJSONError(w, "Invalid username or password", http.StatusUnauthorized)
			return
		}
		sendServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, models.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(h.users.TokenTTL().Seconds()),
	})
}
