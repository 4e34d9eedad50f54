package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/username/finflow/backend/src/config"
	"github.com/username/finflow/backend/src/logger"
	"github.com/username/finflow/backend/src/model"
	"github.com/username/finflow/backend/src/models"
	"github.com/username/finflow/backend/src/services"
	"github.com/username/finflow/backend/src/utils"
)

const (
	oauthStateCookie   = "oauth_state"
	googleUserInfoURL  = "https://www.googleapis.com/oauth2/v2/userinfo"
	oauthStateLifetime = 600
)

type OAuthHandler struct {
	oauthConfig *oauth2.Config
	users       *services.UserService
	userInfoURL string
}

func NewGoogleOAuthConfig(cfg *config.AppConfig) *oauth2.Config {
	return &oauth2.Config{
		RedirectURL:  cfg.GoogleRedirectURL,
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
		Endpoint:     google.Endpoint,
	}
}

func NewOAuthHandler(oauthConfig *oauth2.Config, users *services.UserService) *OAuthHandler {
	return &OAuthHandler{oauthConfig: oauthConfig, users: users, userInfoURL: googleUserInfoURL}
}

// HandleGoogleLogin redirects to Google's consent page. The state is kept in a
// short-lived cookie and checked on the callback.
func (h *OAuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		logger.FromContext(r.Context()).Error("Failed to generate OAuth state", "error", err)
		utils.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	state := base64.RawURLEncoding.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/auth/google",
		MaxAge:   oauthStateLifetime,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.oauthConfig.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback completes the code exchange and answers with our own access token.
func (h *OAuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || cookie.Value == "" || r.FormValue("state") != cookie.Value {
		log.Warn("Invalid OAuth state from Google callback")
		utils.SendJSONError(w, "Invalid OAuth state", http.StatusBadRequest)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Value: "", Path: "/auth/google", MaxAge: -1})

	token, err := h.oauthConfig.Exchange(r.Context(), r.FormValue("code"))
	if err != nil {
		log.Error("Failed to exchange code for token", "error", err)
		utils.SendJSONError(w, "Google sign-in failed", http.StatusUnauthorized)
		return
	}

	resp, err := h.oauthConfig.Client(r.Context(), token).Get(h.userInfoURL)
	if err != nil {
		log.Error("Failed to get user info from Google", "error", err)
		utils.SendJSONError(w, "Google sign-in failed", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	var googleUser struct {
		Email    string `json:"email"`
		Verified bool   `json:"verified_email"`
	}
	if resp.StatusCode != http.StatusOK {
		log.Error("Google user info returned non-OK status", "status", resp.StatusCode)
		utils.SendJSONError(w, "Google sign-in failed", http.StatusBadGateway)
		return
	}
	if err := json.NewDecoder(resp.Body).Decode(&googleUser); err != nil {
		log.Error("Failed to decode Google user info", "error", err)
		utils.SendJSONError(w, "Google sign-in failed", http.StatusBadGateway)
		return
	}
	if !googleUser.Verified || strings.TrimSpace(googleUser.Email) == "" {
		utils.SendJSONError(w, "Google account email is not verified", http.StatusForbidden)
		return
	}

	user, err := h.users.FindOrCreateGoogleUser(r.Context(), googleUser.Email)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	if user.AuthProvider != model.AuthProviderGoogle {
		log.Warn("Google login attempt for existing local account", "userID", user.ID)
		utils.SendJSONError(w, "An account with this email already exists; sign in with a password", http.StatusConflict)
		return
	}

	appToken, err := h.users.IssueToken(user)
	if err != nil {
		sendServiceError(w, r, fmt.Errorf("failed to issue token for Google user: %w", err))
		return
	}
	utils.WriteJSON(w, http.StatusOK, models.TokenResponse{
		AccessToken: appToken,
		TokenType:   "bearer",
		ExpiresIn:   int64(h.users.TokenTTL().Seconds()),
	})
}
