package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/username/finflow/backend/src/docstore"
	"github.com/username/finflow/backend/src/logger"
	"github.com/username/finflow/backend/src/model"
	"github.com/username/finflow/backend/src/models"
	"github.com/username/finflow/backend/src/security"
)

// registrationRecord is the users/{uid} document.
type registrationRecord struct {
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type UserService struct {
	db    *sql.DB
	store docstore.Store
	auth  *security.AuthService
	email EmailService
}

func NewUserService(db *sql.DB, store docstore.Store, auth *security.AuthService, email EmailService) *UserService {
	return &UserService{db: db, store: store, auth: auth, email: email}
}

// Register creates a local account. The welcome email is best-effort.
func (s *UserService) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	hash, err := s.auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &model.User{
		ID:           uuid.NewString(),
		Username:     strings.TrimSpace(username),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Password:     hash,
		AuthProvider: model.AuthProviderLocal,
	}
	if err := s.create(ctx, user); err != nil {
		return nil, err
	}

	if s.email != nil {
		if err := s.email.SendWelcomeEmail(ctx, user.Email, user.Username); err != nil {
			logger.FromContext(ctx).Warn("Welcome email failed", "userID", user.ID, "error", err)
		}
	}
	return user, nil
}

func (s *UserService) create(ctx context.Context, user *model.User) error {
	if err := user.CreateUser(ctx, s.db); err != nil {
		if errors.Is(err, model.ErrUserExists) {
			return fmt.Errorf("%w: username or email already registered", ErrConflict)
		}
		return wrapStorage("create user", err)
	}
	rec := registrationRecord{Email: user.Email, CreatedAt: user.CreatedAt}
	if err := s.store.Set(ctx, docstore.Path("users", user.ID), rec); err != nil {
		return wrapStorage("write registration record", err)
	}
	logger.FromContext(ctx).Info("User registered", "userID", user.ID, "provider", user.AuthProvider)
	return nil
}

// Authenticate exchanges a username (or email) and password for an access token.
func (s *UserService) Authenticate(ctx context.Context, login, password string) (string, error) {
	login = strings.TrimSpace(login)
	var user *model.User
	var err error
	if strings.Contains(login, "@") {
		user, err = model.GetUserByEmail(ctx, s.db, login)
	} else {
		user, err = model.GetUserByUsername(ctx, s.db, login)
	}
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return "", fmt.Errorf("%w: invalid username or password", ErrUnauthenticated)
		}
		return "", wrapStorage("lookup user", err)
	}
	if user.Password == "" || s.auth.CompareHashAndPassword(user.Password, password) != nil {
		return "", fmt.Errorf("%w: invalid username or password", ErrUnauthenticated)
	}
	return s.IssueToken(user)
}

func (s *UserService) IssueToken(user *model.User) (string, error) {
	return s.auth.GenerateToken(models.Identity{UID: user.ID, Email: user.Email})
}

// TokenTTL is the lifetime of tokens issued by this service.
func (s *UserService) TokenTTL() time.Duration {
	return s.auth.TokenExpiry
}

// FindOrCreateGoogleUser returns the account for a verified Google email,
// creating a password-less one on first sign-in.
func (s *UserService) FindOrCreateGoogleUser(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := model.GetUserByEmail(ctx, s.db, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, model.ErrUserNotFound) {
		return nil, wrapStorage("lookup user", err)
	}

	id := uuid.NewString()
	user = &model.User{
		ID:           id,
		Username:     googleUsername(email, id),
		Email:        email,
		AuthProvider: model.AuthProviderGoogle,
	}
	if err := s.create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// googleUsername derives a unique username from the mailbox name.
func googleUsername(email, id string) string {
	local := email
	if i := strings.Index(email, "@"); i > 0 {
		local = email[:i]
	}
	return local + "-" + id[:8]
}
