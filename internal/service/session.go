// Package service holds the business logic that sits between the HTTP
// handlers and the repositories. session.go owns the full session
// lifecycle: login, logout, refresh-token rotation and password change.
package service

import (
	"context"
	"errors"

	"github.com/iliyamo/video-share-backend/internal/config"
	"github.com/iliyamo/video-share-backend/internal/model"
	"github.com/iliyamo/video-share-backend/internal/repository"
	"github.com/iliyamo/video-share-backend/internal/utils"
)

// Failure kinds returned by SessionManager. Handlers branch on these with
// errors.Is and map them to HTTP statuses.
var (
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid refresh token")
)

// UserStore is the persistence surface the session lifecycle needs. It is
// implemented by repository.UserRepo; tests substitute an in-memory fake.
// SwapRefreshToken must be an atomic compare-and-set: it stores new only
// if the current value still equals old, and reports whether it did.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	SetRefreshToken(ctx context.Context, id uint64, token string) error
	SwapRefreshToken(ctx context.Context, id uint64, old, new string) (bool, error)
	ClearRefreshToken(ctx context.Context, id uint64) error
	UpdatePassword(ctx context.Context, id uint64, password string, cost int) error
}

// TokenPair is what a successful login or refresh hands back: a fresh
// access token and the refresh token now stored for the user.
type TokenPair struct {
	Access  utils.AccessToken
	Refresh utils.RefreshToken
}

// SessionManager is the only component that mutates a user's stored
// refresh token. Exactly one refresh token is live per user at any time;
// every login or refresh overwrites it, which invalidates whatever was
// issued before even if its signature and expiry are still good.
type SessionManager struct {
	cfg   config.Config
	users UserStore
}

func NewSessionManager(cfg config.Config, users UserStore) *SessionManager {
	return &SessionManager{cfg: cfg, users: users}
}

// Login verifies the credentials, issues a fresh token pair and persists
// the refresh token on the user. Nothing is written when the lookup or
// the password check fails.
func (m *SessionManager) Login(ctx context.Context, email, password string) (model.User, TokenPair, error) {
	u, err := m.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.User{}, TokenPair{}, ErrNotFound
		}
		return model.User{}, TokenPair{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return model.User{}, TokenPair{}, ErrInvalidCredentials
	}
	pair, err := m.issuePair(u)
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	if err := m.users.SetRefreshToken(ctx, u.ID, pair.Refresh.Token); err != nil {
		return model.User{}, TokenPair{}, err
	}
	return u.Sanitized(), pair, nil
}

// Logout clears the stored refresh token so every previously issued
// refresh token for the user becomes unverifiable against the store.
// Clearing an already-cleared session succeeds.
func (m *SessionManager) Logout(ctx context.Context, userID uint64) error {
	return m.users.ClearRefreshToken(ctx, userID)
}

// Refresh exchanges a presented refresh token for a brand-new pair. The
// token must verify against the refresh secret AND match the value
// currently stored for the user byte for byte; the swap into the new
// value is a compare-and-set, so of two concurrent refreshes presenting
// the same token exactly one wins and the other gets ErrInvalidToken.
func (m *SessionManager) Refresh(ctx context.Context, presented string) (model.User, TokenPair, error) {
	claims, err := utils.ParseRefreshToken(m.cfg.RefreshSecret, presented)
	if err != nil {
		// Keep the verifier's reason (expired vs malformed) in the chain.
		return model.User{}, TokenPair{}, errors.Join(ErrInvalidToken, err)
	}
	id, err := utils.UserID(claims.RegisteredClaims)
	if err != nil {
		return model.User{}, TokenPair{}, errors.Join(ErrInvalidToken, err)
	}
	u, err := m.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.User{}, TokenPair{}, ErrNotFound
		}
		return model.User{}, TokenPair{}, err
	}
	// A signature-valid token that is not the stored one has been
	// superseded by a later login/refresh, or the user logged out.
	if u.RefreshToken == "" || u.RefreshToken != presented {
		return model.User{}, TokenPair{}, ErrInvalidToken
	}
	pair, err := m.issuePair(u)
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	ok, err := m.users.SwapRefreshToken(ctx, u.ID, presented, pair.Refresh.Token)
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	if !ok {
		return model.User{}, TokenPair{}, ErrInvalidToken
	}
	return u.Sanitized(), pair, nil
}

// ChangePassword verifies the old password before storing a hash of the
// new one. No state changes on a failed check.
func (m *SessionManager) ChangePassword(ctx context.Context, userID uint64, oldPassword, newPassword string) error {
	u, err := m.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrNotFound
		}
		return err
	}
	if !utils.VerifyPassword(u.PasswordHash, oldPassword) {
		return ErrInvalidCredentials
	}
	return m.users.UpdatePassword(ctx, userID, newPassword, m.cfg.BcryptCost)
}

func (m *SessionManager) issuePair(u model.User) (TokenPair, error) {
	access, err := utils.NewAccessToken(m.cfg.AccessSecret, u, m.cfg.AccessTTLMin)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := utils.NewRefreshToken(m.cfg.RefreshSecret, u.ID, m.cfg.RefreshTTLDays)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}
