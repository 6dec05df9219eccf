package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/video-share-backend/internal/model"
	"github.com/iliyamo/video-share-backend/internal/utils"
)

const userColumns = "id,username,email,full_name,avatar_url,cover_image_url,password_hash,refresh_token,created_at,updated_at"

// UserRepo owns every read and write on the 'users' table. The refresh
// token column is only ever touched by SetRefreshToken, SwapRefreshToken
// and ClearRefreshToken so rotation stays in one place.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts a user and returns its ID. The plaintext password is
// hashed here; this and UpdatePassword are the only two places a hash is
// ever computed.
func (r *UserRepo) Create(ctx context.Context, username, email, fullName, password, avatarURL, coverURL string, cost int) (uint64, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, email, full_name, password_hash, avatar_url, cover_image_url) VALUES (?,?,?,?,?,?)",
		username, email, strings.TrimSpace(fullName), hash, avatarURL, coverURL)
	if err != nil {
		// MySQL 1062 = duplicate key on the unique username/email indexes.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrDuplicateUser
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email)
}

// GetByUsername fetches a user by normalized username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE username=? LIMIT 1", username)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
}

func (r *UserRepo) getOne(ctx context.Context, q string, arg any) (model.User, error) {
	var (
		u       model.User
		refresh sql.NullString
		avatar  sql.NullString
		cover   sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, q, arg).Scan(
		&u.ID, &u.Username, &u.Email, &u.FullName, &avatar, &cover,
		&u.PasswordHash, &refresh, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.User{}, ErrUserNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	u.AvatarURL = avatar.String
	u.CoverImageURL = cover.String
	u.RefreshToken = refresh.String
	return u, nil
}

// SetRefreshToken unconditionally stores a new refresh token for the
// user. Used at login, where whatever session existed before is replaced.
func (r *UserRepo) SetRefreshToken(ctx context.Context, id uint64, token string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET refresh_token=? WHERE id=?", token, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SwapRefreshToken rotates the stored refresh token only if it still
// equals old. Returns false when a concurrent refresh or logout got there
// first; the single UPDATE makes the compare-and-set atomic, so two
// refreshes racing on the same presented token cannot both succeed.
func (r *UserRepo) SwapRefreshToken(ctx context.Context, id uint64, old, new string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET refresh_token=? WHERE id=? AND refresh_token=?", new, id, old)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ClearRefreshToken removes the stored refresh token, ending the session.
// Idempotent: clearing an already-empty column is not an error.
func (r *UserRepo) ClearRefreshToken(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET refresh_token=NULL WHERE id=?", id)
	return err
}

// UpdatePassword hashes the new plaintext and stores it.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, password string, cost int) error {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=? WHERE id=?", hash, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpdateDetails changes the mutable profile fields. Empty arguments leave
// the current value in place.
func (r *UserRepo) UpdateDetails(ctx context.Context, id uint64, fullName, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET full_name=COALESCE(NULLIF(?,''),full_name), email=COALESCE(NULLIF(?,''),email) WHERE id=?",
		strings.TrimSpace(fullName), email, id)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrDuplicateUser
		}
		return err
	}
	return requireRow(res)
}

// UpdateAvatar stores a new avatar URL.
func (r *UserRepo) UpdateAvatar(ctx context.Context, id uint64, url string) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET avatar_url=? WHERE id=?", url, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpdateCoverImage stores a new cover image URL.
func (r *UserRepo) UpdateCoverImage(ctx context.Context, id uint64, url string) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET cover_image_url=? WHERE id=?", url, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// requireRow converts "no row matched" into ErrUserNotFound for updates
// keyed by id.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}
