package utils // package utils provides helper functions for token creation and hashing

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens
	"github.com/google/uuid"

	"github.com/iliyamo/video-share-backend/internal/model"
)

// Verification failure kinds. Callers must be able to tell "expired, go
// re-authenticate" apart from "reject outright", so parse errors are
// classified rather than returned raw.
var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenInvalid   = errors.New("token invalid")
)

// AccessClaims are embedded in access tokens: the full public identity, so
// protected endpoints can respond without a lookup when they only need
// the claim fields.
type AccessClaims struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	jwt.RegisteredClaims
}

// RefreshClaims carry only the user id. Refresh tokens are long-lived and
// must not leak mutable profile fields.
type RefreshClaims struct {
	jwt.RegisteredClaims
}

// AccessToken is a signed JWT access token along with its expiry. Access
// tokens are short-lived, stateless and verified purely by signature and
// expiry; the server never stores them.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// RefreshToken is a signed long-lived JWT used to rotate sessions. The
// exact string is also persisted on the user row; a presented refresh
// token is only honoured while it matches that stored value.
type RefreshToken struct {
	Token string
	Exp   time.Time
}

// NewAccessToken builds and signs an HS256 JWT for a user with the access
// secret. The subject is the user id; username, email and full name ride
// along as custom claims. ttlMin controls the expiry in minutes.
func NewAccessToken(secret string, u model.User, ttlMin int) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := AccessClaims{
		Username: u.Username,
		Email:    u.Email,
		FullName: u.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(u.ID, 10),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// NewRefreshToken builds and signs an HS256 JWT carrying only the user id,
// using the refresh secret. ttlDays controls the expiry in days. The jti
// makes every issued token distinct even within the same second, which
// rotation relies on: the new stored value must differ from the old.
func NewRefreshToken(secret string, userID uint64, ttlDays int) (RefreshToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlDays) * 24 * time.Hour)
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(userID, 10),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken validates signature and expiry with the access secret
// and returns the embedded claims. Failures are one of ErrTokenExpired,
// ErrTokenMalformed or ErrTokenInvalid.
func ParseAccessToken(secret, raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := parseInto(secret, raw, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// ParseRefreshToken is the refresh-secret counterpart of ParseAccessToken.
func ParseRefreshToken(secret, raw string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := parseInto(secret, raw, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// UserID extracts the numeric subject from registered claims.
func UserID(c jwt.RegisteredClaims) (uint64, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad subject %q", ErrTokenInvalid, c.Subject)
	}
	return id, nil
}

func parseInto(secret, raw string, claims jwt.Claims) error {
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		// Reject tokens signed with anything but HMAC.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return classify(err)
	}
	if !tok.Valid {
		return ErrTokenInvalid
	}
	return nil
}

// classify maps the library's sentinel errors onto our kinds. The library
// only reports expiry for structurally sound tokens, so a well-formed but
// expired token always comes back as ErrTokenExpired, never malformed.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	default:
		return ErrTokenInvalid
	}
}
