package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/video-share-backend/internal/model"
	"github.com/iliyamo/video-share-backend/internal/repository"
	"github.com/iliyamo/video-share-backend/internal/utils"
)

const accessSecret = "test-access-secret"

type fakeLoader struct{ users map[uint64]model.User }

func (f *fakeLoader) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func authedEcho(t *testing.T) (*echo.Echo, *fakeLoader) {
	t.Helper()
	loader := &fakeLoader{users: map[uint64]model.User{
		7: {ID: 7, Username: "alice", Email: "a@x.com", FullName: "Alice Example",
			PasswordHash: "hash", RefreshToken: "stored-token"},
	}}
	e := echo.New()
	e.GET("/protected", func(c echo.Context) error {
		u, ok := CurrentUser(c)
		require.True(t, ok)
		// The attached identity must be sanitized.
		require.Empty(t, u.PasswordHash)
		require.Empty(t, u.RefreshToken)
		return c.String(http.StatusOK, strconv.FormatUint(CurrentUserID(c), 10))
	}, RequireAuth(accessSecret, loader))
	return e, loader
}

func issueToken(t *testing.T, ttlMin int) string {
	t.Helper()
	at, err := utils.NewAccessToken(accessSecret, model.User{
		ID: 7, Username: "alice", Email: "a@x.com", FullName: "Alice Example",
	}, ttlMin)
	require.NoError(t, err)
	return at.Token
}

func TestRequireAuthMissingToken(t *testing.T) {
	e, _ := authedEcho(t)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthBearer(t *testing.T) {
	e, _ := authedEcho(t)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, 15))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "7", rec.Body.String())
}

func TestRequireAuthCookie(t *testing.T) {
	e, _ := authedEcho(t)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookieName, Value: issueToken(t, 15)})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuthPrefersCookie(t *testing.T) {
	// A valid cookie wins even when the header carries garbage.
	e, _ := authedEcho(t)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookieName, Value: issueToken(t, 15)})
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuthExpiredToken(t *testing.T) {
	e, _ := authedEcho(t)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, -1))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	// Expiry is reported distinctly so clients know to re-authenticate.
	require.Contains(t, rec.Body.String(), "expired")
}

func TestRequireAuthTamperedToken(t *testing.T) {
	e, _ := authedEcho(t)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, 15)+"x")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid token")
}

func TestRequireAuthDeletedUser(t *testing.T) {
	e, loader := authedEcho(t)
	delete(loader.users, 7)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, 15))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
