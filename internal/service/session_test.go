package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/video-share-backend/internal/config"
	"github.com/iliyamo/video-share-backend/internal/model"
	"github.com/iliyamo/video-share-backend/internal/repository"
	"github.com/iliyamo/video-share-backend/internal/utils"
)

// fakeUserStore is an in-memory UserStore. The mutex makes
// SwapRefreshToken an atomic compare-and-set, mirroring the single
// UPDATE the SQL repository issues.
type fakeUserStore struct {
	mu     sync.Mutex
	users  map[uint64]model.User
	writes int // counts every mutating call
}

func newFakeUserStore(users ...model.User) *fakeUserStore {
	s := &fakeUserStore{users: make(map[uint64]model.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeUserStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrUserNotFound
}

func (s *fakeUserStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (s *fakeUserStore) SetRefreshToken(_ context.Context, id uint64, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.RefreshToken = token
	s.users[id] = u
	s.writes++
	return nil
}

func (s *fakeUserStore) SwapRefreshToken(_ context.Context, id uint64, old, new string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok || u.RefreshToken != old {
		return false, nil
	}
	u.RefreshToken = new
	s.users[id] = u
	s.writes++
	return true, nil
}

func (s *fakeUserStore) ClearRefreshToken(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		u.RefreshToken = ""
		s.users[id] = u
		s.writes++
	}
	return nil
}

func (s *fakeUserStore) UpdatePassword(_ context.Context, id uint64, password string, cost int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	s.users[id] = u
	s.writes++
	return nil
}

func (s *fakeUserStore) stored(id uint64) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id]
}

func testConfig() config.Config {
	return config.Config{
		AccessSecret:   "test-access-secret",
		RefreshSecret:  "test-refresh-secret",
		AccessTTLMin:   15,
		RefreshTTLDays: 7,
		BcryptCost:     bcrypt.MinCost,
	}
}

func testStore(t *testing.T) *fakeUserStore {
	t.Helper()
	hash, err := utils.HashPassword("secret1", bcrypt.MinCost)
	require.NoError(t, err)
	return newFakeUserStore(model.User{
		ID:           1,
		Username:     "alice",
		Email:        "a@x.com",
		FullName:     "Alice Example",
		PasswordHash: hash,
	})
}

func TestLoginIssuesAndPersistsPair(t *testing.T) {
	store := testStore(t)
	m := NewSessionManager(testConfig(), store)

	u, pair, err := m.Login(context.Background(), "a@x.com", "secret1")
	require.NoError(t, err)
	require.Equal(t, uint64(1), u.ID)
	// The returned identity must not carry credentials.
	require.Empty(t, u.PasswordHash)
	require.Empty(t, u.RefreshToken)

	require.NotEmpty(t, pair.Access.Token)
	require.NotEmpty(t, pair.Refresh.Token)
	require.NotEqual(t, pair.Access.Token, pair.Refresh.Token)
	require.Equal(t, pair.Refresh.Token, store.stored(1).RefreshToken)
}

func TestLoginUnknownEmail(t *testing.T) {
	store := testStore(t)
	m := NewSessionManager(testConfig(), store)

	_, _, err := m.Login(context.Background(), "nobody@x.com", "secret1")
	require.ErrorIs(t, err, ErrNotFound)
	require.Zero(t, store.writes)
}

func TestLoginWrongPasswordWritesNothing(t *testing.T) {
	store := testStore(t)
	m := NewSessionManager(testConfig(), store)

	_, _, err := m.Login(context.Background(), "a@x.com", "wrongpass")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	require.Zero(t, store.writes)
	require.Empty(t, store.stored(1).RefreshToken)
}

func TestRefreshRotatesPair(t *testing.T) {
	store := testStore(t)
	m := NewSessionManager(testConfig(), store)

	_, first, err := m.Login(context.Background(), "a@x.com", "secret1")
	require.NoError(t, err)

	u, second, err := m.Refresh(context.Background(), first.Refresh.Token)
	require.NoError(t, err)
	require.Equal(t, uint64(1), u.ID)
	require.NotEqual(t, first.Refresh.Token, second.Refresh.Token)
	require.Equal(t, second.Refresh.Token, store.stored(1).RefreshToken)

	// The superseded token must now be rejected even though its signature
	// and expiry are still good.
	_, _, err = m.Refresh(context.Background(), first.Refresh.Token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshAfterLogout(t *testing.T) {
	store := testStore(t)
	m := NewSessionManager(testConfig(), store)

	_, pair, err := m.Login(context.Background(), "a@x.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, m.Logout(context.Background(), 1))
	require.Empty(t, store.stored(1).RefreshToken)

	_, _, err = m.Refresh(context.Background(), pair.Refresh.Token)
	require.ErrorIs(t, err, ErrInvalidToken)

	// Logout is idempotent.
	require.NoError(t, m.Logout(context.Background(), 1))
}

func TestRefreshGarbageToken(t *testing.T) {
	m := NewSessionManager(testConfig(), testStore(t))

	_, _, err := m.Refresh(context.Background(), "not-a-jwt")
	require.ErrorIs(t, err, ErrInvalidToken)
	require.ErrorIs(t, err, utils.ErrTokenMalformed)
}

func TestRefreshForeignSignature(t *testing.T) {
	store := testStore(t)
	m := NewSessionManager(testConfig(), store)

	forged, err := utils.NewRefreshToken("attacker-secret", 1, 7)
	require.NoError(t, err)

	_, _, err = m.Refresh(context.Background(), forged.Token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshUnknownUser(t *testing.T) {
	cfg := testConfig()
	store := testStore(t)
	m := NewSessionManager(cfg, store)

	ghost, err := utils.NewRefreshToken(cfg.RefreshSecret, 999, 7)
	require.NoError(t, err)

	_, _, err = m.Refresh(context.Background(), ghost.Token)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentRefreshSingleWinner(t *testing.T) {
	store := testStore(t)
	m := NewSessionManager(testConfig(), store)

	_, pair, err := m.Login(context.Background(), "a@x.com", "secret1")
	require.NoError(t, err)

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = m.Refresh(context.Background(), pair.Refresh.Token)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			require.ErrorIs(t, err, ErrInvalidToken)
		}
	}
	require.Equal(t, 1, wins, "exactly one concurrent refresh may rotate the token")
}

func TestChangePassword(t *testing.T) {
	store := testStore(t)
	m := NewSessionManager(testConfig(), store)

	err := m.ChangePassword(context.Background(), 1, "wrongpass", "newpass")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	require.True(t, utils.VerifyPassword(store.stored(1).PasswordHash, "secret1"))

	require.NoError(t, m.ChangePassword(context.Background(), 1, "secret1", "newpass"))
	require.True(t, utils.VerifyPassword(store.stored(1).PasswordHash, "newpass"))
	require.False(t, utils.VerifyPassword(store.stored(1).PasswordHash, "secret1"))

	_, _, err = m.Login(context.Background(), "a@x.com", "newpass")
	require.NoError(t, err)
}

func TestChangePasswordUnknownUser(t *testing.T) {
	m := NewSessionManager(testConfig(), testStore(t))
	err := m.ChangePassword(context.Background(), 999, "x", "y")
	require.ErrorIs(t, err, ErrNotFound)
}
