package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"go-auth-service/internal/model"
)

const testSecret = "test-secret"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeUserStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]model.User
	err    error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[int64]model.User{}}
}

func (s *fakeUserStore) FindByID(_ context.Context, id int64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return model.User{}, s.err
	}
	u, ok := s.users[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return u, nil
}

func (s *fakeUserStore) FindByUsername(_ context.Context, username string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return model.User{}, s.err
	}
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

func (s *fakeUserStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := s.FindByUsername(ctx, username)
	if err == model.ErrUserNotFound {
		return false, nil
	}
	return err == nil, err
}

func (s *fakeUserStore) Create(_ context.Context, u model.User) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return model.User{}, s.err
	}
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return model.User{}, model.ErrUserAlreadyExists
		}
	}
	s.nextID++
	u.ID = s.nextID
	u.CreatedAt = time.Now().UTC()
	s.users[u.ID] = u
	return u, nil
}

func (s *fakeUserStore) List(_ context.Context) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]model.User, 0, len(s.users))
	for id := int64(1); id <= s.nextID; id++ {
		if u, ok := s.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// fakeTokenStore mimics TokenRepository, including the conditional replace.
type fakeTokenStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]model.Token
	writes int

	// beforeReplace runs without the lock held, ahead of the conditional
	// write, so tests can interleave a competing refresh.
	beforeReplace func()
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{rows: map[int64]model.Token{}}
}

func (s *fakeTokenStore) FindByUserID(_ context.Context, userID int64) (model.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := int64(1); id <= s.nextID; id++ {
		if row, ok := s.rows[id]; ok && row.UserID == userID {
			return row, nil
		}
	}
	return model.Token{}, model.ErrTokenNotFound
}

func (s *fakeTokenStore) FindByToken(_ context.Context, token string) (model.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.Token == token {
			return row, nil
		}
	}
	return model.Token{}, model.ErrTokenNotFound
}

func (s *fakeTokenStore) Create(_ context.Context, t model.Token) (model.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t.ID = s.nextID
	s.rows[t.ID] = t
	s.writes++
	return t, nil
}

func (s *fakeTokenStore) Replace(_ context.Context, id int64, oldToken string, newToken string) error {
	if hook := s.takeHook(); hook != nil {
		hook()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok || row.Token != oldToken {
		return model.ErrTokenConflict
	}
	row.Token = newToken
	s.rows[id] = row
	s.writes++
	return nil
}

func (s *fakeTokenStore) takeHook() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	hook := s.beforeReplace
	s.beforeReplace = nil
	return hook
}

func (s *fakeTokenStore) row(id int64) model.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[id]
}

func (s *fakeTokenStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *fakeTokenStore) rowCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// authFixture wires the auth core against in-memory stores.
type authFixture struct {
	clock        *testClock
	users        *fakeUserStore
	tokens       *fakeTokenStore
	hasher       *PasswordHasher
	codec        *TokenCodec
	refresher    *TokenRefresher
	verifier     *TokenVerifier
	login        *LoginService
	guard        *AuthorizationGuard
	registration *RegistrationService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	f := &authFixture{
		clock:  newTestClock(),
		users:  newFakeUserStore(),
		tokens: newFakeTokenStore(),
		hasher: NewPasswordHasher(bcrypt.MinCost),
	}

	codec, err := NewTokenCodec(testSecret, WithClock(f.clock.Now))
	require.NoError(t, err)
	f.codec = codec
	f.refresher = NewTokenRefresher(codec, f.tokens, DefaultTokenTTL)
	f.verifier = NewTokenVerifier(codec, f.refresher)
	f.login = NewLoginService(f.users, f.tokens, f.hasher, codec, f.verifier, DefaultTokenTTL, nil)
	f.guard = NewAuthorizationGuard(f.users, f.tokens, f.verifier, nil)
	f.registration = NewRegistrationService(f.users, f.hasher, acceptAll{}, nil)

	return f
}

func (f *authFixture) seedUser(t *testing.T, username string, password string, role model.Role) model.User {
	t.Helper()

	hashed, err := f.hasher.Hash(password)
	require.NoError(t, err)

	u, err := f.users.Create(context.Background(), model.User{
		Username:       username,
		HashedPassword: hashed,
		Role:           role,
		FullName:       username,
	})
	require.NoError(t, err)
	return u
}

type acceptAll struct{}

func (acceptAll) ValidateRegistration(model.RegistrationRequest) error { return nil }
