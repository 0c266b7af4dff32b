package auth

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef-test"

// epoch is the reference issuance time for tests.
var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type memStore struct {
	mu         sync.Mutex
	principals map[string]*Principal
	err        error
	lookups    int
}

func newMemStore() *memStore {
	return &memStore{principals: make(map[string]*Principal)}
}

func (s *memStore) put(t *testing.T, username, password string, roles ...string) *Principal {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	p := &Principal{
		Username:     username,
		PasswordHash: string(hash),
		Active:       true,
		Roles:        NewRoleSet(roles...),
	}
	s.mu.Lock()
	s.principals[username] = p
	s.mu.Unlock()
	return p
}

func (s *memStore) update(username string, fn func(p *Principal)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.principals[username])
}

func (s *memStore) FindByUsername(_ context.Context, username string) (*Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.principals[username]
	if !ok {
		return nil, fmt.Errorf("user %q: %w", username, ErrNoSuchPrincipal)
	}
	cp := *p
	cp.Roles = NewRoleSet(p.Roles...)
	return &cp, nil
}

func newTestCodec(t *testing.T, ttl time.Duration) *TokenCodec {
	t.Helper()
	key, err := NewSigningKey(testSecret)
	require.NoError(t, err)
	codec, err := NewTokenCodec(CodecConfig{Key: key, TTL: ttl})
	require.NoError(t, err)
	return codec
}

func newMockClock(at time.Time) *clock.Mock {
	clk := clock.NewMock()
	clk.Set(at)
	return clk
}
