package access

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/thereayou/cipherchat/internal/codec"
	"github.com/thereayou/cipherchat/internal/models"
	"github.com/thereayou/cipherchat/internal/store"
	"github.com/thereayou/cipherchat/pkg/auth"
)

const (
	roomA    = "11111"
	roomB    = "22222"
	password = "password-a"
)

type fakeRevocations struct {
	revoked map[string]bool
	err     error
}

func (f *fakeRevocations) IsRevoked(_ context.Context, token string) (bool, error) {
	return f.revoked[token], f.err
}

func setup(t *testing.T, rev RevocationChecker) (*Guard, *store.Store, *auth.JWTManager) {
	t.Helper()
	c, err := codec.NewRandom()
	require.NoError(t, err)
	s := store.New(c, store.Options{HashCost: bcrypt.MinCost})
	_, err = s.CreateRoom(roomA, password)
	require.NoError(t, err)
	_, err = s.CreateRoom(roomB, "password-b")
	require.NoError(t, err)

	jwtm := auth.NewJWTManager("secret", time.Hour)
	return NewGuard(s, jwtm, rev, nil), s, jwtm
}

func TestAuthorizeProofs(t *testing.T) {
	g, s, jwtm := setup(t, nil)
	ctx := context.Background()

	tokenA, err := jwtm.Generate(roomA)
	require.NoError(t, err)
	tokenB, err := jwtm.Generate(roomB)
	require.NoError(t, err)

	require.NoError(t, s.Update(roomA, func(r *store.Room) error {
		r.AddOrigin("10.0.0.7")
		return nil
	}))

	tests := []struct {
		name  string
		proof Proof
		err   error
	}{
		{"credential", Proof{Credential: tokenA}, nil},
		{"credential for another room", Proof{Credential: tokenB}, models.ErrUnauthorized},
		{"credential for another room with password", Proof{Credential: tokenB, Password: password}, nil},
		{"verified origin", Proof{Origin: "10.0.0.7"}, nil},
		{"unknown origin", Proof{Origin: "10.0.0.8"}, models.ErrUnauthorized},
		{"password", Proof{Password: password}, nil},
		{"wrong password", Proof{Password: "password-b"}, models.ErrUnauthorized},
		{"nothing", Proof{}, models.ErrUnauthorized},
		{"garbage credential", Proof{Credential: "x.y.z"}, models.ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.Authorize(ctx, roomA, tt.proof)
			if tt.err == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}

	assert.ErrorIs(t, g.Authorize(ctx, "99999", Proof{Password: password}), models.ErrNotFound)
}

func TestAuthorizeHasNoSideEffects(t *testing.T) {
	g, s, _ := setup(t, nil)
	ctx := context.Background()

	require.NoError(t, g.Authorize(ctx, roomA, Proof{Password: password, Origin: "10.0.0.9"}))
	require.NoError(t, s.View(roomA, func(r *store.Room) error {
		assert.False(t, r.HasOrigin("10.0.0.9"))
		return nil
	}))
}

func TestAuthorizeAdminIgnoresOrigin(t *testing.T) {
	g, _, jwtm := setup(t, nil)
	ctx := context.Background()

	require.NoError(t, g.VerifyOrigin(ctx, roomA, Proof{Password: password}, "10.0.0.7"))
	assert.NoError(t, g.Authorize(ctx, roomA, Proof{Origin: "10.0.0.7"}))
	assert.ErrorIs(t, g.AuthorizeAdmin(ctx, roomA, Proof{Origin: "10.0.0.7"}), models.ErrUnauthorized)

	token, err := jwtm.Generate(roomA)
	require.NoError(t, err)
	assert.NoError(t, g.AuthorizeAdmin(ctx, roomA, Proof{Credential: token}))
	assert.NoError(t, g.AuthorizeAdmin(ctx, roomA, Proof{Password: password}))
}

func TestVerifyOrigin(t *testing.T) {
	g, s, _ := setup(t, nil)
	ctx := context.Background()

	assert.ErrorIs(t, g.VerifyOrigin(ctx, roomA, Proof{Password: "wrong-password"}, "10.0.0.1"), models.ErrUnauthorized)
	assert.ErrorIs(t, g.VerifyOrigin(ctx, roomA, Proof{Password: password}, ""), models.ErrValidation)
	require.NoError(t, g.VerifyOrigin(ctx, roomA, Proof{Password: password}, "10.0.0.1"))

	require.NoError(t, s.View(roomA, func(r *store.Room) error {
		assert.True(t, r.HasOrigin("10.0.0.1"))
		return nil
	}))
	require.NoError(t, s.View(roomB, func(r *store.Room) error {
		assert.False(t, r.HasOrigin("10.0.0.1"))
		return nil
	}))
}

func TestRevokedCredential(t *testing.T) {
	rev := &fakeRevocations{revoked: map[string]bool{}}
	g, _, jwtm := setup(t, rev)
	ctx := context.Background()

	token, err := jwtm.Generate(roomA)
	require.NoError(t, err)
	require.NoError(t, g.Authorize(ctx, roomA, Proof{Credential: token}))

	rev.revoked[token] = true
	assert.ErrorIs(t, g.Authorize(ctx, roomA, Proof{Credential: token}), models.ErrUnauthorized)
	_, err = g.CredentialRoom(ctx, token)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	rev.revoked[token] = false
	rev.err = errors.New("redis down")
	assert.ErrorIs(t, g.Authorize(ctx, roomA, Proof{Credential: token}), models.ErrUnauthorized)
}

func TestIsPasswordHolder(t *testing.T) {
	g, _, _ := setup(t, nil)
	assert.True(t, g.IsPasswordHolder(roomA, password))
	assert.False(t, g.IsPasswordHolder(roomA, "password-b"))
	assert.False(t, g.IsPasswordHolder(roomA, ""))
	assert.False(t, g.IsPasswordHolder("99999", password))
}

type blockingRevocations struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingRevocations) IsRevoked(context.Context, string) (bool, error) {
	close(b.entered)
	<-b.release
	return false, nil
}

func TestSlowRevocationCheckDoesNotHoldRoomLock(t *testing.T) {
	rev := &blockingRevocations{entered: make(chan struct{}), release: make(chan struct{})}
	g, s, jwtm := setup(t, rev)
	ctx := context.Background()

	token, err := jwtm.Generate(roomA)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- g.Authorize(ctx, roomA, Proof{Credential: token}) }()
	<-rev.entered

	updated := make(chan struct{})
	go func() {
		_ = s.Update(roomA, func(r *store.Room) error {
			r.AddOrigin("10.0.0.9")
			return nil
		})
		close(updated)
	}()
	select {
	case <-updated:
	case <-time.After(2 * time.Second):
		t.Fatal("room write blocked behind a revocation lookup")
	}

	close(rev.release)
	assert.NoError(t, <-done)
}

func TestVerifyOriginAfterRecreate(t *testing.T) {
	g, s, _ := setup(t, nil)
	ctx := context.Background()

	hash, err := g.passwordHash(roomA)
	require.NoError(t, err)
	_, err = s.CreateRoom(roomA, password)
	require.NoError(t, err)

	fresh, err := g.passwordHash(roomA)
	require.NoError(t, err)
	assert.NotEqual(t, hash, fresh)
	require.NoError(t, g.VerifyOrigin(ctx, roomA, Proof{Password: password}, "10.0.0.3"))
	require.NoError(t, g.Authorize(ctx, roomA, Proof{Origin: "10.0.0.3"}))
}
