package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/timerenting/internal/models"
	"github.com/sudo-init-do/timerenting/internal/store"
	"github.com/sudo-init-do/timerenting/internal/store/memory"
)

type grantRecorder struct{ grants map[string]int64 }

func (g *grantRecorder) Grant(tx store.Tx, u *models.User, amount int64) error {
	u.TimeCredits += amount
	g.grants[u.Username] = amount
	return tx.UpdateUser(u)
}

type welcomeRecorder struct {
	users []string
	err   error
}

func (w *welcomeRecorder) Welcome(_ context.Context, u models.User) error {
	w.users = append(w.users, u.Username)
	return w.err
}

func newTestService(t *testing.T) (*Service, *memory.Store, *grantRecorder) {
	t.Helper()
	st := memory.New()
	g := &grantRecorder{grants: map[string]int64{}}
	return NewService(st, g, NewIssuer("test-secret", time.Hour), 10), st, g
}

func TestIssuer_RoundTrip(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)
	token, exp, err := issuer.Issue("alice")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	sess, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", sess.Username)
	assert.WithinDuration(t, exp, sess.ExpiresAt, time.Second)
}

func TestIssuer_RejectsBadTokens(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)
	token, _, err := issuer.Issue("alice")
	require.NoError(t, err)

	_, err = NewIssuer("other-secret", time.Hour).Parse(token)
	assert.Error(t, err)

	_, err = issuer.Parse("not.a.token")
	assert.Error(t, err)

	stale := NewIssuer("secret", time.Hour)
	stale.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, err := stale.Issue("alice")
	require.NoError(t, err)
	_, err = issuer.Parse(old)
	assert.Error(t, err)
}

func TestSignup_GrantsInitialBalance(t *testing.T) {
	svc, st, g := newTestService(t)
	w := &welcomeRecorder{err: errors.New("queue down")}
	svc.WithWelcomer(w)

	resp, err := svc.Signup(context.Background(), SignupRequest{Username: " alice ", Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "alice", resp.Username)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, int64(10), g.grants["alice"])
	assert.Equal(t, []string{"alice"}, w.users)

	require.NoError(t, st.View(context.Background(), func(tx store.Tx) error {
		u, err := tx.GetUser("alice")
		require.NoError(t, err)
		assert.Equal(t, int64(10), u.TimeCredits)
		assert.NotEqual(t, "secret1", u.PasswordHash)
		return nil
	}))
}

func TestSignup_Validation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, SignupRequest{Username: "a!", Password: "secret1"})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.Signup(ctx, SignupRequest{Username: "alice", Password: "123"})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.Signup(ctx, SignupRequest{Username: "alice", Email: "not-an-email", Password: "secret1"})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.Signup(ctx, SignupRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)
	_, err = svc.Signup(ctx, SignupRequest{Username: "alice", Password: "secret2"})
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestLoginAndChangePassword(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Signup(ctx, SignupRequest{Username: "bob", Password: "secret1"})
	require.NoError(t, err)

	resp, err := svc.Login(ctx, LoginRequest{Username: "bob", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "bob", resp.Username)

	_, err = svc.Login(ctx, LoginRequest{Username: "bob", Password: "wrong"})
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
	_, err = svc.Login(ctx, LoginRequest{Username: "ghost", Password: "secret1"})
	assert.ErrorIs(t, err, models.ErrUnauthenticated)

	sess := Session{Username: "bob"}
	err = svc.ChangePassword(ctx, sess, ChangePasswordRequest{CurrentPassword: "wrong", NewPassword: "secret2"})
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
	require.NoError(t, svc.ChangePassword(ctx, sess, ChangePasswordRequest{CurrentPassword: "secret1", NewPassword: "secret2"}))

	_, err = svc.Login(ctx, LoginRequest{Username: "bob", Password: "secret1"})
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
	_, err = svc.Login(ctx, LoginRequest{Username: "bob", Password: "secret2"})
	assert.NoError(t, err)

	me, err := svc.Me(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, "bob", me.Username)
}
