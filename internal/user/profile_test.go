package user

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/timerenting/internal/auth"
	"github.com/sudo-init-do/timerenting/internal/models"
	"github.com/sudo-init-do/timerenting/internal/store"
	"github.com/sudo-init-do/timerenting/internal/store/memory"
)

func seed(t *testing.T, st *memory.Store) {
	t.Helper()
	now := time.Now()
	require.NoError(t, st.Update(context.Background(), func(tx store.Tx) error {
		for _, u := range []*models.User{
			{Username: "alice", Email: "alice@example.com", TimeCredits: 40, Introduction: "hi", CreatedAt: now},
			{Username: "bob", Email: "bob@example.com", TimeCredits: 10, CreatedAt: now},
		} {
			if err := tx.CreateUser(u); err != nil {
				return err
			}
		}
		for _, s := range []*models.Service{
			{ID: "s1", Title: "Yoga", RequiredTimeCredits: 5, PostedBy: "alice", IsFinished: true, CreatedAt: now},
			{ID: "s2", Title: "Pilates", RequiredTimeCredits: 5, PostedBy: "alice", CreatedAt: now.Add(time.Second)},
		} {
			if err := tx.CreateService(s); err != nil {
				return err
			}
		}
		return tx.CreateReview(&models.Review{ID: "r1", ServiceID: "s1", FromUser: "bob", ToUser: "alice", Rating: 4, CreatedAt: now})
	}))
}

func TestProfile(t *testing.T) {
	t.Parallel()
	st := memory.New()
	seed(t, st)
	svc := NewService(st)

	p, err := svc.Profile(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "hi", p.Introduction)
	assert.Equal(t, int64(40), p.TimeCredits)
	assert.Equal(t, 2, p.PostedCount)
	assert.Equal(t, 1, p.FinishedCount)
	assert.Equal(t, models.RatingSummary{Count: 1, Average: 4}, p.Reviews)

	_, err = svc.Profile(context.Background(), "nobody")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdateProfile(t *testing.T) {
	t.Parallel()
	st := memory.New()
	seed(t, st)
	svc := NewService(st)
	sess := auth.Session{Username: "bob"}

	intro := "  I fix bikes  "
	u, err := svc.UpdateProfile(context.Background(), sess, UpdateProfileRequest{Introduction: &intro})
	require.NoError(t, err)
	assert.Equal(t, "I fix bikes", u.Introduction)
	assert.Equal(t, "bob@example.com", u.Email)

	bad := "not-an-email"
	_, err = svc.UpdateProfile(context.Background(), sess, UpdateProfileRequest{Email: &bad})
	assert.ErrorIs(t, err, models.ErrValidation)

	long := strings.Repeat("x", maxIntroductionLength+1)
	_, err = svc.UpdateProfile(context.Background(), sess, UpdateProfileRequest{Introduction: &long})
	assert.ErrorIs(t, err, models.ErrValidation)

	p, err := svc.Profile(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, "I fix bikes", p.Introduction)
}

func TestHandler_GetPublicProfile(t *testing.T) {
	t.Parallel()
	st := memory.New()
	seed(t, st)
	e := echo.New()
	h := NewHandler(NewService(st))
	e.GET("/users/:username/profile", h.GetPublicProfile)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/alice/profile", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"posted_services":2`)
	assert.NotContains(t, rec.Body.String(), "alice@example.com")

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/ghost/profile", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
