package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/peopledesk/peopledesk/internal/auth"
	"github.com/peopledesk/peopledesk/internal/rbac"
	"github.com/peopledesk/peopledesk/internal/shared"
	_ "github.com/peopledesk/peopledesk/internal/testing/guard"
)

type stubRepo struct {
	user     *auth.User
	sessions map[string]int64
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || !strings.EqualFold(s.user.Email, email) {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	s.sessions[id] = userID
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

type stubRoles struct {
	role rbac.Role
}

func (s stubRoles) RoleForUser(ctx context.Context, userID int64) (rbac.Role, error) {
	return s.role, nil
}

type fixture struct {
	router   http.Handler
	sessions *shared.SessionManager
	store    rbac.SessionStore
	repo     *stubRepo
	current  *shared.Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithCSRF(t, shared.NewCSRFManager("csrfsecret"))
}

func newFixtureWithCSRF(t *testing.T, csrf auth.CSRFTokens) *fixture {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := &fixture{
		sessions: shared.NewSessionManager(client, "test_session", "secret", time.Hour, false),
		store:    rbac.SessionStore{},
		repo: &stubRepo{
			user:     &auth.User{ID: 4, Email: "nadia@example.com", Name: "Nadia", PasswordHash: string(hashed), IsActive: true},
			sessions: map[string]int64{},
		},
	}
	roles := stubRoles{role: rbac.Role{ID: 2, Name: "Employee", Permissions: []rbac.Permission{{Resource: "Leave", Actions: []rbac.Action{rbac.ActionCreate, rbac.ActionRead}}}}}
	h := auth.NewHandler(nil, auth.NewService(f.repo, roles), f.sessions, csrf, f.store)

	r := chi.NewRouter()
	r.Route("/auth", h.MountRoutes)
	f.router = r
	return f
}

// do runs one request through the handler with the session cookie from the
// previous response attached, mirroring the session middleware.
func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if f.current != nil {
		req.AddCookie(&http.Cookie{Name: f.sessions.CookieName(), Value: f.current.ID})
	}
	sess, err := f.sessions.Load(context.Background(), req)
	require.NoError(t, err)
	ctx := shared.ContextWithSession(req.Context(), sess)
	ctx = rbac.ContextWithPrincipal(ctx, f.store.Load(sess))

	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req.WithContext(ctx))
	require.NoError(t, f.sessions.Commit(ctx, rr, sess))
	f.current = sess
	return rr
}

func csrfToken(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	token, _ := body["csrf_token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestCSRFIssuesStableToken(t *testing.T) {
	f := newFixture(t)
	first := csrfToken(t, f.do(t, http.MethodGet, "/auth/csrf", ""))
	second := csrfToken(t, f.do(t, http.MethodGet, "/auth/csrf", ""))
	assert.Equal(t, first, second)
}

func TestLoginInvalidCredentials(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, "/auth/csrf", "")

	rr := f.do(t, http.MethodPost, "/auth/login", `{"email":"nadia@example.com","password":"wrong-password"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Nil(t, f.store.Load(f.current))
	assert.Empty(t, f.repo.sessions)
}

func TestLoginValidation(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodPost, "/auth/login", `{"email":"not-an-email","password":"x"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), `"Email":"email"`)
	assert.Contains(t, rr.Body.String(), `"Password":"min"`)

	rr = f.do(t, http.MethodPost, "/auth/login", `not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLoginStoresPrincipalAndRotatesSession(t *testing.T) {
	f := newFixture(t)
	before := csrfToken(t, f.do(t, http.MethodGet, "/auth/csrf", ""))
	anonymousID := f.current.ID

	rr := f.do(t, http.MethodPost, "/auth/login", `{"email":"Nadia@example.com","password":"correct-horse"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotEqual(t, anonymousID, f.current.ID)
	assert.NotEqual(t, before, csrfToken(t, rr))
	assert.Equal(t, int64(4), f.repo.sessions[f.current.ID])

	p := f.store.Load(f.current)
	require.NotNil(t, p)
	assert.Equal(t, int64(4), p.UserID)
	assert.Equal(t, "Employee", p.Role.Name)
	assert.True(t, p.Can("leave", rbac.ActionCreate))
	assert.False(t, p.Can("leave", rbac.ActionDelete))
	assert.WithinDuration(t, time.Now().Add(time.Hour), p.ExpiresAt, time.Minute)

	rr = f.do(t, http.MethodGet, "/auth/me", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"email":"nadia@example.com"`)
}

func TestMeRequiresLogin(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodGet, "/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLogoutClearsSession(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, "/auth/csrf", "")
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/auth/login", `{"email":"nadia@example.com","password":"correct-horse"}`).Code)
	loggedInID := f.current.ID

	rr := f.do(t, http.MethodPost, "/auth/logout", "")
	require.Equal(t, http.StatusNoContent, rr.Code)
	assert.True(t, f.current.Destroyed())
	assert.NotContains(t, f.repo.sessions, loggedInID)

	f.current = &shared.Session{ID: loggedInID}
	rr = f.do(t, http.MethodGet, "/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

type brokenCSRF struct{}

func (brokenCSRF) EnsureToken(*shared.Session) (string, error) {
	return "", errors.New("token source unavailable")
}

func (brokenCSRF) RotateToken(*shared.Session) (string, error) {
	return "", errors.New("token source unavailable")
}

func TestTokenFailuresAreServerErrors(t *testing.T) {
	f := newFixtureWithCSRF(t, brokenCSRF{})

	rr := f.do(t, http.MethodGet, "/auth/csrf", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	rr = f.do(t, http.MethodPost, "/auth/login", `{"email":"nadia@example.com","password":"correct-horse"}`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "csrf_token")
	assert.Nil(t, f.store.Load(f.current))
	assert.Empty(t, f.repo.sessions)
}

func TestMeTokenFailureIsServerError(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/auth/login", `{"email":"nadia@example.com","password":"correct-horse"}`).Code)

	broken := newFixtureWithCSRF(t, brokenCSRF{})
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	ctx := shared.ContextWithSession(req.Context(), f.current)
	ctx = rbac.ContextWithPrincipal(ctx, f.store.Load(f.current))
	rr := httptest.NewRecorder()
	broken.router.ServeHTTP(rr, req.WithContext(ctx))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
