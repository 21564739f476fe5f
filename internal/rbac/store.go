package rbac

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/peopledesk/peopledesk/internal/shared"
)

const principalSessionKey = "principal"

// SessionStore keeps the principal snapshot inside the HTTP session. The
// snapshot is replaced wholesale on login and removed on logout.
type SessionStore struct {
	Logger *slog.Logger
	Now    func() time.Time
}

// Save replaces any principal stored in sess.
func (s SessionStore) Save(sess *shared.Session, p Principal) error {
	if sess == nil {
		return shared.ErrNotFound
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	sess.Set(principalSessionKey, string(data))
	return nil
}

// Load returns the principal held by sess. Absent, malformed or expired
// snapshots yield nil.
func (s SessionStore) Load(sess *shared.Session) *Principal {
	if sess == nil {
		return nil
	}
	raw := sess.Get(principalSessionKey)
	if raw == "" {
		return nil
	}
	p, err := ParsePrincipal([]byte(raw))
	if err != nil {
		s.warn("rbac discard session principal", slog.String("session", sess.ID), slog.Any("error", err))
		sess.Delete(principalSessionKey)
		return nil
	}
	if p.Expired(s.now()) {
		sess.Delete(principalSessionKey)
		return nil
	}
	return &p
}

// Clear removes the principal from sess.
func (s SessionStore) Clear(sess *shared.Session) {
	if sess == nil {
		return
	}
	sess.Delete(principalSessionKey)
}

func (s SessionStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s SessionStore) warn(msg string, attrs ...any) {
	if s.Logger != nil {
		s.Logger.Warn(msg, attrs...)
	}
}

type principalContextKey struct{}

// ContextWithPrincipal attaches p to ctx. A nil p is stored as "not loaded".
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext returns the principal attached to ctx, or nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}
