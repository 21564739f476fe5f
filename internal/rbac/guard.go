package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/peopledesk/peopledesk/internal/platform/httpx"
	"github.com/peopledesk/peopledesk/internal/shared"
)

// AuthorizeOption tunes Authorize.
type AuthorizeOption func(*authorizeOptions)

type authorizeOptions struct {
	requireAll bool
}

// RequireAllActions makes Authorize demand every listed action instead of any.
func RequireAllActions() AuthorizeOption {
	return func(o *authorizeOptions) { o.requireAll = true }
}

// Authorize is the guard predicate: it reports whether p may perform the
// listed actions on resource. Without RequireAllActions one action suffices.
func Authorize(p *Principal, resource string, actions []Action, opts ...AuthorizeOption) bool {
	var o authorizeOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.requireAll {
		return p.CanAll(resource, actions...)
	}
	return p.CanAny(resource, actions...)
}

// DecisionRecorder observes guard outcomes.
type DecisionRecorder interface {
	RecordDecision(resource, action string, allowed bool)
}

// Guard gates HTTP handlers on the principal attached to the request.
type Guard struct {
	Store    SessionStore
	Logger   *slog.Logger
	Recorder DecisionRecorder
	// OnDeny renders the response for a denied request. The default writes a
	// problem document with 401 when no principal is loaded and 403 otherwise.
	OnDeny func(w http.ResponseWriter, r *http.Request, p *Principal)
}

// Attach loads the principal from the session and stores it in the request
// context. It never rejects a request.
func (g Guard) Attach(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := g.Store.Load(shared.SessionFromContext(r.Context()))
		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), p)))
	})
}

// Require admits the request when any of actions is permitted on resource.
func (g Guard) Require(resource string, actions ...Action) func(http.Handler) http.Handler {
	return g.require(resource, actions, false)
}

// RequireAll admits the request only when every action is permitted on resource.
func (g Guard) RequireAll(resource string, actions ...Action) func(http.Handler) http.Handler {
	return g.require(resource, actions, true)
}

func (g Guard) require(resource string, actions []Action, all bool) func(http.Handler) http.Handler {
	var opts []AuthorizeOption
	if all {
		opts = append(opts, RequireAllActions())
	}
	label := joinActions(actions)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFromContext(r.Context())
			allowed := Authorize(p, resource, actions, opts...)
			if g.Recorder != nil {
				g.Recorder.RecordDecision(resource, label, allowed)
			}
			if allowed {
				next.ServeHTTP(w, r)
				return
			}
			if g.Logger != nil {
				attrs := []any{slog.String("resource", resource), slog.String("actions", label), slog.String("path", r.URL.Path)}
				if p != nil {
					attrs = append(attrs, slog.Int64("user_id", p.UserID))
				}
				g.Logger.Info("rbac denied", attrs...)
			}
			g.deny(w, r, p)
		})
	}
}

func (g Guard) deny(w http.ResponseWriter, r *http.Request, p *Principal) {
	if g.OnDeny != nil {
		g.OnDeny(w, r, p)
		return
	}
	if p == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient permissions")
}

func joinActions(actions []Action) string {
	parts := make([]string, len(actions))
	for i, a := range actions {
		parts[i] = string(a)
	}
	return strings.Join(parts, "|")
}
