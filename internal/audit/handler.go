package audit

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/peopledesk/peopledesk/internal/platform/httpx"
	"github.com/peopledesk/peopledesk/internal/rbac"
	"github.com/peopledesk/peopledesk/internal/shared"
	"github.com/peopledesk/peopledesk/internal/table"
)

const (
	exportRateLimit  = 10
	exportRateWindow = time.Minute
)

// TimelineService is the service surface consumed by Handler.
type TimelineService interface {
	Timeline(ctx context.Context, w Window, st table.State) (table.Page[Entry], error)
	Export(ctx context.Context, w Window, st table.State) ([]Entry, error)
}

// Handler serves the audit timeline.
type Handler struct {
	logger  *slog.Logger
	service TimelineService
	guard   rbac.Guard
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service TimelineService, guard rbac.Guard) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, guard: guard}
}

var listDefaults = table.Defaults{PageSize: 20, MaxPageSize: 50, SortBy: "occurred_at", SortDesc: true}

// MountRoutes registers the timeline and its CSV export.
func (h *Handler) MountRoutes(r chi.Router) {
	limiter := httprate.Limit(exportRateLimit, exportRateWindow, httprate.WithKeyFuncs(exportKey))
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(shared.ResourceAudit, rbac.ActionRead))
		r.Get("/", h.timeline)
		r.With(limiter).Get("/export.csv", h.export)
	})
}

// exportKey limits exports per signed-in user, falling back to client IP.
func exportKey(r *http.Request) (string, error) {
	if p := rbac.PrincipalFromContext(r.Context()); p != nil && p.UserID > 0 {
		return "user:" + strconv.FormatInt(p.UserID, 10), nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	window, err := parseWindow(r.URL.Query())
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	page, err := h.service.Timeline(r.Context(), window, table.ParseState(r.URL.Query(), listDefaults))
	if err != nil {
		h.fail(w, "audit timeline", err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	window, err := parseWindow(r.URL.Query())
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	rows, err := h.service.Export(r.Context(), window, table.ParseState(r.URL.Query(), listDefaults))
	if err != nil {
		h.fail(w, "audit export", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="audit.csv"`)
	w.WriteHeader(http.StatusOK)
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"occurred_at", "actor_id", "actor_email", "action", "entity", "entity_id", "meta"})
	for _, e := range rows {
		_ = cw.Write([]string{
			e.OccurredAt.UTC().Format(time.RFC3339),
			strconv.FormatInt(e.ActorID, 10),
			e.ActorEmail,
			e.Action,
			e.Entity,
			e.EntityID,
			string(e.Meta),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.logger.Warn("audit export write", slog.Any("error", err))
	}
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}

// parseWindow reads from/to as RFC3339 timestamps or plain dates. A plain
// "to" date covers the whole day.
func parseWindow(q url.Values) (Window, error) {
	var (
		win Window
		err error
	)
	if v := q.Get("from"); v != "" {
		if win.From, _, err = parseTime(v); err != nil {
			return Window{}, fmt.Errorf("invalid from: %s", v)
		}
	}
	if v := q.Get("to"); v != "" {
		var dateOnly bool
		if win.To, dateOnly, err = parseTime(v); err != nil {
			return Window{}, fmt.Errorf("invalid to: %s", v)
		}
		if dateOnly {
			win.To = win.To.Add(24*time.Hour - time.Nanosecond)
		}
	}
	return win, nil
}

func parseTime(v string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, false, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	return t, true, err
}
