package audit

import (
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peopledesk/peopledesk/internal/rbac"
	"github.com/peopledesk/peopledesk/internal/table"
)

func newRouter(repo *stubRepo, perms ...rbac.Permission) http.Handler {
	p := &rbac.Principal{UserID: 9, Role: rbac.Role{Name: "HR Manager", Permissions: perms}}
	h := NewHandler(nil, NewService(repo), rbac.Guard{})
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(rbac.ContextWithPrincipal(r.Context(), p)))
		})
	})
	r.Route("/audit", h.MountRoutes)
	return r
}

var auditRead = rbac.Permission{Resource: "audit", Actions: []rbac.Action{rbac.ActionRead}}

func TestTimelineRequiresAuditRead(t *testing.T) {
	repo := &stubRepo{}
	router := newRouter(repo, rbac.Permission{Resource: "employees", Actions: []rbac.Action{rbac.ActionManage}})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/audit", nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/audit/export.csv", nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestTimelineParsesWindowAndState(t *testing.T) {
	repo := &stubRepo{rows: []Entry{{ID: 4, Action: "role.assign", Entity: "role", EntityID: "2", Meta: json.RawMessage(`{}`)}}, total: 1}
	router := newRouter(repo, auditRead)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/audit?from=2026-03-01&to=2026-03-05&filter[entity]=role", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), repo.window.From)
	assert.Equal(t, time.Date(2026, 3, 5, 23, 59, 59, 999999999, time.UTC), repo.window.To)
	assert.Equal(t, table.State{Page: 1, PageSize: 20, SortBy: "occurred_at", SortDesc: true, Filters: map[string]string{"entity": "role"}}, repo.state)

	var body struct {
		Rows []Entry `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Rows, 1)
	assert.Equal(t, "role.assign", body.Rows[0].Action)
}

func TestTimelineRejectsMalformedWindow(t *testing.T) {
	router := newRouter(&stubRepo{}, auditRead)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/audit?from=yesterday", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/audit?from=2026-03-05&to=2026-03-01", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestExportWritesCSV(t *testing.T) {
	at := time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC)
	repo := &stubRepo{rows: []Entry{{ActorID: 1, ActorEmail: "admin@peopledesk.local", Action: "role.delete", Entity: "role", EntityID: "5", Meta: json.RawMessage(`{"name":"Temp"}`), OccurredAt: at}}}
	router := newRouter(repo, auditRead)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/audit/export.csv?from=2026-03-01&to=2026-03-03", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/csv")

	records, err := csv.NewReader(rr.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "occurred_at", records[0][0])
	assert.Equal(t, []string{"2026-03-02T08:30:00Z", "1", "admin@peopledesk.local", "role.delete", "role", "5", `{"name":"Temp"}`}, records[1])
}
