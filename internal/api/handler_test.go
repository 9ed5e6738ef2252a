package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"usage-report/internal/domain"
	"usage-report/internal/service/report"
)

// mockReports lets each test script the service behavior.
type mockReports struct {
	overall     *report.OverallMetrics
	clientTypes []report.ClientTypeUsage
	topUsers    []report.UserUsage
	err         error

	topUsersLimit int
	refreshCalls  int
}

func (m *mockReports) Overall(ctx context.Context) (*report.OverallMetrics, error) {
	return m.overall, m.err
}

func (m *mockReports) ClientTypes(ctx context.Context) ([]report.ClientTypeUsage, error) {
	return m.clientTypes, m.err
}

func (m *mockReports) TopUsers(ctx context.Context, limit int) ([]report.UserUsage, error) {
	m.topUsersLimit = limit
	return m.topUsers, m.err
}

func (m *mockReports) Daily(ctx context.Context) ([]report.DailyUsage, error) {
	return nil, m.err
}

func (m *mockReports) DailyByClientType(ctx context.Context) ([]report.DailyClientUsage, error) {
	return nil, m.err
}

func (m *mockReports) CreditsByUser(ctx context.Context) ([]report.UserCredits, error) {
	return nil, m.err
}

func (m *mockReports) Tiers(ctx context.Context) ([]report.TierUsage, error) {
	return nil, m.err
}

func (m *mockReports) Engagement(ctx context.Context) ([]report.UserEngagement, error) {
	return nil, m.err
}

func (m *mockReports) Activity(ctx context.Context) ([]report.UserActivity, error) {
	return []report.UserActivity{{UserID: "u-1", Username: "alice", ActiveDays: 14, DaysSinceLastActive: 2}}, m.err
}

func (m *mockReports) Sections() []report.Section {
	return []report.Section{{Name: "by_profile", Title: "Usage by Profile", SQL: "SELECT 1"}}
}

func (m *mockReports) Custom(ctx context.Context, name string) (*domain.ResultTable, error) {
	if name != "by_profile" {
		return nil, domain.ErrValidation("unknown report section %q", name)
	}
	return &domain.ResultTable{Columns: []string{"profileid"}}, m.err
}

func (m *mockReports) Refresh() { m.refreshCalls++ }

func serve(t *testing.T, m *mockReports, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	h := NewHandler(m, nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestOverallEndpoint(t *testing.T) {
	m := &mockReports{overall: &report.OverallMetrics{TotalUsers: 12, TotalCredits: 33.5}}
	rec := serve(t, m, http.MethodGet, "/report/overall")

	require.Equal(t, http.StatusOK, rec.Code)
	var got report.OverallMetrics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 12, got.TotalUsers)
	assert.Equal(t, 33.5, got.TotalCredits)
}

func TestTopUsersLimitValidation(t *testing.T) {
	m := &mockReports{}

	rec := serve(t, m, http.MethodGet, "/report/top-users?limit=15")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 15, m.topUsersLimit)

	rec = serve(t, m, http.MethodGet, "/report/top-users?limit=banana")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, m, http.MethodGet, "/report/top-users?limit=1000")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCauses bool
	}{
		{"validation", domain.ErrValidation("bad input"), http.StatusBadRequest, false},
		{"no resource", domain.ErrNoResourceFound("no tables found"), http.StatusNotFound, true},
		{"query failed", domain.ErrQueryExecution("Syntax error in SQL"), http.StatusBadGateway, true},
		{"backend down", domain.ErrBackendUnavailable("dial tcp"), http.StatusServiceUnavailable, true},
		{"timeout", domain.ErrQueryTimeout("took too long"), http.StatusGatewayTimeout, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockReports{err: tt.err}
			rec := serve(t, m, http.MethodGet, "/report/overall")

			require.Equal(t, tt.wantStatus, rec.Code)
			var resp struct {
				Code    int      `json:"code"`
				Message string   `json:"message"`
				Causes  []string `json:"likely_causes"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantStatus, resp.Code)
			assert.NotEmpty(t, resp.Message)
			if tt.wantCauses {
				assert.NotEmpty(t, resp.Causes, "server failures carry the checklist")
			} else {
				assert.Empty(t, resp.Causes)
			}
		})
	}
}

func TestActivityEndpoint(t *testing.T) {
	m := &mockReports{}
	rec := serve(t, m, http.MethodGet, "/report/activity")

	require.Equal(t, http.StatusOK, rec.Code)
	var got []report.UserActivity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "alice", got[0].Username)
	assert.Equal(t, 2, got[0].DaysSinceLastActive)
}

func TestQueryFailureMessageKeepsReason(t *testing.T) {
	m := &mockReports{err: domain.ErrQueryExecution("Syntax error in SQL")}
	rec := serve(t, m, http.MethodGet, "/report/daily")

	assert.Contains(t, rec.Body.String(), "Syntax error in SQL")
}

func TestRefreshEndpoint(t *testing.T) {
	m := &mockReports{}
	rec := serve(t, m, http.MethodPost, "/report/refresh")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, m.refreshCalls)
}

func TestSectionEndpoints(t *testing.T) {
	m := &mockReports{}

	rec := serve(t, m, http.MethodGet, "/report/sections")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "by_profile")
	assert.NotContains(t, rec.Body.String(), "SELECT", "sql bodies are not exposed")

	rec = serve(t, m, http.MethodGet, "/report/sections/by_profile")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "profileid")

	rec = serve(t, m, http.MethodGet, "/report/sections/nope")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
