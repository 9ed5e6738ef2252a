package report

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"usage-report/internal/cache"
	"usage-report/internal/domain"
)

// fakeExecutor returns canned tables keyed by a substring of the SQL text.
type fakeExecutor struct {
	tables map[string]*domain.ResultTable
	err    error
	calls  []string
}

func (f *fakeExecutor) Execute(ctx context.Context, sql string) (*domain.ResultTable, error) {
	f.calls = append(f.calls, sql)
	if f.err != nil {
		return nil, f.err
	}
	for needle, table := range f.tables {
		if strings.Contains(sql, needle) {
			return table, nil
		}
	}
	return &domain.ResultTable{}, nil
}

type fakeTables struct {
	name  string
	err   error
	calls int
}

func (f *fakeTables) Resolve(ctx context.Context) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.name, nil
}

// fakeNames uppercases ids so enrichment is visible in assertions.
type fakeNames struct {
	calls int
}

func (f *fakeNames) ResolveOne(ctx context.Context, userID string) string {
	f.calls++
	return strings.ToUpper(userID)
}

func (f *fakeNames) ResolveBatch(ctx context.Context, ids []string) map[string]string {
	names := make(map[string]string, len(ids))
	for _, id := range ids {
		names[id] = f.ResolveOne(ctx, id)
	}
	return names
}

func table(columns []string, rows ...[]string) *domain.ResultTable {
	return &domain.ResultTable{Columns: columns, Rows: rows}
}

func newTestService(exec *fakeExecutor, tables *fakeTables) (*Service, *fakeNames) {
	names := &fakeNames{}
	svc := NewService(exec, tables, names, cache.New(), cache.New(), nil)
	return svc, names
}

func TestOverallCoercesTotals(t *testing.T) {
	exec := &fakeExecutor{tables: map[string]*domain.ResultTable{
		"COUNT(DISTINCT userid) as total_users": table(
			[]string{"total_users", "total_messages", "total_conversations", "total_credits", "total_overage"},
			[]string{"37", "1204", "211", "4305.5", "None"},
		),
	}}
	svc, _ := newTestService(exec, &fakeTables{name: "usage_table"})

	got, err := svc.Overall(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 37, got.TotalUsers)
	assert.Equal(t, 1204, got.TotalMessages)
	assert.Equal(t, 211, got.TotalConversations)
	assert.Equal(t, 4305.5, got.TotalCredits)
	assert.Equal(t, 0.0, got.TotalOverageCredits, "None coerces to the default")
}

func TestOverallEmptyResult(t *testing.T) {
	exec := &fakeExecutor{}
	svc, _ := newTestService(exec, &fakeTables{name: "usage_table"})

	got, err := svc.Overall(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &OverallMetrics{}, got)
}

func TestTopUsersEnrichesAndCleansIDs(t *testing.T) {
	exec := &fakeExecutor{tables: map[string]*domain.ResultTable{
		"LIMIT 10": table(
			[]string{"userid", "total_messages", "total_conversations", "total_credits"},
			[]string{`"u-1"`, "300", "40", "12.5"},
			[]string{"'u-2'", "120", "15", "3.0"},
		),
	}}
	svc, names := newTestService(exec, &fakeTables{name: "usage_table"})

	got, err := svc.TopUsers(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "u-1", got[0].UserID, "quotes are stripped")
	assert.Equal(t, "U-1", got[0].Username)
	assert.Equal(t, 300, got[0].TotalMessages)
	assert.Equal(t, "U-2", got[1].Username)
	assert.Equal(t, 2, names.calls)
}

func TestTopUsersHonorsLimit(t *testing.T) {
	exec := &fakeExecutor{}
	svc, _ := newTestService(exec, &fakeTables{name: "usage_table"})

	_, err := svc.TopUsers(context.Background(), 25)
	require.NoError(t, err)
	require.Len(t, exec.calls, 1)
	assert.Contains(t, exec.calls[0], "LIMIT 25")
}

func TestQueriesAreCachedByExactSQL(t *testing.T) {
	exec := &fakeExecutor{}
	svc, _ := newTestService(exec, &fakeTables{name: "usage_table"})
	ctx := context.Background()

	_, err := svc.Daily(ctx)
	require.NoError(t, err)
	_, err = svc.Daily(ctx)
	require.NoError(t, err)
	assert.Len(t, exec.calls, 1, "second call within the TTL hits the cache")

	_, err = svc.Tiers(ctx)
	require.NoError(t, err)
	assert.Len(t, exec.calls, 2, "a different query is a different key")
}

func TestTableResolutionIsCached(t *testing.T) {
	exec := &fakeExecutor{}
	tables := &fakeTables{name: "usage_table"}
	svc, _ := newTestService(exec, tables)
	ctx := context.Background()

	_, err := svc.Daily(ctx)
	require.NoError(t, err)
	_, err = svc.Tiers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, tables.calls, "one discovery call per cache window")
}

func TestRefreshInvalidatesBothCaches(t *testing.T) {
	exec := &fakeExecutor{}
	tables := &fakeTables{name: "usage_table"}
	svc, _ := newTestService(exec, tables)
	ctx := context.Background()

	_, err := svc.Daily(ctx)
	require.NoError(t, err)

	svc.Refresh()

	_, err = svc.Daily(ctx)
	require.NoError(t, err)
	assert.Len(t, exec.calls, 2, "query re-executes after refresh")
	assert.Equal(t, 2, tables.calls, "table re-resolves after refresh")
}

func TestResolveFailurePropagates(t *testing.T) {
	exec := &fakeExecutor{}
	tables := &fakeTables{err: domain.ErrNoResourceFound("no tables found in Glue database %q", "usage_db")}
	svc, _ := newTestService(exec, tables)

	_, err := svc.Overall(context.Background())
	var notFound *domain.NoResourceFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Empty(t, exec.calls, "no query runs without a table")
}

func TestQueryFailurePropagates(t *testing.T) {
	exec := &fakeExecutor{err: domain.ErrQueryExecution("Syntax error in SQL")}
	svc, _ := newTestService(exec, &fakeTables{name: "usage_table"})

	_, err := svc.ClientTypes(context.Background())
	var execErr *domain.QueryExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Contains(t, err.Error(), "Syntax error in SQL")
}

func TestEngagementCategories(t *testing.T) {
	exec := &fakeExecutor{tables: map[string]*domain.ResultTable{
		"ORDER BY total_messages DESC": table(
			[]string{"userid", "total_messages", "total_conversations", "total_credits"},
			[]string{"u-1", "250", "30", "80"},
			[]string{"u-2", "45", "8", "12"},
			[]string{"u-3", "3", "1", "0.5"},
			[]string{"u-4", "0", "0", "0"},
			[]string{"u-5", "0", "30", "5"},
			[]string{"u-6", "2", "7", "1"},
		),
	}}
	svc, _ := newTestService(exec, &fakeTables{name: "usage_table"})

	got, err := svc.Engagement(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 6)
	assert.Equal(t, CategoryPower, got[0].Category)
	assert.Equal(t, CategoryActive, got[1].Category)
	assert.Equal(t, CategoryLight, got[2].Category)
	assert.Equal(t, CategoryInactive, got[3].Category)
	assert.Equal(t, CategoryPower, got[4].Category, "20+ conversations outweigh zero messages")
	assert.Equal(t, CategoryActive, got[5].Category, "5+ conversations outweigh low messages")
}

func TestActivityTimeline(t *testing.T) {
	exec := &fakeExecutor{tables: map[string]*domain.ResultTable{
		"last_active_date": table(
			[]string{"userid", "last_active_date", "first_active_date", "active_days"},
			[]string{"'u-1'", "2026-08-10", "2026-03-01", "42"},
			[]string{"u-2", "2026-08-14", "2026-07-30", "9"},
			[]string{"u-3", "not-a-date", "2026-01-01", "3"},
		),
	}}
	svc, names := newTestService(exec, &fakeTables{name: "usage_table"})
	svc.now = func() time.Time { return time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC) }

	got, err := svc.Activity(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Most recently active first; the unparsable date degrades to zero days.
	assert.Equal(t, "u-3", got[0].UserID)
	assert.Equal(t, 0, got[0].DaysSinceLastActive)
	assert.Equal(t, "u-2", got[1].UserID)
	assert.Equal(t, 1, got[1].DaysSinceLastActive)
	assert.Equal(t, "u-1", got[2].UserID, "quotes are stripped")
	assert.Equal(t, 5, got[2].DaysSinceLastActive)
	assert.Equal(t, "U-1", got[2].Username)
	assert.Equal(t, 42, got[2].ActiveDays)
	assert.Equal(t, "2026-03-01", got[2].FirstActiveDate)
	assert.Equal(t, 3, names.calls)
}

func TestCachedTablesAreIsolated(t *testing.T) {
	yamlDoc := "sections:\n  - name: raw\n    sql: SELECT userid FROM {{table}}\n"
	sections, err := LoadSections([]byte(yamlDoc))
	require.NoError(t, err)

	exec := &fakeExecutor{tables: map[string]*domain.ResultTable{
		"SELECT userid": table([]string{"userid"}, []string{"u-1"}),
	}}
	svc, _ := newTestService(exec, &fakeTables{name: "usage_table"})
	svc.SetSections(sections)
	ctx := context.Background()

	first, err := svc.Custom(ctx, "raw")
	require.NoError(t, err)
	first.Rows[0][0] = "mutated"

	second, err := svc.Custom(ctx, "raw")
	require.NoError(t, err)
	assert.Equal(t, "u-1", second.Rows[0][0], "callers get a snapshot, not the cached table")
	assert.Len(t, exec.calls, 1, "the second read is a cache hit")
}

func TestCreditsByUserCombinesOverage(t *testing.T) {
	exec := &fakeExecutor{tables: map[string]*domain.ResultTable{
		"overage_cap": table(
			[]string{"userid", "total_credits", "total_overage", "overage_cap", "overage_enabled"},
			[]string{"u-1", "100.5", "20.5", "500", "true"},
		),
	}}
	svc, _ := newTestService(exec, &fakeTables{name: "usage_table"})

	got, err := svc.CreditsByUser(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 121.0, got[0].CombinedCredits)
	assert.Equal(t, "true", got[0].OverageEnabled)
}

func TestCustomSections(t *testing.T) {
	yamlDoc := `
sections:
  - name: by_profile
    title: Usage by Profile
    sql: SELECT profileid, COUNT(*) FROM {{table}} GROUP BY profileid
`
	sections, err := LoadSections([]byte(yamlDoc))
	require.NoError(t, err)
	require.Len(t, sections, 1)

	exec := &fakeExecutor{}
	svc, _ := newTestService(exec, &fakeTables{name: "usage_table"})
	svc.SetSections(sections)

	_, err = svc.Custom(context.Background(), "by_profile")
	require.NoError(t, err)
	require.Len(t, exec.calls, 1)
	assert.Equal(t, "SELECT profileid, COUNT(*) FROM usage_table GROUP BY profileid", exec.calls[0])

	_, err = svc.Custom(context.Background(), "missing")
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestLoadSectionsValidation(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing name", "sections:\n  - sql: SELECT 1\n"},
		{"missing sql", "sections:\n  - name: a\n"},
		{"duplicate name", "sections:\n  - name: a\n    sql: SELECT 1\n  - name: a\n    sql: SELECT 2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSections([]byte(tt.doc))
			var validation *domain.ValidationError
			require.ErrorAs(t, err, &validation)
		})
	}
}

func TestSectionSQLRendering(t *testing.T) {
	// Queries embed the table name via a single format placeholder; make
	// sure none of the templates drifted.
	for _, tmpl := range []string{queryOverall, queryClientTypes, queryDaily, queryDailyClientTypes, queryCreditsByUser, queryTiers, queryEngagement, queryActivity} {
		rendered := fmt.Sprintf(tmpl, "usage_table")
		assert.Contains(t, rendered, "FROM usage_table")
		assert.NotContains(t, rendered, "%!")
	}
	rendered := fmt.Sprintf(queryTopUsers, "usage_table", 10)
	assert.Contains(t, rendered, "FROM usage_table")
	assert.Contains(t, rendered, "LIMIT 10")
}
