// Package report composes the query executor, table discovery, identity
// resolution, and the cache layer into the typed report sections the
// dashboard renders.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"usage-report/internal/cache"
	"usage-report/internal/domain"
	"usage-report/internal/engine"
)

const (
	defaultQueryTTL   = 5 * time.Minute
	defaultResolveTTL = 1 * time.Hour

	defaultTopUsersLimit = 10

	queryNamespace = "query"
	tableNamespace = "glue-table"
)

// QueryExecutor runs a query to completion and returns the decoded table.
type QueryExecutor interface {
	Execute(ctx context.Context, sql string) (*domain.ResultTable, error)
}

// TableResolver resolves the backing table name.
type TableResolver interface {
	Resolve(ctx context.Context) (string, error)
}

// NameResolver maps user ids to display names.
type NameResolver interface {
	ResolveOne(ctx context.Context, userID string) string
	ResolveBatch(ctx context.Context, ids []string) map[string]string
}

// Service produces the report sections. Query results are memoized in a
// short-lived cache keyed by the exact SQL text; the table name lives in the
// long-lived cache shared with identity resolution.
type Service struct {
	exec   QueryExecutor
	tables TableResolver
	names  NameResolver

	short *cache.Store
	long  *cache.Store

	queryTTL   time.Duration
	resolveTTL time.Duration

	sections []Section
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a Service with default TTLs.
func NewService(exec QueryExecutor, tables TableResolver, names NameResolver, short, long *cache.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		exec:       exec,
		tables:     tables,
		names:      names,
		short:      short,
		long:       long,
		queryTTL:   defaultQueryTTL,
		resolveTTL: defaultResolveTTL,
		logger:     logger,
		now:        time.Now,
	}
}

// SetTTLs overrides the query-result and resolution cache windows.
func (s *Service) SetTTLs(queryTTL, resolveTTL time.Duration) {
	if queryTTL > 0 {
		s.queryTTL = queryTTL
	}
	if resolveTTL > 0 {
		s.resolveTTL = resolveTTL
	}
}

// SetSections installs custom report sections (see sections.go).
func (s *Service) SetSections(sections []Section) {
	s.sections = sections
}

// Refresh drops every cached query result, the resolved table name, and all
// cached identity mappings. The next request repopulates from the backend.
func (s *Service) Refresh() {
	s.short.InvalidateAll()
	s.long.InvalidateAll()
	s.logger.Info("report caches invalidated")
}

// Overall returns the organization-wide totals.
func (s *Service) Overall(ctx context.Context) (*OverallMetrics, error) {
	table, err := s.run(ctx, queryOverall)
	if err != nil {
		return nil, err
	}
	if table.RowCount() == 0 {
		return &OverallMetrics{}, nil
	}
	row := newRowReader(table, 0)
	return &OverallMetrics{
		TotalUsers:          row.Int("total_users"),
		TotalMessages:       row.Int("total_messages"),
		TotalConversations:  row.Int("total_conversations"),
		TotalCredits:        row.Float("total_credits"),
		TotalOverageCredits: row.Float("total_overage"),
	}, nil
}

// ClientTypes returns the per-client-type breakdown.
func (s *Service) ClientTypes(ctx context.Context) ([]ClientTypeUsage, error) {
	table, err := s.run(ctx, queryClientTypes)
	if err != nil {
		return nil, err
	}
	out := make([]ClientTypeUsage, 0, table.RowCount())
	for i := range table.Rows {
		row := newRowReader(table, i)
		out = append(out, ClientTypeUsage{
			ClientType:         row.String("client_type"),
			UniqueUsers:        row.Int("unique_users"),
			TotalMessages:      row.Int("total_messages"),
			TotalConversations: row.Int("total_conversations"),
			TotalCredits:       row.Float("total_credits"),
		})
	}
	return out, nil
}

// TopUsers returns the top users by message volume with display names
// resolved. A non-positive limit falls back to the default of 10.
func (s *Service) TopUsers(ctx context.Context, limit int) ([]UserUsage, error) {
	if limit <= 0 {
		limit = defaultTopUsersLimit
	}
	table, err := s.runf(ctx, queryTopUsers, limit)
	if err != nil {
		return nil, err
	}

	out := make([]UserUsage, 0, table.RowCount())
	ids := make([]string, 0, table.RowCount())
	for i := range table.Rows {
		row := newRowReader(table, i)
		id := cleanUserID(row.String("userid"))
		ids = append(ids, id)
		out = append(out, UserUsage{
			UserID:             id,
			TotalMessages:      row.Int("total_messages"),
			TotalConversations: row.Int("total_conversations"),
			TotalCredits:       row.Float("total_credits"),
		})
	}

	names := s.names.ResolveBatch(ctx, ids)
	for i := range out {
		out[i].Username = names[out[i].UserID]
	}
	return out, nil
}

// Daily returns the per-day activity trend.
func (s *Service) Daily(ctx context.Context) ([]DailyUsage, error) {
	table, err := s.run(ctx, queryDaily)
	if err != nil {
		return nil, err
	}
	out := make([]DailyUsage, 0, table.RowCount())
	for i := range table.Rows {
		row := newRowReader(table, i)
		out = append(out, DailyUsage{
			Date:          row.String("date"),
			Messages:      row.Int("messages"),
			Conversations: row.Int("conversations"),
			Credits:       row.Float("credits"),
			ActiveUsers:   row.Int("active_users"),
		})
	}
	return out, nil
}

// DailyByClientType returns the per-day per-client-type trend.
func (s *Service) DailyByClientType(ctx context.Context) ([]DailyClientUsage, error) {
	table, err := s.run(ctx, queryDailyClientTypes)
	if err != nil {
		return nil, err
	}
	out := make([]DailyClientUsage, 0, table.RowCount())
	for i := range table.Rows {
		row := newRowReader(table, i)
		out = append(out, DailyClientUsage{
			Date:          row.String("date"),
			ClientType:    row.String("client_type"),
			Messages:      row.Int("messages"),
			Conversations: row.Int("conversations"),
		})
	}
	return out, nil
}

// CreditsByUser returns per-user credit consumption with display names
// resolved, ordered by credits used.
func (s *Service) CreditsByUser(ctx context.Context) ([]UserCredits, error) {
	table, err := s.run(ctx, queryCreditsByUser)
	if err != nil {
		return nil, err
	}

	out := make([]UserCredits, 0, table.RowCount())
	ids := make([]string, 0, table.RowCount())
	for i := range table.Rows {
		row := newRowReader(table, i)
		id := cleanUserID(row.String("userid"))
		ids = append(ids, id)
		credits := row.Float("total_credits")
		overage := row.Float("total_overage")
		out = append(out, UserCredits{
			UserID:          id,
			TotalCredits:    credits,
			OverageCredits:  overage,
			OverageCap:      row.Float("overage_cap"),
			OverageEnabled:  row.String("overage_enabled"),
			CombinedCredits: credits + overage,
		})
	}

	names := s.names.ResolveBatch(ctx, ids)
	for i := range out {
		out[i].Username = names[out[i].UserID]
	}
	return out, nil
}

// Tiers returns the per-subscription-tier breakdown.
func (s *Service) Tiers(ctx context.Context) ([]TierUsage, error) {
	table, err := s.run(ctx, queryTiers)
	if err != nil {
		return nil, err
	}
	out := make([]TierUsage, 0, table.RowCount())
	for i := range table.Rows {
		row := newRowReader(table, i)
		out = append(out, TierUsage{
			SubscriptionTier: row.String("subscription_tier"),
			UniqueUsers:      row.Int("unique_users"),
			TotalMessages:    row.Int("total_messages"),
			TotalCredits:     row.Float("total_credits"),
		})
	}
	return out, nil
}

// Engagement returns per-user totals bucketed into engagement categories.
func (s *Service) Engagement(ctx context.Context) ([]UserEngagement, error) {
	table, err := s.run(ctx, queryEngagement)
	if err != nil {
		return nil, err
	}

	out := make([]UserEngagement, 0, table.RowCount())
	ids := make([]string, 0, table.RowCount())
	for i := range table.Rows {
		row := newRowReader(table, i)
		id := cleanUserID(row.String("userid"))
		ids = append(ids, id)
		messages := row.Int("total_messages")
		conversations := row.Int("total_conversations")
		out = append(out, UserEngagement{
			UserID:             id,
			TotalMessages:      messages,
			TotalConversations: conversations,
			TotalCredits:       row.Float("total_credits"),
			Category:           categorize(messages, conversations),
		})
	}

	names := s.names.ResolveBatch(ctx, ids)
	for i := range out {
		out[i].Username = names[out[i].UserID]
	}
	return out, nil
}

// Activity returns the per-user activity timeline with display names
// resolved, most recently active first.
func (s *Service) Activity(ctx context.Context) ([]UserActivity, error) {
	table, err := s.run(ctx, queryActivity)
	if err != nil {
		return nil, err
	}

	out := make([]UserActivity, 0, table.RowCount())
	ids := make([]string, 0, table.RowCount())
	for i := range table.Rows {
		row := newRowReader(table, i)
		id := cleanUserID(row.String("userid"))
		ids = append(ids, id)
		last := row.String("last_active_date")
		out = append(out, UserActivity{
			UserID:              id,
			FirstActiveDate:     row.String("first_active_date"),
			LastActiveDate:      last,
			ActiveDays:          row.Int("active_days"),
			DaysSinceLastActive: daysSince(s.now(), last),
		})
	}

	names := s.names.ResolveBatch(ctx, ids)
	for i := range out {
		out[i].Username = names[out[i].UserID]
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DaysSinceLastActive < out[j].DaysSinceLastActive
	})
	return out, nil
}

// daysSince counts whole days between a date cell and now. Unparsable dates
// degrade to zero like every other cell.
func daysSince(now time.Time, date string) int {
	d, err := time.Parse("2006-01-02", strings.TrimSpace(date))
	if err != nil {
		return 0
	}
	days := int(now.Sub(d).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// run renders a single-placeholder query against the resolved table and
// fetches it through the cache.
func (s *Service) run(ctx context.Context, queryTemplate string) (*domain.ResultTable, error) {
	return s.runf(ctx, queryTemplate)
}

// runf renders a query template whose first placeholder is the table name,
// followed by any extra arguments.
func (s *Service) runf(ctx context.Context, queryTemplate string, args ...interface{}) (*domain.ResultTable, error) {
	tableName, err := s.tableName(ctx)
	if err != nil {
		return nil, err
	}
	sql := fmt.Sprintf(queryTemplate, append([]interface{}{tableName}, args...)...)
	return s.fetch(ctx, sql)
}

// fetch memoizes decoded result tables by exact SQL text. The cache keeps its
// own snapshot; callers get a copy they are free to mutate.
func (s *Service) fetch(ctx context.Context, sql string) (*domain.ResultTable, error) {
	table, err := cache.Fetch(ctx, s.short, queryNamespace, sql, s.queryTTL, func(ctx context.Context) (*domain.ResultTable, error) {
		return s.exec.Execute(ctx, sql)
	})
	if err != nil {
		return nil, err
	}
	return table.Clone(), nil
}

// tableName resolves the backing table through the long-lived cache, so at
// most one discovery call happens per cache window.
func (s *Service) tableName(ctx context.Context) (string, error) {
	return cache.Fetch(ctx, s.long, tableNamespace, "", s.resolveTTL, func(ctx context.Context) (string, error) {
		return s.tables.Resolve(ctx)
	})
}

// cleanUserID strips stray quote characters the crawler occasionally leaves
// around ids.
func cleanUserID(id string) string {
	return strings.NewReplacer("'", "", `"`, "").Replace(id)
}

// rowReader reads cells from one row by column label. Missing columns and
// unparsable cells degrade to zero values; enrichment must never fail a page.
type rowReader struct {
	index map[string]int
	cells []string
}

func newRowReader(t *domain.ResultTable, row int) rowReader {
	index := make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		index[c] = i
	}
	return rowReader{index: index, cells: t.Rows[row]}
}

func (r rowReader) String(column string) string {
	i, ok := r.index[column]
	if !ok || i >= len(r.cells) {
		return ""
	}
	return r.cells[i]
}

func (r rowReader) Int(column string) int {
	return engine.ToInt(r.String(column), 0)
}

func (r rowReader) Float(column string) float64 {
	return engine.ToFloat(r.String(column), 0)
}
