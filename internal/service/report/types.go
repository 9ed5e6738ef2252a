package report

// OverallMetrics is the organization-wide totals section.
type OverallMetrics struct {
	TotalUsers          int     `json:"total_users"`
	TotalMessages       int     `json:"total_messages"`
	TotalConversations  int     `json:"total_conversations"`
	TotalCredits        float64 `json:"total_credits"`
	TotalOverageCredits float64 `json:"total_overage_credits"`
}

// ClientTypeUsage is one row of the per-client-type breakdown.
type ClientTypeUsage struct {
	ClientType         string  `json:"client_type"`
	UniqueUsers        int     `json:"unique_users"`
	TotalMessages      int     `json:"total_messages"`
	TotalConversations int     `json:"total_conversations"`
	TotalCredits       float64 `json:"total_credits"`
}

// UserUsage is one row of the top-users leaderboard. Username is the resolved
// display name, falling back to the raw id.
type UserUsage struct {
	UserID             string  `json:"user_id"`
	Username           string  `json:"username"`
	TotalMessages      int     `json:"total_messages"`
	TotalConversations int     `json:"total_conversations"`
	TotalCredits       float64 `json:"total_credits"`
}

// DailyUsage is one row of the per-day activity trend.
type DailyUsage struct {
	Date          string  `json:"date"`
	Messages      int     `json:"messages"`
	Conversations int     `json:"conversations"`
	Credits       float64 `json:"credits"`
	ActiveUsers   int     `json:"active_users"`
}

// DailyClientUsage is one row of the per-day per-client-type trend.
type DailyClientUsage struct {
	Date          string `json:"date"`
	ClientType    string `json:"client_type"`
	Messages      int    `json:"messages"`
	Conversations int    `json:"conversations"`
}

// UserCredits is one row of the per-user credit consumption section.
// OverageEnabled carries the backend's raw cell value.
type UserCredits struct {
	UserID          string  `json:"user_id"`
	Username        string  `json:"username"`
	TotalCredits    float64 `json:"total_credits"`
	OverageCredits  float64 `json:"overage_credits"`
	OverageCap      float64 `json:"overage_cap"`
	OverageEnabled  string  `json:"overage_enabled"`
	CombinedCredits float64 `json:"combined_credits"`
}

// TierUsage is one row of the per-subscription-tier breakdown.
type TierUsage struct {
	SubscriptionTier string  `json:"subscription_tier"`
	UniqueUsers      int     `json:"unique_users"`
	TotalMessages    int     `json:"total_messages"`
	TotalCredits     float64 `json:"total_credits"`
}

// Engagement categories by activity volume.
const (
	CategoryPower    = "Power"
	CategoryActive   = "Active"
	CategoryLight    = "Light"
	CategoryInactive = "Inactive"
)

// UserEngagement is one row of the per-user engagement section.
type UserEngagement struct {
	UserID             string  `json:"user_id"`
	Username           string  `json:"username"`
	TotalMessages      int     `json:"total_messages"`
	TotalConversations int     `json:"total_conversations"`
	TotalCredits       float64 `json:"total_credits"`
	Category           string  `json:"category"`
}

// UserActivity is one row of the per-user activity timeline. Dates come back
// as the table's raw date strings; DaysSinceLastActive is derived server-side.
type UserActivity struct {
	UserID              string `json:"user_id"`
	Username            string `json:"username"`
	FirstActiveDate     string `json:"first_active_date"`
	LastActiveDate      string `json:"last_active_date"`
	ActiveDays          int    `json:"active_days"`
	DaysSinceLastActive int    `json:"days_since_last_active"`
}

// categorize buckets a user by message or conversation volume. Heavy
// conversation use counts even when messages are low.
func categorize(totalMessages, totalConversations int) string {
	switch {
	case totalMessages >= 100 || totalConversations >= 20:
		return CategoryPower
	case totalMessages >= 20 || totalConversations >= 5:
		return CategoryActive
	case totalMessages >= 1:
		return CategoryLight
	default:
		return CategoryInactive
	}
}
