package report

// Aggregation queries rendered against the resolved table name. The usage
// table stores every column as text, so numeric columns go through TRY_CAST
// and still come back as strings to be coerced caller-side.

const queryOverall = `
SELECT
    COUNT(DISTINCT userid) as total_users,
    SUM(TRY_CAST(total_messages AS INTEGER)) as total_messages,
    SUM(TRY_CAST(chat_conversations AS INTEGER)) as total_conversations,
    SUM(TRY_CAST(credits_used AS DOUBLE)) as total_credits,
    SUM(TRY_CAST(overage_credits_used AS DOUBLE)) as total_overage
FROM %s
`

const queryClientTypes = `
SELECT
    client_type,
    COUNT(DISTINCT userid) as unique_users,
    SUM(TRY_CAST(total_messages AS INTEGER)) as total_messages,
    SUM(TRY_CAST(chat_conversations AS INTEGER)) as total_conversations,
    SUM(TRY_CAST(credits_used AS DOUBLE)) as total_credits
FROM %s
GROUP BY client_type
ORDER BY total_messages DESC
`

const queryTopUsers = `
SELECT
    userid,
    SUM(TRY_CAST(total_messages AS INTEGER)) as total_messages,
    SUM(TRY_CAST(chat_conversations AS INTEGER)) as total_conversations,
    SUM(TRY_CAST(credits_used AS DOUBLE)) as total_credits
FROM %s
GROUP BY userid
ORDER BY total_messages DESC
LIMIT %d
`

const queryDaily = `
SELECT
    date,
    SUM(TRY_CAST(total_messages AS INTEGER)) as messages,
    SUM(TRY_CAST(chat_conversations AS INTEGER)) as conversations,
    SUM(TRY_CAST(credits_used AS DOUBLE)) as credits,
    COUNT(DISTINCT userid) as active_users
FROM %s
GROUP BY date
ORDER BY date
`

const queryDailyClientTypes = `
SELECT
    date,
    client_type,
    SUM(TRY_CAST(total_messages AS INTEGER)) as messages,
    SUM(TRY_CAST(chat_conversations AS INTEGER)) as conversations
FROM %s
GROUP BY date, client_type
ORDER BY date
`

const queryCreditsByUser = `
SELECT
    userid,
    SUM(TRY_CAST(credits_used AS DOUBLE)) as total_credits,
    SUM(TRY_CAST(overage_credits_used AS DOUBLE)) as total_overage,
    MAX(TRY_CAST(overage_cap AS DOUBLE)) as overage_cap,
    MAX(overage_enabled) as overage_enabled
FROM %s
GROUP BY userid
ORDER BY total_credits DESC
`

const queryTiers = `
SELECT
    subscription_tier,
    COUNT(DISTINCT userid) as unique_users,
    SUM(TRY_CAST(total_messages AS INTEGER)) as total_messages,
    SUM(TRY_CAST(credits_used AS DOUBLE)) as total_credits
FROM %s
GROUP BY subscription_tier
ORDER BY total_messages DESC
`

const queryActivity = `
SELECT
    userid,
    MAX(date) as last_active_date,
    MIN(date) as first_active_date,
    COUNT(DISTINCT date) as active_days
FROM %s
GROUP BY userid
`

const queryEngagement = `
SELECT
    userid,
    SUM(TRY_CAST(total_messages AS INTEGER)) as total_messages,
    SUM(TRY_CAST(chat_conversations AS INTEGER)) as total_conversations,
    SUM(TRY_CAST(credits_used AS DOUBLE)) as total_credits
FROM %s
GROUP BY userid
ORDER BY total_messages DESC
`
