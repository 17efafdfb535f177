package osmcha

// Log field name constants
const (
	LogFieldDay   = "day"
	LogFieldPage  = "page"
	LogFieldCount = "count"
)
