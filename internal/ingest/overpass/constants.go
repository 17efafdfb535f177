package overpass

// Log field name constants
const (
	LogFieldQuery = "query"
)
