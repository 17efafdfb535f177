package summary

// Log field name constants
const (
	LogFieldContributor = "contributor"
)
