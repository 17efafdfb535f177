package thread

// MaxAttachments is the number of media a single post may carry.
const MaxAttachments = 4

// Log field name constants
const (
	LogFieldState       = "state"
	LogFieldContributor = "contributor"
	LogFieldStatusID    = "status_id"
	LogFieldLines       = "lines"
	LogFieldMedia       = "media"
)

const (
	linePrefix   = "- "
	thankYouLine = "Thank you all for contributing!"
)

// Reasons a contributor is left out of the contributors block.
const (
	skipUnresolved = "unresolved"
	skipOptedOut   = "opted_out"
	skipFormatting = "formatting"
)
