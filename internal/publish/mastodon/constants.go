package mastodon

// Log field name constants
const (
	LogFieldVisibility = "visibility"
	LogFieldReplyTo    = "reply_to"
	LogFieldMedia      = "media"
	LogFieldStatusURL  = "status_url"
	LogFieldPath       = "path"
	LogFieldAcct       = "acct"
)
