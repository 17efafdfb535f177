package attribution

// Log field name constants
const (
	LogFieldServer = "server"
	LogFieldImage  = "image"
)
