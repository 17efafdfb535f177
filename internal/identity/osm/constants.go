package osm

const (
	tagNoBot            = "#nobot"
	tagNoMapCompleteBot = "#nomapcompletebot"
	fieldNoBot          = "nobot"
)

// Log field name constants
const (
	LogFieldContributor = "contributor"
	LogFieldAcct        = "acct"
)
