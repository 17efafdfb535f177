package digest

const (
	// prefetchLimit is more contributors than a single post can list.
	prefetchLimit = 60

	imageDirPerm   = 0o750
	tempDirPattern = "mapcomplete-digest-*"

	changesetBaseURL = "https://openstreetmap.org/changeset/"
	unknownLicense   = "an unknown license"
	maxFileNameRunes = 80
)

// Log field name constants
const (
	LogFieldAction       = "action"
	LogFieldRecords      = "records"
	LogFieldKept         = "kept"
	LogFieldImages       = "images"
	LogFieldPosts        = "posts"
	LogFieldContributor  = "contributor"
	LogFieldContributors = "contributors"
	LogFieldDuration     = "duration"
	LogFieldPath         = "path"
	LogFieldImageURL     = "image_url"
)
