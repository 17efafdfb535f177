package db

import "os"

const (
	driverName   = "sqlite"
	databaseFile = "cache.db"
	gooseDialect = "sqlite3"

	cacheDirPerm os.FileMode = 0o755
)

// Cache namespaces used by the collaborators.
const (
	NamespaceChangesets = "osmcha_day"
	NamespaceUserInfo   = "osm_user"
	NamespaceMastodon   = "mastodon_account"
)
