// Package build provides build information that is linked into the application. Other
// packages within this project can use this information in logs etc..
package build

var (
	// Version is the build version of the binary (e.g. v0.1.0 or v0.1.0-alpha).
	Version = "dev"

	// Commit is the git commit SHA of the source the binary was built from.
	Commit = "none"

	// Date is the date the binary was built.
	Date = "unknown"

	// ProjectName is the name used in logs, metrics namespaces and trace service names.
	ProjectName = "membersync"
)

// MinimumSupportedDatastoreSchemaRevision is the lowest goose revision a SQL
// datastore must be migrated to before it reports ready.
const MinimumSupportedDatastoreSchemaRevision int64 = 2
