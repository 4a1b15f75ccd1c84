// Package constants defines names and separators that have special meaning
// across the catalog. Keeping them in one place ensures the HTTP adapter, the
// repositories and the event publisher agree on wire encodings.
package constants

const (
	AppName      = "catalog"
	AppNameUpper = "CATALOG"

	// NamespaceLevelSeparator joins namespace levels in the Iceberg REST wire
	// encoding (path segments and the parent query parameter).
	NamespaceLevelSeparator = "\x1f"

	// NamespaceDisplaySeparator joins namespace levels in the display form.
	NamespaceDisplaySeparator = "."

	// DefaultEventSubjectPrefix is the NATS subject prefix for namespace
	// change events.
	DefaultEventSubjectPrefix = AppName + ".events"
)
