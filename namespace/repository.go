package namespace

import "context"

// Repository owns the namespace universe and the properties of every
// namespace in it. It applies no business rules beyond existence bookkeeping.
//
// Implementations must pass all tests in the RepositoryTestSuite to be
// considered compliant for use in the application.
type Repository interface {
	Exists(ctx context.Context, id Identity) (bool, error)
	// Insert stores a copy of props. Returns a Conflict tagged error if the
	// namespace exists.
	Insert(ctx context.Context, id Identity, props map[string]string) error
	// Get returns a copy of the namespace properties. Returns a NotFound
	// tagged error if the namespace does not exist.
	Get(ctx context.Context, id Identity) (map[string]string, error)
	Remove(ctx context.Context, id Identity) error
	// ListChildren lists top level namespaces when parent is nil, otherwise
	// the direct children of parent. Returns a NotFound tagged error if parent
	// does not exist. Results are unordered.
	ListChildren(ctx context.Context, parent *Identity) ([]Identity, error)
	// UpdateProperties reconciles removals and updates atomically using
	// ReconcileProperties.
	UpdateProperties(ctx context.Context, id Identity, removals []string, updates []Property) (PropertiesDiff, error)
}
