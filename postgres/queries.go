package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const (
	existsNamespace = `SELECT EXISTS (SELECT 1 FROM namespaces WHERE id = $1)`

	lockNamespace = `SELECT id FROM namespaces WHERE id = $1 FOR UPDATE`

	createNamespace = `INSERT INTO namespaces (id, parent_id, depth) VALUES ($1, $2, $3)`

	deleteNamespace = `DELETE FROM namespaces WHERE id = $1`

	listNamespaceIDsByParent = `SELECT id FROM namespaces WHERE parent_id = $1 ORDER BY id`

	listNamespaceProperties = `SELECT key, value FROM namespace_properties WHERE namespace_id = $1`

	upsertNamespaceProperty = `
INSERT INTO namespace_properties (namespace_id, key, value) VALUES ($1, $2, $3)
ON CONFLICT (namespace_id, key) DO UPDATE SET value = excluded.value`

	deleteNamespaceProperty = `DELETE FROM namespace_properties WHERE namespace_id = $1 AND key = $2`
)

type queries struct {
	db DBTX
}

func newQueries(db DBTX) *queries {
	return &queries{db: db}
}

func (q *queries) ExistsNamespace(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, existsNamespace, id).Scan(&exists)
	return exists, err
}

// LockNamespace locks the namespace row until the transaction ends. Returns
// pgx.ErrNoRows if the namespace does not exist.
func (q *queries) LockNamespace(ctx context.Context, id string) error {
	var locked string
	return q.db.QueryRow(ctx, lockNamespace, id).Scan(&locked)
}

func (q *queries) CreateNamespace(ctx context.Context, id string, parentID string, depth int) error {
	_, err := q.db.Exec(ctx, createNamespace, id, parentID, depth)
	return err
}

// DeleteNamespace returns pgx.ErrNoRows if no namespace was deleted.
func (q *queries) DeleteNamespace(ctx context.Context, id string) error {
	tag, err := q.db.Exec(ctx, deleteNamespace, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (q *queries) ListNamespaceIDsByParent(ctx context.Context, parentID string) ([]string, error) {
	rows, err := q.db.Query(ctx, listNamespaceIDsByParent, parentID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (q *queries) ListNamespaceProperties(ctx context.Context, namespaceID string) (map[string]string, error) {
	rows, err := q.db.Query(ctx, listNamespaceProperties, namespaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	props := map[string]string{}
	for rows.Next() {
		var key, value string
		if err = rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		props[key] = value
	}
	return props, rows.Err()
}

func (q *queries) UpsertNamespaceProperty(ctx context.Context, namespaceID string, key string, value string) error {
	_, err := q.db.Exec(ctx, upsertNamespaceProperty, namespaceID, key, value)
	return err
}

func (q *queries) DeleteNamespaceProperty(ctx context.Context, namespaceID string, key string) error {
	_, err := q.db.Exec(ctx, deleteNamespaceProperty, namespaceID, key)
	return err
}
