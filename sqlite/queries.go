package sqlite

import (
	"context"
	"database/sql"
)

const (
	existsNamespace = `SELECT EXISTS (SELECT 1 FROM namespaces WHERE id = ?)`

	createNamespace = `INSERT INTO namespaces (id, parent_id, depth) VALUES (?, ?, ?)`

	deleteNamespace = `DELETE FROM namespaces WHERE id = ?`

	listNamespaceIDsByParent = `SELECT id FROM namespaces WHERE parent_id = ? ORDER BY id`

	listNamespaceProperties = `SELECT key, value FROM namespace_properties WHERE namespace_id = ?`

	upsertNamespaceProperty = `
INSERT INTO namespace_properties (namespace_id, key, value) VALUES (?, ?, ?)
ON CONFLICT (namespace_id, key) DO UPDATE SET value = excluded.value`

	deleteNamespaceProperty = `DELETE FROM namespace_properties WHERE namespace_id = ? AND key = ?`

	deleteNamespaceProperties = `DELETE FROM namespace_properties WHERE namespace_id = ?`
)

type queries struct {
	db DBTX
}

func newQueries(db DBTX) *queries {
	return &queries{db: db}
}

func (q *queries) ExistsNamespace(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx, existsNamespace, id).Scan(&exists)
	return exists, err
}

func (q *queries) CreateNamespace(ctx context.Context, id string, parentID string, depth int) error {
	_, err := q.db.ExecContext(ctx, createNamespace, id, parentID, depth)
	return err
}

// DeleteNamespace returns sql.ErrNoRows if no namespace was deleted.
func (q *queries) DeleteNamespace(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, deleteNamespace, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (q *queries) ListNamespaceIDsByParent(ctx context.Context, parentID string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listNamespaceIDsByParent, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (q *queries) ListNamespaceProperties(ctx context.Context, namespaceID string) (map[string]string, error) {
	rows, err := q.db.QueryContext(ctx, listNamespaceProperties, namespaceID)
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
	_, err := q.db.ExecContext(ctx, upsertNamespaceProperty, namespaceID, key, value)
	return err
}

func (q *queries) DeleteNamespaceProperty(ctx context.Context, namespaceID string, key string) error {
	_, err := q.db.ExecContext(ctx, deleteNamespaceProperty, namespaceID, key)
	return err
}

func (q *queries) DeleteNamespaceProperties(ctx context.Context, namespaceID string) error {
	_, err := q.db.ExecContext(ctx, deleteNamespaceProperties, namespaceID)
	return err
}
