package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/coro-sh/catalog/namespace"
	"github.com/coro-sh/catalog/tx"
)

var _ namespace.Repository = (*NamespaceRepository)(nil)

// NamespaceRepository is a namespace.Repository backed by SQLite.
type NamespaceRepository struct {
	db   *queries
	txer tx.Txer
}

func NewNamespaceRepository(db DB) *NamespaceRepository {
	return &NamespaceRepository{
		db:   newQueries(db),
		txer: NewTxer(db),
	}
}

func (r *NamespaceRepository) Exists(ctx context.Context, id namespace.Identity) (bool, error) {
	return r.db.ExistsNamespace(ctx, id.Encode())
}

func (r *NamespaceRepository) Insert(ctx context.Context, id namespace.Identity, props map[string]string) error {
	return tx.Run(ctx, r.txer, func(ctx context.Context, txn tx.Tx) error {
		q, err := queriesWithTx(txn)
		if err != nil {
			return err
		}

		key := id.Encode()
		if err = q.CreateNamespace(ctx, key, parentKey(id), id.Len()); err != nil {
			return tagNamespaceErr(err, id)
		}
		for k, v := range props {
			if err = q.UpsertNamespaceProperty(ctx, key, k, v); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *NamespaceRepository) Get(ctx context.Context, id namespace.Identity) (props map[string]string, err error) {
	err = tx.Run(ctx, r.txer, func(ctx context.Context, txn tx.Tx) error {
		q, err := queriesWithTx(txn)
		if err != nil {
			return err
		}
		props, err = readProperties(ctx, q, id)
		return err
	})
	return props, err
}

func (r *NamespaceRepository) Remove(ctx context.Context, id namespace.Identity) error {
	return tx.Run(ctx, r.txer, func(ctx context.Context, txn tx.Tx) error {
		q, err := queriesWithTx(txn)
		if err != nil {
			return err
		}

		key := id.Encode()
		if err = q.DeleteNamespaceProperties(ctx, key); err != nil {
			return err
		}
		return tagNamespaceErr(q.DeleteNamespace(ctx, key), id)
	})
}

func (r *NamespaceRepository) ListChildren(ctx context.Context, parent *namespace.Identity) (ids []namespace.Identity, err error) {
	err = tx.Run(ctx, r.txer, func(ctx context.Context, txn tx.Tx) error {
		q, err := queriesWithTx(txn)
		if err != nil {
			return err
		}

		parentID := ""
		if parent != nil {
			parentID = parent.Encode()
			exists, err := q.ExistsNamespace(ctx, parentID)
			if err != nil {
				return err
			}
			if !exists {
				return namespace.NotFoundError(*parent)
			}
		}

		keys, err := q.ListNamespaceIDsByParent(ctx, parentID)
		if err != nil {
			return err
		}
		ids, err = unmarshalIdentities(keys)
		return err
	})
	return ids, err
}

func (r *NamespaceRepository) UpdateProperties(ctx context.Context, id namespace.Identity, removals []string, updates []namespace.Property) (diff namespace.PropertiesDiff, err error) {
	err = tx.Run(ctx, r.txer, func(ctx context.Context, txn tx.Tx) error {
		q, err := queriesWithTx(txn)
		if err != nil {
			return err
		}

		props, err := readProperties(ctx, q, id)
		if err != nil {
			return err
		}

		diff = namespace.ReconcileProperties(props, removals, updates)

		key := id.Encode()
		for _, k := range diff.Removed {
			if err = q.DeleteNamespaceProperty(ctx, key, k); err != nil {
				return err
			}
		}
		for _, k := range diff.Updated {
			if err = q.UpsertNamespaceProperty(ctx, key, k, props[k]); err != nil {
				return err
			}
		}
		return nil
	})
	return diff, err
}

func readProperties(ctx context.Context, q *queries, id namespace.Identity) (map[string]string, error) {
	key := id.Encode()
	exists, err := q.ExistsNamespace(ctx, key)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, namespace.NotFoundError(id)
	}
	return q.ListNamespaceProperties(ctx, key)
}

func unmarshalIdentities(keys []string) ([]namespace.Identity, error) {
	ids := make([]namespace.Identity, len(keys))
	for i, key := range keys {
		id, err := namespace.ParseIdentity(key)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

func parentKey(id namespace.Identity) string {
	if parent, ok := id.Parent(); ok {
		return parent.Encode()
	}
	return ""
}

func tagNamespaceErr(err error, id namespace.Identity) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return namespace.NotFoundError(id)
	}
	if isSQLiteErrCode(err, sqlite3.SQLITE_CONSTRAINT, sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY) {
		return namespace.ConflictError(id)
	}
	return err
}

func isSQLiteErrCode(err error, codes ...int) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		for _, code := range codes {
			if sqliteErr.Code() == code {
				return true
			}
		}
	}
	return false
}
