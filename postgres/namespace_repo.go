package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/coro-sh/catalog/namespace"
	"github.com/coro-sh/catalog/tx"
)

var _ namespace.Repository = (*NamespaceRepository)(nil)

// NamespaceRepository is a namespace.Repository backed by Postgres.
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

		key := id.Encode()
		exists, err := q.ExistsNamespace(ctx, key)
		if err != nil {
			return err
		}
		if !exists {
			return namespace.NotFoundError(id)
		}
		props, err = q.ListNamespaceProperties(ctx, key)
		return err
	})
	return props, err
}

// Remove deletes the namespace. Properties are removed by the cascading
// foreign key.
func (r *NamespaceRepository) Remove(ctx context.Context, id namespace.Identity) error {
	return tagNamespaceErr(r.db.DeleteNamespace(ctx, id.Encode()), id)
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

		key := id.Encode()
		// serializes concurrent updates of the same namespace
		if err = q.LockNamespace(ctx, key); err != nil {
			return tagNamespaceErr(err, id)
		}

		props, err := q.ListNamespaceProperties(ctx, key)
		if err != nil {
			return err
		}

		diff = namespace.ReconcileProperties(props, removals, updates)

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
	if errors.Is(err, pgx.ErrNoRows) {
		return namespace.NotFoundError(id)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == pgerrcode.UniqueViolation {
			return namespace.ConflictError(id)
		}
	}
	return err
}
