package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/teemow/drivelog/internal/credential"
)

// Compile-time interface satisfaction check.
var _ credential.Store = (*PreferenceRepo)(nil)

// PreferenceRepo stores one key-value namespace in the preferences table.
type PreferenceRepo struct {
	db        *DB
	namespace string
}

// NewPreferenceRepo creates a PreferenceRepo for namespace.
func NewPreferenceRepo(db *DB, namespace string) *PreferenceRepo {
	if namespace == "" {
		namespace = credential.DefaultNamespace
	}
	return &PreferenceRepo{db: db, namespace: namespace}
}

// Load returns every key in the namespace.
func (r *PreferenceRepo) Load(ctx context.Context) (map[string]string, error) {
	const query = `SELECT key, value FROM preferences WHERE namespace = ?`

	rows, err := r.db.Reader.QueryContext(ctx, query, r.namespace)
	if err != nil {
		return nil, fmt.Errorf("load preferences %s: %w", r.namespace, err)
	}
	defer rows.Close()

	values := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan preference: %w", err)
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate preferences: %w", err)
	}

	return values, nil
}

// Apply commits the edit in one transaction. Removals run before sets.
func (r *PreferenceRepo) Apply(ctx context.Context, edit credential.Edit) error {
	if edit.Empty() {
		return nil
	}

	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	for _, k := range edit.Remove {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM preferences WHERE namespace = ? AND key = ?`,
			r.namespace, k,
		); err != nil {
			return fmt.Errorf("remove preference %s: %w", k, err)
		}
	}

	now := time.Now().UTC()
	for k, v := range edit.Set {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO preferences (namespace, key, value, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(namespace, key) DO UPDATE SET
				value = excluded.value,
				updated_at = excluded.updated_at
		`, r.namespace, k, v, now); err != nil {
			return fmt.Errorf("set preference %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit preferences: %w", err)
	}
	return nil
}
