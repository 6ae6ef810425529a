// Package sqlite3 provides a sqlite-backed policy store.
package sqlite3

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/acrine/authstack"
)

const schema = `
CREATE TABLE IF NOT EXISTS policies (
	domain       TEXT PRIMARY KEY,
	uuid         TEXT NOT NULL,
	module_group TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS policy_entries (
	domain      TEXT NOT NULL REFERENCES policies(domain) ON DELETE CASCADE,
	position    INTEGER NOT NULL,
	module_type TEXT NOT NULL,
	flag        TEXT NOT NULL DEFAULT '',
	options     TEXT NOT NULL DEFAULT '{}',
	PRIMARY KEY (domain, position)
);
`

// A PolicyStore keeps policies and their module chains in a sqlite database.
// It implements [authstack.PolicyStore].
type PolicyStore struct {
	pool *sqlitex.Pool
}

func NewPolicyStore(filepath string) (*PolicyStore, error) {
	pool, err := sqlitex.NewPool(filepath, sqlitex.PoolOptions{})
	if err != nil {
		return nil, err
	}

	conn, err := pool.Take(context.Background())
	if err != nil {
		pool.Close()
		return nil, err
	}
	err = sqlitex.ExecuteScript(conn, schema, nil)
	pool.Put(conn)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &PolicyStore{pool}, nil
}

func (s *PolicyStore) Close() error {
	return s.pool.Close()
}

// Write stores or replaces the policy for its domain. Entry order is
// preserved through the position column.
func (s *PolicyStore) Write(ctx context.Context, policy *authstack.Policy) (err error) {
	if policy == nil || policy.Authorization == nil {
		return fmt.Errorf("policy without authorization configuration")
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)
	defer sqlitex.Save(conn)(&err)

	id, err := uuid.NewV7()
	if err != nil {
		return err
	}

	err = sqlitex.ExecuteTransient(conn, "DELETE FROM policy_entries WHERE domain = ?", &sqlitex.ExecOptions{
		Args: []any{policy.Name},
	})
	if err != nil {
		return err
	}
	err = sqlitex.ExecuteTransient(conn,
		"INSERT INTO policies (domain, uuid, module_group) VALUES (?, ?, ?) "+
			"ON CONFLICT(domain) DO UPDATE SET uuid = excluded.uuid, module_group = excluded.module_group",
		&sqlitex.ExecOptions{
			Args: []any{policy.Name, id.String(), policy.Authorization.ModuleGroup},
		})
	if err != nil {
		return err
	}

	for position, entry := range policy.Authorization.Entries {
		options, err := json.Marshal(entry.Options)
		if err != nil {
			return err
		}
		err = sqlitex.ExecuteTransient(conn,
			"INSERT INTO policy_entries (domain, position, module_type, flag, options) VALUES (?, ?, ?, ?, ?)",
			&sqlitex.ExecOptions{
				Args: []any{policy.Name, position, entry.Type, flagString(entry.Flag), string(options)},
			})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *PolicyStore) Resolve(ctx context.Context, domain string) (*authstack.Policy, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	found := false
	authz := &authstack.Authorization{Name: domain}
	err = sqlitex.ExecuteTransient(conn, "SELECT module_group FROM policies WHERE domain = ?", &sqlitex.ExecOptions{
		Args: []any{domain},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			found = true
			authz.ModuleGroup = stmt.ColumnText(0)
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, authstack.ErrPolicyNotFound
	}

	err = sqlitex.ExecuteTransient(conn,
		"SELECT module_type, flag, options FROM policy_entries WHERE domain = ? ORDER BY position",
		&sqlitex.ExecOptions{
			Args: []any{domain},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				entry, err := scanEntry(stmt.ColumnText(0), stmt.ColumnText(1), stmt.ColumnText(2))
				if err != nil {
					return err
				}
				authz.Entries = append(authz.Entries, entry)
				return nil
			},
		})
	if err != nil {
		return nil, err
	}
	return &authstack.Policy{Name: domain, Authorization: authz}, nil
}

func scanEntry(moduleType, flag, options string) (authstack.ModuleEntry, error) {
	entry := authstack.ModuleEntry{Type: moduleType}
	parsed, err := authstack.ParseControlFlag(flag)
	if err != nil {
		return entry, err
	}
	entry.Flag = parsed
	if options != "" && options != "{}" && options != "null" {
		if err := json.Unmarshal([]byte(options), &entry.Options); err != nil {
			return entry, err
		}
	}
	return entry, nil
}

func flagString(f authstack.ControlFlag) string {
	if f == authstack.FlagUnset {
		return ""
	}
	return f.String()
}
