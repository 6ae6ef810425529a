// Package postgres provides a postgres-backed policy store.
package postgres

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	pgxuuid "github.com/jackc/pgx-gofrs-uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/acrine/authstack"
)

//go:embed migrations/*.sql
var fs embed.FS

func RunMigrations(databaseURL string) error {
	driver, err := iofs.New(fs, "migrations")
	if err != nil {
		return err
	}
	migrations, err := migrate.NewWithSourceInstance("iofs", driver, databaseURL)
	if err != nil {
		return err
	}
	err = migrations.Up()
	if err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

// A PolicyStore keeps policies and their module chains in postgres. It
// implements [authstack.PolicyStore].
type PolicyStore struct {
	pool *pgxpool.Pool
}

func NewPolicyStore(databaseURL string) (*PolicyStore, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxuuid.Register(conn.TypeMap())
		return nil
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, err
	}
	return &PolicyStore{pool}, nil
}

func (s *PolicyStore) Close() error {
	s.pool.Close()
	return nil
}

// Write stores or replaces the policy for its domain in one transaction.
// Entry order is preserved through the position column.
func (s *PolicyStore) Write(ctx context.Context, policy *authstack.Policy) error {
	if policy == nil || policy.Authorization == nil {
		return fmt.Errorf("policy without authorization configuration")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "DELETE FROM policy_entries WHERE domain = $1", policy.Name)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		"INSERT INTO policies (domain, uuid, module_group) VALUES ($1, $2, $3) "+
			"ON CONFLICT (domain) DO UPDATE SET uuid = excluded.uuid, module_group = excluded.module_group",
		policy.Name, id, policy.Authorization.ModuleGroup)
	if err != nil {
		return err
	}

	for position, entry := range policy.Authorization.Entries {
		options, err := json.Marshal(entry.Options)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			"INSERT INTO policy_entries (domain, position, module_type, flag, options) VALUES ($1, $2, $3, $4, $5)",
			policy.Name, position, entry.Type, flagString(entry.Flag), options)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *PolicyStore) Resolve(ctx context.Context, domain string) (*authstack.Policy, error) {
	authz := &authstack.Authorization{Name: domain}
	err := s.pool.QueryRow(ctx, "SELECT module_group FROM policies WHERE domain = $1", domain).
		Scan(&authz.ModuleGroup)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, authstack.ErrPolicyNotFound
	} else if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		"SELECT module_type, flag, options FROM policy_entries WHERE domain = $1 ORDER BY position", domain)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			moduleType string
			flag       string
			options    []byte
		)
		if err := rows.Scan(&moduleType, &flag, &options); err != nil {
			return nil, err
		}
		entry, err := scanEntry(moduleType, flag, options)
		if err != nil {
			return nil, err
		}
		authz.Entries = append(authz.Entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &authstack.Policy{Name: domain, Authorization: authz}, nil
}

func scanEntry(moduleType, flag string, options []byte) (authstack.ModuleEntry, error) {
	entry := authstack.ModuleEntry{Type: moduleType}
	parsed, err := authstack.ParseControlFlag(flag)
	if err != nil {
		return entry, err
	}
	entry.Flag = parsed
	if len(options) > 0 && string(options) != "{}" && string(options) != "null" {
		if err := json.Unmarshal(options, &entry.Options); err != nil {
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
