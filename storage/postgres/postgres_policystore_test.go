package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/require"

	"github.com/acrine/authstack"
	"github.com/acrine/authstack/testsuite"
)

var databaseURL = ""

func TestMain(m *testing.M) {
	var (
		pool     *dockertest.Pool
		resource *dockertest.Resource
		err      error
	)

	databaseURL = os.Getenv("TEST_POSTGRES_DATABASE_URL")

	if databaseURL == "" {
		pool, err = dockertest.NewPool("")
		if err != nil {
			log.Fatalf("Could not connect to docker: %s", err)
		}

		resource, err = pool.RunWithOptions(&dockertest.RunOptions{
			Repository: "postgres",
			Tag:        "15.4",
			Env: []string{
				"POSTGRES_PASSWORD=authstack",
				"POSTGRES_USER=authstack",
				"POSTGRES_DB=authstack",
				"listen_addresses = '*'",
			},
		}, func(config *docker.HostConfig) {
			config.AutoRemove = true // Stopped container should be removed
			config.RestartPolicy = docker.RestartPolicy{Name: "no"}
		})
		if err != nil {
			log.Fatalf("Could not start resource: %s", err)
		}
		_ = resource.Expire(300) // In any case container should be killed in 5min

		hostAndPort := resource.GetHostPort("5432/tcp")
		databaseURL = fmt.Sprintf("postgres://authstack:authstack@%s/authstack?sslmode=disable", hostAndPort)

		// We connect with exponential backoff (maximum wait 2min)
		pool.MaxWait = 120 * time.Second
		if err = pool.Retry(func() error {
			db, err := sql.Open("pgx", databaseURL)
			if err != nil {
				return err
			}
			return db.Ping()
		}); err != nil {
			log.Fatalf("Could not connect to postgres: %s", err)
		}
	}

	if err := RunMigrations(databaseURL); err != nil {
		log.Fatalf("Could not migrate db: %s", err)
	}

	code := m.Run()

	// os.Exit doesn't care for defer, so let's explicitly purge...
	if pool != nil {
		if err := pool.Purge(resource); err != nil {
			log.Fatalf("Could not purge resource: %s", err)
		}
	}

	os.Exit(code)
}

func TestPostgresWithTestSuite(t *testing.T) {
	store, err := NewPolicyStore(databaseURL)
	require.NoError(t, err)
	defer store.Close()

	testsuite.RunPolicyStoreTests(t, store)
}

func TestWriteRejectsPolicyWithoutAuthorization(t *testing.T) {
	store, err := NewPolicyStore(databaseURL)
	require.NoError(t, err)
	defer store.Close()

	require.Error(t, store.Write(context.Background(), &authstack.Policy{Name: "payments"}))
	require.Error(t, store.Write(context.Background(), nil))
}

func TestMigrationsAreIdempotent(t *testing.T) {
	require.NoError(t, RunMigrations(databaseURL))
}
