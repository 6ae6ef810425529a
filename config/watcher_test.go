package config_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acrine/authstack"
	"github.com/acrine/authstack/config"
)

func TestWatcherReloadsOnChange(t *testing.T) {
	path := writePolicyFile(t, samplePolicies)
	registry := authstack.NewPolicyRegistry()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	watcher, err := config.NewWatcher(path, registry, log)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- watcher.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, err := registry.Resolve(ctx, "payments")
		return err == nil
	}, 5*time.Second, 10*time.Millisecond, "initial load")

	updated := `
domains:
  - name: reporting
    modules:
      - type: static
        options:
          verdict: permit
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	require.Eventually(t, func() bool {
		_, err := registry.Resolve(ctx, "reporting")
		return err == nil
	}, 5*time.Second, 10*time.Millisecond, "reload after write")

	// Replacing the full policy set drops the previous domains.
	_, err = registry.Resolve(ctx, "payments")
	require.ErrorIs(t, err, authstack.ErrPolicyNotFound)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestWatcherKeepsPoliciesOnBrokenEdit(t *testing.T) {
	path := writePolicyFile(t, samplePolicies)
	registry := authstack.NewPolicyRegistry()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	watcher, err := config.NewWatcher(path, registry, log)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = watcher.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, err := registry.Resolve(ctx, "payments")
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("domains: ["), 0o644))

	// The broken file never makes it into the registry.
	time.Sleep(200 * time.Millisecond)
	_, err = registry.Resolve(ctx, "payments")
	require.NoError(t, err)
}

func TestWatcherInitialLoadFailure(t *testing.T) {
	path := writePolicyFile(t, "domains: [")
	registry := authstack.NewPolicyRegistry()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	watcher, err := config.NewWatcher(path, registry, log)
	require.NoError(t, err)
	require.Error(t, watcher.Run(context.Background()))
}
