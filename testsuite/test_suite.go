// Package testsuite holds shared fixtures and conformance tests for policy
// store implementations.
package testsuite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acrine/authstack"
)

// A WritableStore is a policy store that can also persist policies; both SQL
// backends implement it.
type WritableStore interface {
	authstack.PolicyStore
	Write(ctx context.Context, policy *authstack.Policy) error
}

// Policies returns the fixture policy set used by the store conformance
// tests.
func Policies() []*authstack.Policy {
	return []*authstack.Policy{
		{
			Name: "payments",
			Authorization: &authstack.Authorization{
				Name: "payments",
				Entries: []authstack.ModuleEntry{
					{Type: "rolecheck", Flag: authstack.Required, Options: map[string]any{
						"roles": []any{"operator", "admin"},
					}},
					{Type: "static", Flag: authstack.Sufficient, Options: map[string]any{
						"verdict": "permit",
					}},
					{Type: "attribute", Flag: authstack.Optional, Options: map[string]any{
						"expect": map[string]any{"env": "prod"},
					}},
				},
			},
		},
		{
			Name: "default-web",
			Authorization: &authstack.Authorization{
				Name:        "default-web",
				ModuleGroup: "web-plugins",
				Entries: []authstack.ModuleEntry{
					{Type: "static", Options: map[string]any{"verdict": "permit"}},
				},
			},
		},
		{
			Name: "reporting",
			Authorization: &authstack.Authorization{
				Name: "reporting",
				Entries: []authstack.ModuleEntry{
					{Type: "rolecheck", Flag: authstack.Requisite, Options: map[string]any{
						"roles": []any{"auditor"},
						"match": "all",
					}},
					{Type: "static", Flag: authstack.Required, Options: map[string]any{
						"verdict": "permit",
					}},
				},
			},
		},
	}
}

// Load writes the fixture policies into the store.
func Load(ctx context.Context, store WritableStore) error {
	for _, policy := range Policies() {
		if err := store.Write(ctx, policy); err != nil {
			return err
		}
	}
	return nil
}

// RunPolicyStoreTests checks that a store round-trips the fixture policies
// faithfully: entry order, flags and options survive, unknown domains report
// [authstack.ErrPolicyNotFound], and rewrites replace rather than append.
func RunPolicyStoreTests(t *testing.T, store WritableStore) {
	ctx := context.Background()

	require.NoError(t, Load(ctx, store))

	t.Run("RoundTrip", func(t *testing.T) {
		for _, expected := range Policies() {
			policy, err := store.Resolve(ctx, expected.Name)
			require.NoError(t, err)
			require.Equal(t, expected.Name, policy.Name)
			require.NotNil(t, policy.Authorization)
			require.Equal(t, expected.Authorization.ModuleGroup, policy.Authorization.ModuleGroup)
			require.Len(t, policy.Authorization.Entries, len(expected.Authorization.Entries))
			for i, entry := range expected.Authorization.Entries {
				got := policy.Authorization.Entries[i]
				require.Equal(t, entry.Type, got.Type)
				require.Equal(t, entry.Flag, got.Flag)
				if len(entry.Options) == 0 {
					require.Empty(t, got.Options)
				} else {
					require.Equal(t, entry.Options, got.Options)
				}
			}
		}
	})

	t.Run("UnknownDomain", func(t *testing.T) {
		_, err := store.Resolve(ctx, "no-such-domain")
		require.ErrorIs(t, err, authstack.ErrPolicyNotFound)
	})

	t.Run("RewriteReplaces", func(t *testing.T) {
		replacement := &authstack.Policy{
			Name: "payments",
			Authorization: &authstack.Authorization{
				Name: "payments",
				Entries: []authstack.ModuleEntry{
					{Type: "static", Flag: authstack.Required, Options: map[string]any{"verdict": "deny"}},
				},
			},
		}
		require.NoError(t, store.Write(ctx, replacement))

		policy, err := store.Resolve(ctx, "payments")
		require.NoError(t, err)
		require.Len(t, policy.Authorization.Entries, 1)
		require.Equal(t, "static", policy.Authorization.Entries[0].Type)

		// Restore the fixture for any follow-up assertions.
		require.NoError(t, store.Write(ctx, Policies()[0]))
	})
}
