package authstack_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acrine/authstack"
)

type countingSource struct {
	mu      sync.Mutex
	lookups map[string]int
	factory authstack.ModuleFactory
}

func (s *countingSource) Lookup(typeName string) (authstack.ModuleFactory, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookups == nil {
		s.lookups = map[string]int{}
	}
	s.lookups[typeName]++
	return s.factory, s.factory != nil
}

func (s *countingSource) count(typeName string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookups[typeName]
}

type sourceLocator struct {
	group  string
	source authstack.Source
}

func (l sourceLocator) Locate(group string) authstack.Source {
	if group == l.group {
		return l.source
	}
	return nil
}

func locatedContext(t *testing.T, registry *authstack.Registry, locator authstack.Locator) *authstack.Context {
	t.Helper()
	policies := authstack.NewPolicyRegistry()
	policies.Set(&authstack.Policy{
		Name: "plugins",
		Authorization: &authstack.Authorization{
			Name:        "plugins",
			ModuleGroup: "external",
			Entries:     []authstack.ModuleEntry{{Type: "counted", Flag: authstack.Required}},
		},
	})
	return authstack.New("plugins",
		authstack.WithPolicyStore(policies),
		authstack.WithRegistry(registry),
		authstack.WithLocator(locator),
		authstack.WithLogger(discardLogger()))
}

func TestRegistryResolvesThroughSourceOnce(t *testing.T) {
	log := &callLog{}
	source := &countingSource{factory: func() authstack.DecisionModule {
		return &recordedModule{name: "counted", script: moduleScript{verdict: authstack.Permit}, log: log}
	}}
	registry := authstack.NewRegistry()
	c := locatedContext(t, registry, sourceLocator{group: "external", source: source})

	for i := 0; i < 3; i++ {
		verdict, err := c.AuthorizeAs(context.Background(),
			authstack.Resource{Layer: authstack.LayerComponent},
			authstack.Identity{Name: "alice"}, authstack.RoleGroup{})
		require.NoError(t, err)
		require.Equal(t, authstack.Permit, verdict)
	}

	// The first decision resolves the factory through the source; the
	// memoized resolution serves every later decision.
	require.Equal(t, 1, source.count("counted"))
}

func TestRegistryBuildsFreshInstancesPerDecision(t *testing.T) {
	var (
		mu        sync.Mutex
		instances []*recordedModule
	)
	log := &callLog{}
	source := &countingSource{factory: func() authstack.DecisionModule {
		m := &recordedModule{name: "counted", script: moduleScript{verdict: authstack.Permit}, log: log}
		mu.Lock()
		instances = append(instances, m)
		mu.Unlock()
		return m
	}}
	c := locatedContext(t, authstack.NewRegistry(), sourceLocator{group: "external", source: source})

	for i := 0; i < 2; i++ {
		_, err := c.AuthorizeAs(context.Background(),
			authstack.Resource{Layer: authstack.LayerComponent},
			authstack.Identity{Name: "alice"}, authstack.RoleGroup{})
		require.NoError(t, err)
	}

	require.Len(t, instances, 2)
	require.NotSame(t, instances[0], instances[1], "each decision gets its own module instance")
}

func TestRegistryFallsBackToOwnTableWhenSourceMisses(t *testing.T) {
	log := &callLog{}
	registry := authstack.NewRegistry()
	registry.Register("counted", func() authstack.DecisionModule {
		return &recordedModule{name: "counted", script: moduleScript{verdict: authstack.Permit}, log: log}
	})
	// The preferred source knows nothing; resolution falls through to the
	// registry's own table.
	source := &countingSource{}
	c := locatedContext(t, registry, sourceLocator{group: "external", source: source})

	verdict, err := c.AuthorizeAs(context.Background(),
		authstack.Resource{Layer: authstack.LayerComponent},
		authstack.Identity{Name: "alice"}, authstack.RoleGroup{})
	require.NoError(t, err)
	require.Equal(t, authstack.Permit, verdict)
	require.Equal(t, 1, source.count("counted"))
}

func TestRegisterInvalidatesMemoizedResolution(t *testing.T) {
	log := &callLog{}
	registry := authstack.NewRegistry()
	registry.Register("mod", func() authstack.DecisionModule {
		return &recordedModule{name: "first", script: moduleScript{verdict: authstack.Deny}, log: log}
	})

	policies := authstack.NewPolicyRegistry()
	policies.Set(&authstack.Policy{
		Name: "testdomain",
		Authorization: &authstack.Authorization{
			Name:    "testdomain",
			Entries: []authstack.ModuleEntry{{Type: "mod", Flag: authstack.Required}},
		},
	})
	c := authstack.New("testdomain",
		authstack.WithPolicyStore(policies),
		authstack.WithRegistry(registry),
		authstack.WithLogger(discardLogger()))

	_, err := c.AuthorizeAs(context.Background(),
		authstack.Resource{Layer: authstack.LayerComponent},
		authstack.Identity{Name: "alice"}, authstack.RoleGroup{})
	var denied *authstack.AccessDeniedError
	require.ErrorAs(t, err, &denied)

	registry.Register("mod", func() authstack.DecisionModule {
		return &recordedModule{name: "second", script: moduleScript{verdict: authstack.Permit}, log: log}
	})

	verdict, err := c.AuthorizeAs(context.Background(),
		authstack.Resource{Layer: authstack.LayerComponent},
		authstack.Identity{Name: "alice"}, authstack.RoleGroup{})
	require.NoError(t, err)
	require.Equal(t, authstack.Permit, verdict)
}

func TestLookupDoesNotExposeMemoizedResolutions(t *testing.T) {
	source := &countingSource{factory: func() authstack.DecisionModule {
		return &recordedModule{name: "counted", script: moduleScript{verdict: authstack.Permit}, log: &callLog{}}
	}}
	registry := authstack.NewRegistry()
	c := locatedContext(t, registry, sourceLocator{group: "external", source: source})

	_, err := c.AuthorizeAs(context.Background(),
		authstack.Resource{Layer: authstack.LayerComponent},
		authstack.Identity{Name: "alice"}, authstack.RoleGroup{})
	require.NoError(t, err)

	_, ok := registry.Lookup("counted")
	require.False(t, ok, "Lookup serves registered factories only")
}
