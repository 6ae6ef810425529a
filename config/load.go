// Package config loads policy sets from YAML files and keeps a
// [authstack.PolicyRegistry] in sync with them.
package config

import (
	"fmt"
	"os"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/acrine/authstack"
)

// A File is the top-level structure of a policy file.
type File struct {
	Domains []DomainConfig `yaml:"domains"`
}

// A DomainConfig is the policy of one security domain.
type DomainConfig struct {
	Name        string         `yaml:"name"`
	ModuleGroup string         `yaml:"module_group,omitempty"`
	Modules     []ModuleConfig `yaml:"modules"`
}

// A ModuleConfig is one module entry of a domain's chain.
type ModuleConfig struct {
	Type    string         `yaml:"type"`
	Flag    string         `yaml:"flag,omitempty"`
	Options map[string]any `yaml:"options,omitempty"`
}

// Load reads and validates a policy file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file %q: %w", path, err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse policy file %q: %w", path, err)
	}

	if err := file.Validate(); err != nil {
		return nil, fmt.Errorf("policy file %q: %w", path, err)
	}
	return &file, nil
}

// Validate checks domain names, module types and control flag spellings.
func (f *File) Validate() error {
	seen := map[string]bool{}
	for i, domain := range f.Domains {
		if domain.Name == "" {
			return fmt.Errorf("domain %d has no name", i)
		}
		if seen[domain.Name] {
			return fmt.Errorf("domain %q declared twice", domain.Name)
		}
		seen[domain.Name] = true
		if len(domain.Modules) == 0 {
			return fmt.Errorf("domain %q has no modules", domain.Name)
		}
		for j, module := range domain.Modules {
			if module.Type == "" {
				return fmt.Errorf("domain %q module %d has no type", domain.Name, j)
			}
			if _, err := authstack.ParseControlFlag(module.Flag); err != nil {
				return fmt.Errorf("domain %q module %q: %w", domain.Name, module.Type, err)
			}
		}
	}
	return nil
}

// Policies converts the file into policy values ready for a registry.
func (f *File) Policies() []*authstack.Policy {
	return lo.Map(f.Domains, func(domain DomainConfig, _ int) *authstack.Policy {
		entries := lo.Map(domain.Modules, func(module ModuleConfig, _ int) authstack.ModuleEntry {
			// Validate already vetted the flag spelling.
			flag, _ := authstack.ParseControlFlag(module.Flag)
			return authstack.ModuleEntry{
				Type:    module.Type,
				Options: module.Options,
				Flag:    flag,
			}
		})
		return &authstack.Policy{
			Name: domain.Name,
			Authorization: &authstack.Authorization{
				Name:        domain.Name,
				ModuleGroup: domain.ModuleGroup,
				Entries:     entries,
			},
		}
	})
}

// Apply loads the file at path and replaces the registry contents with it.
func Apply(path string, registry *authstack.PolicyRegistry) error {
	file, err := Load(path)
	if err != nil {
		return err
	}
	registry.SetAll(file.Policies())
	return nil
}
