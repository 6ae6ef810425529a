package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/acrine/authstack"
	"github.com/acrine/authstack/config"
)

// newCheckCmd runs a single authorization decision against a policy file,
// for trying out chains from the command line.
func newCheckCmd(log *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [flags]",
		Short: "Evaluate one authorization decision against a policy file",
	}

	var (
		policyFile string
		domain     string
		layer      string
		identity   string
		roles      []string
		attributes []string
	)

	flags := cmd.Flags()
	flags.StringVar(&policyFile, "policy-file", "", "YAML policy file to load domains from")
	flags.StringVar(&domain, "domain", "", "security domain to decide for")
	flags.StringVar(&layer, "layer", "", "resource layer (component, web)")
	flags.StringVar(&identity, "identity", "", "caller identity name")
	flags.StringSliceVar(&roles, "role", nil, "caller role, repeatable")
	flags.StringSliceVar(&attributes, "attribute", nil, "resource attribute as key=value, repeatable")
	_ = cmd.MarkFlagRequired("policy-file")
	_ = cmd.MarkFlagRequired("domain")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		policies := authstack.NewPolicyRegistry()
		if err := config.Apply(policyFile, policies); err != nil {
			return err
		}

		attrs := map[string]any{}
		for _, pair := range attributes {
			key, value, found := strings.Cut(pair, "=")
			if !found {
				return fmt.Errorf("attribute %q is not of the form key=value", pair)
			}
			attrs[key] = value
		}

		resource := authstack.Resource{
			Layer:      authstack.Layer(layer),
			Attributes: attrs,
		}
		caller := authstack.Anonymous
		if identity != "" {
			caller = authstack.Identity{Name: identity}
		}

		authz := authstack.New(domain,
			authstack.WithPolicyStore(policies),
			authstack.WithLogger(log),
		)
		verdict, err := authz.AuthorizeAs(cmd.Context(), resource, caller,
			authstack.RoleGroup{Name: "caller", Roles: roles})
		fmt.Fprintln(cmd.OutOrStdout(), verdict)
		return err
	}

	return cmd
}
