package cli

import (
	"flag"
	"fmt"

	"github.com/cardinalsites/samlauth/pkg/authz"
	"github.com/cardinalsites/samlauth/pkg/config"
)

func newPolicyCommand() *Command {
	cmd := &Command{
		Name:        "policy",
		Description: "Show or change the login policies",
		Flags:       flag.NewFlagSet("policy", flag.ExitOnError),
		Run:         runPolicy,
	}

	cmd.Flags.String("reevaluate", "", "Set the role reevaluation mode (none, new, all)")
	cmd.Flags.String("server", defaultServer, "Service URL")

	return cmd
}

func runPolicy(args []string) error {
	cmd := newPolicyCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	reevaluate := cmd.Flags.Lookup("reevaluate").Value.String()
	server := cmd.Flags.Lookup("server").Value.String()

	if reevaluate != "" {
		payload := map[string]string{"mode": reevaluate}
		if err := sendJSON("PUT", server, "/api/v1/policies/role-mapping/reevaluate", payload, nil); err != nil {
			return err
		}
		fmt.Printf("Reevaluation mode set to %q\n", reevaluate)
		return nil
	}

	var allowed authz.RestrictionPolicy
	if err := getJSON(server, "/api/v1/policies/authorization", &allowed); err != nil {
		return err
	}

	var mapping config.RoleMappingDocument
	if err := getJSON(server, "/api/v1/policies/role-mapping", &mapping); err != nil {
		return err
	}

	fmt.Printf("Restrict logins: %v\n", allowed.Restrict)
	if allowed.Restrict {
		fmt.Printf("  Allowed users:        %v\n", allowed.AllowedUsers)
		fmt.Printf("  Allowed affiliations: %v\n", allowed.AllowedAffiliations)
		fmt.Printf("  Allowed workgroups:   %v\n", allowed.AllowedGroups)
	}
	fmt.Printf("Role reevaluation: %s\n", mapping.Reevaluate)
	fmt.Printf("Role mapping rules:\n")
	for i, rule := range mapping.Mapping {
		fmt.Printf("  %d: %s = %q -> %s\n", i, rule.Attribute, rule.Value, rule.Role)
	}
	return nil
}
