package cli

import (
	"flag"
	"fmt"
	"strconv"

	"github.com/cardinalsites/samlauth/pkg/config"
	"github.com/cardinalsites/samlauth/pkg/rolemap"
)

func newRulesCommand() *Command {
	cmd := &Command{
		Name:        "rules",
		Description: "List, add, or remove role mapping rules",
		Flags:       flag.NewFlagSet("rules", flag.ExitOnError),
		Run:         runRules,
	}

	cmd.Flags.String("role", "", "Role granted by the new rule")
	cmd.Flags.String("attribute", "", "Attribute the rule matches (defaults to the entitlement attribute)")
	cmd.Flags.String("value", "", "Attribute value the rule matches")
	cmd.Flags.String("remove", "", "Remove the rule at the given position")
	cmd.Flags.String("server", defaultServer, "Service URL")

	return cmd
}

func runRules(args []string) error {
	cmd := newRulesCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	role := cmd.Flags.Lookup("role").Value.String()
	attribute := cmd.Flags.Lookup("attribute").Value.String()
	value := cmd.Flags.Lookup("value").Value.String()
	remove := cmd.Flags.Lookup("remove").Value.String()
	server := cmd.Flags.Lookup("server").Value.String()

	switch {
	case remove != "":
		index, err := strconv.Atoi(remove)
		if err != nil {
			return fmt.Errorf("invalid rule position: %s", remove)
		}
		path := fmt.Sprintf("/api/v1/policies/role-mapping/rules/%d", index)
		if err := sendJSON("DELETE", server, path, nil, nil); err != nil {
			return err
		}
		fmt.Printf("Removed rule %d\n", index)
		return nil

	case role != "" || value != "":
		if role == "" || value == "" {
			return fmt.Errorf("role and value are both required to add a rule")
		}
		var rule rolemap.Rule
		payload := rolemap.Rule{Role: role, Attribute: attribute, Value: value}
		if err := sendJSON("POST", server, "/api/v1/policies/role-mapping/rules", payload, &rule); err != nil {
			return err
		}
		fmt.Printf("Added rule: %s = %q -> %s\n", rule.Attribute, rule.Value, rule.Role)
		return nil

	default:
		var mapping config.RoleMappingDocument
		if err := getJSON(server, "/api/v1/policies/role-mapping", &mapping); err != nil {
			return err
		}
		if len(mapping.Mapping) == 0 {
			fmt.Println("No role mapping rules configured")
			return nil
		}
		for i, rule := range mapping.Mapping {
			fmt.Printf("%d: %s = %q -> %s\n", i, rule.Attribute, rule.Value, rule.Role)
		}
		return nil
	}
}
