package cli

import (
	"flag"
	"fmt"
)

func newEntitlementRoleCommand() *Command {
	cmd := &Command{
		Name:        "entitlement-role",
		Description: "Map an entitlement value to a role grant",
		Flags:       flag.NewFlagSet("entitlement-role", flag.ExitOnError),
		Run:         runEntitlementRole,
	}

	cmd.Flags.String("entitlement", "", "Entitlement value presented by the identity provider")
	cmd.Flags.String("role", "", "Role to grant")
	cmd.Flags.String("server", defaultServer, "Service URL")

	return cmd
}

func runEntitlementRole(args []string) error {
	cmd := newEntitlementRoleCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	entitlement := cmd.Flags.Lookup("entitlement").Value.String()
	role := cmd.Flags.Lookup("role").Value.String()
	server := cmd.Flags.Lookup("server").Value.String()

	if entitlement == "" || role == "" {
		return fmt.Errorf("entitlement and role are required")
	}

	payload := map[string]string{
		"entitlement": entitlement,
		"role":        role,
	}
	if err := sendJSON("POST", server, "/api/v1/mappings/entitlement", payload, nil); err != nil {
		return err
	}

	fmt.Printf("Mapped entitlement %q to role %q\n", entitlement, role)
	return nil
}
