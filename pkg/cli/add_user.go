package cli

import (
	"flag"
	"fmt"
	"strings"

	"github.com/cardinalsites/samlauth/pkg/provision"
)

func newAddUserCommand() *Command {
	cmd := &Command{
		Name:        "add-user",
		Description: "Provision an account ahead of its first SSO login",
		Flags:       flag.NewFlagSet("add-user", flag.ExitOnError),
		Run:         runAddUser,
	}

	cmd.Flags.String("sunetid", "", "Login name of the account")
	cmd.Flags.String("name", "", "Display name (defaults to the sunetid)")
	cmd.Flags.String("email", "", "Email address (defaults to sunetid@stanford.edu)")
	cmd.Flags.String("roles", "", "Comma separated roles to grant")
	cmd.Flags.String("server", defaultServer, "Service URL")

	return cmd
}

func runAddUser(args []string) error {
	cmd := newAddUserCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	sunetid := cmd.Flags.Lookup("sunetid").Value.String()
	name := cmd.Flags.Lookup("name").Value.String()
	email := cmd.Flags.Lookup("email").Value.String()
	roles := cmd.Flags.Lookup("roles").Value.String()
	server := cmd.Flags.Lookup("server").Value.String()

	if sunetid == "" {
		return fmt.Errorf("sunetid is required")
	}

	req := provision.CreateUserRequest{
		SunetID: sunetid,
		Name:    name,
		Email:   email,
	}
	if roles != "" {
		for _, role := range strings.Split(roles, ",") {
			if role = strings.TrimSpace(role); role != "" {
				req.Roles = append(req.Roles, role)
			}
		}
	}

	var user provision.User
	if err := sendJSON("POST", server, "/api/v1/users", req, &user); err != nil {
		return err
	}

	log.WithField("sunetid", user.SunetID).Info("User provisioned")
	fmt.Printf("Created user %s <%s> with roles %v\n", user.SunetID, user.Email, user.Roles)
	return nil
}
