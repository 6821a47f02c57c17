package cli

import (
	"flag"
	"fmt"
)

func newWorkgroupsCommand() *Command {
	cmd := &Command{
		Name:        "workgroups",
		Description: "Query the workgroup directory through the service",
		Flags:       flag.NewFlagSet("workgroups", flag.ExitOnError),
		Run:         runWorkgroups,
	}

	cmd.Flags.String("sunetid", "", "List the workgroups of this user")
	cmd.Flags.String("check", "", "Check whether this workgroup exists")
	cmd.Flags.String("server", defaultServer, "Service URL")

	return cmd
}

func runWorkgroups(args []string) error {
	cmd := newWorkgroupsCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	sunetid := cmd.Flags.Lookup("sunetid").Value.String()
	check := cmd.Flags.Lookup("check").Value.String()
	server := cmd.Flags.Lookup("server").Value.String()

	switch {
	case sunetid != "":
		var body struct {
			SunetID    string   `json:"sunetid"`
			Workgroups []string `json:"workgroups"`
		}
		if err := getJSON(server, "/api/v1/workgroup/users/"+sunetid, &body); err != nil {
			return err
		}
		if len(body.Workgroups) == 0 {
			fmt.Printf("%s belongs to no workgroups\n", sunetid)
			return nil
		}
		for _, group := range body.Workgroups {
			fmt.Println(group)
		}
		return nil

	case check != "":
		var body struct {
			Workgroup string `json:"workgroup"`
			Valid     bool   `json:"valid"`
		}
		if err := getJSON(server, "/api/v1/workgroup/workgroups/"+check, &body); err != nil {
			return err
		}
		fmt.Printf("%s valid: %v\n", body.Workgroup, body.Valid)
		return nil

	default:
		var body struct {
			Connected bool `json:"connected"`
		}
		if err := getJSON(server, "/api/v1/workgroup/status", &body); err != nil {
			return err
		}
		fmt.Printf("Workgroup API connected: %v\n", body.Connected)
		return nil
	}
}
