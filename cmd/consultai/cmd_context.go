package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var contextJSON bool

// contextCmd shows the digest the assistant sees
var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Show the active opportunity's projected context",
	Long: `Prints the bounded digest of the active opportunity exactly as it is
injected into the assistant's conversation: the newest artifacts per phase,
the latest key insights, and content previews. With no active opportunity it
prints nothing special and exits cleanly.`,
	RunE: showContext,
}

func init() {
	contextCmd.Flags().BoolVar(&contextJSON, "json", false, "emit the projection as JSON")
}

func showContext(cmd *cobra.Command, args []string) error {
	svc, st, _, err := openService()
	if err != nil {
		return err
	}
	defer st.Close()

	ac, err := svc.GetActiveContext(cmd.Context(), owner())
	if err != nil {
		return err
	}
	if ac == nil {
		fmt.Println("No active opportunity. Use `consultai opportunity activate <id>` first.")
		return nil
	}

	if contextJSON {
		data, err := json.MarshalIndent(ac.Projection, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Print(ac.Projection.Render())
	return nil
}
