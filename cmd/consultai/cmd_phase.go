package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// phaseCmd moves an opportunity through the delivery phases
var phaseCmd = &cobra.Command{
	Use:   "phase [opportunity-id] [target-phase]",
	Short: "Move an opportunity to another delivery phase",
	Long: `Moves an opportunity to pre_assessment, discovery, solution_design, or
implementation. Leaving an in-progress phase marks it completed at 100%;
entering an untouched phase starts it. Skipped phases are left alone, and
moving to the current phase changes nothing.`,
	Args: cobra.ExactArgs(2),
	RunE: changePhase,
}

func changePhase(cmd *cobra.Command, args []string) error {
	svc, st, _, err := openService()
	if err != nil {
		return err
	}
	defer st.Close()

	opp, err := svc.ChangePhase(cmd.Context(), owner(), args[0], args[1])
	if err != nil {
		return err
	}

	fmt.Printf("%s is now in %s\n", opp.Name, opp.CurrentPhase)
	if row, ok := opp.PhaseProgress[opp.CurrentPhase]; ok {
		line := fmt.Sprintf("Phase %s: %s", row.Phase, row.Status)
		if row.StartDate != nil {
			line += ", started " + row.StartDate.Format("2006-01-02")
		}
		fmt.Println(line)
	}
	return nil
}
