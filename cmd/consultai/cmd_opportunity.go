package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"consultai/internal/domain"
	"consultai/internal/engagement"
)

var (
	oppName         string
	oppClient       string
	oppDescription  string
	oppStakeholders []string
)

// opportunityCmd groups opportunity management
var opportunityCmd = &cobra.Command{
	Use:     "opportunity",
	Aliases: []string{"opp"},
	Short:   "Manage consulting opportunities",
}

var oppCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new opportunity",
	Long: `Creates a new consulting opportunity starting in pre_assessment with one
progress row per phase. The first opportunity you create becomes the active
one automatically.

Example:
  consultai opportunity create --name "Acme Transformation" --client "Acme Corp" --description "Digital transformation"`,
	RunE: createOpportunity,
}

var oppListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your opportunities, newest first",
	RunE:  listOpportunities,
}

var oppShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show one opportunity with its phase progress",
	Args:  cobra.ExactArgs(1),
	RunE:  showOpportunity,
}

var oppActivateCmd = &cobra.Command{
	Use:   "activate [id]",
	Short: "Select the opportunity the assistant works against",
	Args:  cobra.ExactArgs(1),
	RunE:  activateOpportunity,
}

var oppDeactivateCmd = &cobra.Command{
	Use:   "deactivate",
	Short: "Clear the active opportunity selection",
	RunE:  deactivateOpportunity,
}

var oppDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete an opportunity and all of its artifacts",
	Args:  cobra.ExactArgs(1),
	RunE:  deleteOpportunity,
}

var oppStatusCmd = &cobra.Command{
	Use:   "status [id] [active|completed|archived]",
	Short: "Set the engagement status",
	Args:  cobra.ExactArgs(2),
	RunE:  setOpportunityStatus,
}

var oppInsightCmd = &cobra.Command{
	Use:   "insight [id] [text]",
	Short: "Record a key insight on an opportunity",
	Args:  cobra.ExactArgs(2),
	RunE:  addOpportunityInsight,
}

var oppSummaryCmd = &cobra.Command{
	Use:   "summary [id] [text]",
	Short: "Replace the opportunity's context summary",
	Args:  cobra.ExactArgs(2),
	RunE:  setOpportunitySummary,
}

func init() {
	oppCreateCmd.Flags().StringVar(&oppName, "name", "", "opportunity name (required)")
	oppCreateCmd.Flags().StringVar(&oppClient, "client", "", "client name (required)")
	oppCreateCmd.Flags().StringVar(&oppDescription, "description", "", "what the engagement is about (required)")
	oppCreateCmd.Flags().StringSliceVar(&oppStakeholders, "stakeholder", nil, "stakeholder name (repeatable)")

	opportunityCmd.AddCommand(oppCreateCmd)
	opportunityCmd.AddCommand(oppListCmd)
	opportunityCmd.AddCommand(oppShowCmd)
	opportunityCmd.AddCommand(oppActivateCmd)
	opportunityCmd.AddCommand(oppDeactivateCmd)
	opportunityCmd.AddCommand(oppDeleteCmd)
	opportunityCmd.AddCommand(oppStatusCmd)
	opportunityCmd.AddCommand(oppInsightCmd)
	opportunityCmd.AddCommand(oppSummaryCmd)
}

func createOpportunity(cmd *cobra.Command, args []string) error {
	svc, st, _, err := openService()
	if err != nil {
		return err
	}
	defer st.Close()

	opp, err := svc.CreateOpportunity(cmd.Context(), owner(), engagement.CreateOpportunityInput{
		Name:         oppName,
		ClientName:   oppClient,
		Description:  oppDescription,
		Stakeholders: oppStakeholders,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Created %s (%s) for %s, phase %s\n", opp.Name, opp.ID, opp.ClientName, opp.CurrentPhase)
	return nil
}

func listOpportunities(cmd *cobra.Command, args []string) error {
	svc, st, _, err := openService()
	if err != nil {
		return err
	}
	defer st.Close()

	opps, err := svc.ListOpportunities(cmd.Context(), owner())
	if err != nil {
		return err
	}
	if len(opps) == 0 {
		fmt.Println("No opportunities yet.")
		return nil
	}
	for _, opp := range opps {
		fmt.Printf("%s  %-30s  %-20s  %-15s  %d artifacts\n",
			opp.ID, opp.Name, opp.ClientName, opp.CurrentPhase, opp.ArtifactsCount)
	}
	return nil
}

func showOpportunity(cmd *cobra.Command, args []string) error {
	svc, st, _, err := openService()
	if err != nil {
		return err
	}
	defer st.Close()

	opp, err := svc.GetOpportunity(cmd.Context(), owner(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("%s (%s)\n", opp.Name, opp.ID)
	fmt.Printf("Client:       %s\n", opp.ClientName)
	fmt.Printf("Description:  %s\n", opp.Description)
	fmt.Printf("Status:       %s\n", opp.Status)
	fmt.Printf("Phase:        %s\n", opp.CurrentPhase)
	fmt.Printf("Artifacts:    %d\n", opp.ArtifactsCount)
	if len(opp.Stakeholders) > 0 {
		fmt.Printf("Stakeholders: %v\n", opp.Stakeholders)
	}
	fmt.Println("Progress:")
	for _, phase := range domain.Phases {
		if row, ok := opp.PhaseProgress[phase]; ok {
			fmt.Printf("  %-16s %-12s %3d%%  %d artifacts\n",
				row.Phase, row.Status, row.CompletionPercentage, row.ArtifactsCount)
		}
	}
	return nil
}

func activateOpportunity(cmd *cobra.Command, args []string) error {
	svc, st, _, err := openService()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := svc.ActivateOpportunity(cmd.Context(), owner(), args[0]); err != nil {
		return err
	}
	logger.Info("opportunity activated", zap.String("id", args[0]))
	fmt.Printf("Active opportunity is now %s\n", args[0])
	return nil
}

func deactivateOpportunity(cmd *cobra.Command, args []string) error {
	svc, st, _, err := openService()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := svc.DeactivateOpportunity(cmd.Context(), owner()); err != nil {
		return err
	}
	fmt.Println("No opportunity selected.")
	return nil
}

func deleteOpportunity(cmd *cobra.Command, args []string) error {
	svc, st, _, err := openService()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := svc.DeleteOpportunity(cmd.Context(), owner(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted %s (artifacts and progress removed)\n", args[0])
	return nil
}

func setOpportunityStatus(cmd *cobra.Command, args []string) error {
	svc, st, _, err := openService()
	if err != nil {
		return err
	}
	defer st.Close()

	opp, err := svc.SetStatus(cmd.Context(), owner(), args[0], domain.OpportunityStatus(args[1]))
	if err != nil {
		return err
	}
	fmt.Printf("%s is now %s\n", opp.Name, opp.Status)
	return nil
}

func addOpportunityInsight(cmd *cobra.Command, args []string) error {
	svc, st, _, err := openService()
	if err != nil {
		return err
	}
	defer st.Close()

	opp, err := svc.AddInsight(cmd.Context(), owner(), args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Printf("Recorded. %s now carries %d insights.\n", opp.Name, len(opp.KeyInsights))
	return nil
}

func setOpportunitySummary(cmd *cobra.Command, args []string) error {
	svc, st, _, err := openService()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := svc.SetContextSummary(cmd.Context(), owner(), args[0], args[1]); err != nil {
		return err
	}
	fmt.Println("Context summary updated.")
	return nil
}
