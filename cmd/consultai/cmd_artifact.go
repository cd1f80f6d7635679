package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"consultai/internal/domain"
	"consultai/internal/engagement"
	"consultai/internal/projector"
)

var (
	artOpportunity string
	artType        string
	artTitle       string
	artContent     string
	artPhase       string
	artTags        []string
	artSearchType  string
	artSearchTags  []string
)

// artifactCmd groups artifact operations
var artifactCmd = &cobra.Command{
	Use:     "artifact",
	Aliases: []string{"art"},
	Short:   "File and find engagement artifacts",
}

var artAddCmd = &cobra.Command{
	Use:   "add",
	Short: "File an artifact under an opportunity",
	Long: `Files a typed artifact against an opportunity. Without --phase the
artifact lands in the opportunity's current phase. Both the opportunity's
total and the phase's artifact count move in the same step as the insert.

Example:
  consultai artifact add --opportunity opp_1a2b3c4d --type meeting_note \
    --title "Kickoff with CTO" --content "Agreed on scope..." --tag kickoff`,
	RunE: addArtifact,
}

var artSearchCmd = &cobra.Command{
	Use:   "search [opportunity-id] [query]",
	Short: "Search an opportunity's artifacts by relevance",
	Args:  cobra.ExactArgs(2),
	RunE:  searchArtifacts,
}

var artShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show one artifact in full",
	Args:  cobra.ExactArgs(1),
	RunE:  showArtifact,
}

func init() {
	artAddCmd.Flags().StringVar(&artOpportunity, "opportunity", "", "opportunity id (required)")
	artAddCmd.Flags().StringVar(&artType, "type", "", "artifact type, e.g. meeting_note, pain_point, requirement (required)")
	artAddCmd.Flags().StringVar(&artTitle, "title", "", "artifact title (required)")
	artAddCmd.Flags().StringVar(&artContent, "content", "", "artifact content (required)")
	artAddCmd.Flags().StringVar(&artPhase, "phase", "", "phase to file under (default: current phase)")
	artAddCmd.Flags().StringSliceVar(&artTags, "tag", nil, "tag (repeatable)")

	artSearchCmd.Flags().StringVar(&artSearchType, "type", "", "restrict to one artifact type")
	artSearchCmd.Flags().StringSliceVar(&artSearchTags, "tag", nil, "restrict to artifacts carrying a tag (repeatable)")

	artifactCmd.AddCommand(artAddCmd)
	artifactCmd.AddCommand(artSearchCmd)
	artifactCmd.AddCommand(artShowCmd)
}

func addArtifact(cmd *cobra.Command, args []string) error {
	if artOpportunity == "" {
		return fmt.Errorf("--opportunity is required")
	}

	svc, st, _, err := openService()
	if err != nil {
		return err
	}
	defer st.Close()

	artifact, err := svc.AddArtifact(cmd.Context(), owner(), artOpportunity, engagement.AddArtifactInput{
		Type:      artType,
		Title:     artTitle,
		Content:   artContent,
		Phase:     artPhase,
		Tags:      artTags,
		CreatedBy: owner(),
	})
	if err != nil {
		return err
	}

	fmt.Printf("Filed %s (%s) under %s phase %s\n", artifact.Title, artifact.ID, artifact.OpportunityID, artifact.Phase)
	return nil
}

func searchArtifacts(cmd *cobra.Command, args []string) error {
	svc, st, _, err := openService()
	if err != nil {
		return err
	}
	defer st.Close()

	matches, err := svc.SearchArtifacts(cmd.Context(), owner(), args[0], args[1], projector.SearchOptions{
		Type: domain.ArtifactType(artSearchType),
		Tags: artSearchTags,
	})
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		fmt.Println("No matching artifacts.")
		return nil
	}
	for _, m := range matches {
		fmt.Printf("%s  [%-15s]  %-40s  score=%d\n", m.Artifact.ID, m.Artifact.Type, m.Artifact.Title, m.Score)
		if m.Snippet != "" {
			fmt.Printf("    %s\n", m.Snippet)
		}
	}
	return nil
}

func showArtifact(cmd *cobra.Command, args []string) error {
	svc, st, _, err := openService()
	if err != nil {
		return err
	}
	defer st.Close()

	artifact, err := svc.GetArtifact(cmd.Context(), owner(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("%s (%s)\n", artifact.Title, artifact.ID)
	fmt.Printf("Opportunity: %s\n", artifact.OpportunityID)
	fmt.Printf("Type:        %s\n", artifact.Type)
	fmt.Printf("Phase:       %s\n", artifact.Phase)
	if len(artifact.Tags) > 0 {
		fmt.Printf("Tags:        %s\n", strings.Join(artifact.Tags, ", "))
	}
	if artifact.CreatedBy != "" {
		fmt.Printf("Created by:  %s\n", artifact.CreatedBy)
	}
	fmt.Printf("Created at:  %s\n", artifact.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Println()
	fmt.Println(artifact.Content)
	return nil
}
