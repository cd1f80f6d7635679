package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"consultai/internal/assistant"
)

// chatCmd runs the interactive assistant
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the consulting assistant",
	Long: `Starts an interactive session with the AI assistant. Each turn carries
the active opportunity's projected context, and the assistant can file
artifacts, record insights, change phases, and manage tasks through the same
operations the CLI uses.

Requires an API key via GEMINI_API_KEY or llm.api_key in the config file.`,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	svc, st, cfg, err := openService()
	if err != nil {
		return err
	}
	defer st.Close()

	asst, err := assistant.New(cmd.Context(), cfg.LLM.APIKey, cfg.LLM.Model, svc, owner(), logger)
	if err != nil {
		return err
	}

	fmt.Println("consultai assistant. Type a message, or /quit to leave.")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			break
		}

		reply, err := asst.Send(cmd.Context(), line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		fmt.Println(reply)
	}
	return scanner.Err()
}
