package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/reinhart/lumen/internal/assistant"
	"github.com/spf13/cobra"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a single question",
	Example: `  lumen ask "What are my top spending categories this month?"
  lumen ask --json "Anything unusual in my transactions?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "Print the raw result as JSON")
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), logStderr)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Minute)
	defer cancel()

	var opts []assistant.ChatOption
	if verbose && !askJSON {
		opts = append(opts, assistant.WithProgress(func(u assistant.StatusUpdate) {
			fmt.Fprintln(os.Stderr, labelStyle.Render("· "+u.Message))
		}))
	}

	res := a.server.Chat(ctx, strings.Join(args, " "), opts...)

	if askJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	if !res.Success {
		fmt.Println(errorStyle.Render(res.Response))
		return fmt.Errorf("request failed: %s", res.Error)
	}
	fmt.Println(res.Response)

	var meta []string
	if len(res.ToolsUsed) > 0 {
		meta = append(meta, "tools: "+strings.Join(res.ToolsUsed, ", "))
	}
	if res.ProviderUsed != "" {
		meta = append(meta, "via "+string(res.ProviderUsed))
	}
	if len(meta) > 0 {
		fmt.Println()
		fmt.Println(labelStyle.Render(strings.Join(meta, " · ")))
	}
	return nil
}
