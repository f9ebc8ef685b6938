package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List available tools",
	Long: `List the read-only tools the model may call.

Examples:
  lumen tools              # list tools
  lumen tools --verbose    # include parameters
  lumen tools exec recent_transactions '{"limit": 5}'`,
	Args: cobra.NoArgs,
	RunE: runTools,
}

var toolsExecCmd = &cobra.Command{
	Use:   "exec <tool> [arguments-json]",
	Short: "Run one tool directly and print its result",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runToolsExec,
}

func init() {
	toolsCmd.AddCommand(toolsExecCmd)
}

type schemaProperty struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

type schema struct {
	Properties map[string]schemaProperty `json:"properties"`
	Required   []string                  `json:"required"`
}

func runTools(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), logStderr)
	if err != nil {
		return err
	}
	defer a.Close()

	toolStyle := warnStyle.Bold(true)

	fmt.Println(headerStyle.Render("Available Tools"))
	fmt.Println()

	for _, def := range a.server.Tools() {
		fmt.Printf("  %s\n", toolStyle.Render("◆ "+def.Name))
		fmt.Printf("    %s\n", labelStyle.Render(def.Description))

		var s schema
		if verbose && json.Unmarshal(def.Parameters, &s) == nil && len(s.Properties) > 0 {
			names := make([]string, 0, len(s.Properties))
			for name := range s.Properties {
				names = append(names, name)
			}
			sort.Strings(names)

			fmt.Println("    Parameters:")
			for _, name := range names {
				p := s.Properties[name]
				req := ""
				for _, r := range s.Required {
					if r == name {
						req = " (required)"
					}
				}
				fmt.Printf("      %s %s%s\n", accentStyle.Render(name), labelStyle.Render(p.Type), req)
				fmt.Printf("        %s\n", labelStyle.Render(p.Description))
			}
		}
		fmt.Println()
	}

	if !verbose {
		fmt.Println(labelStyle.Render("  Use --verbose for parameter details"))
	}
	return nil
}

func runToolsExec(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), logStderr)
	if err != nil {
		return err
	}
	defer a.Close()

	raw := "{}"
	if len(args) == 2 {
		raw = args[1]
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	res := a.server.ExecuteTool(ctx, args[0], raw)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("%s failed", args[0])
	}
	return nil
}
