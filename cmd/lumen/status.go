package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/reinhart/lumen/internal/assistant"
	"github.com/spf13/cobra"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show provider availability",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print the status as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), logStderr)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	st := a.router.Status(ctx)
	if statusJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	fmt.Println(headerStyle.Render("Lumen"))
	fmt.Println()
	fmt.Printf("%s %s\n", labelStyle.Render("Policy:"), string(st.Policy))
	printProvider("Local:", st.Local)
	printProvider("Cloud:", st.Cloud)
	fmt.Printf("%s %d loaded\n", labelStyle.Render("Transactions:"), a.store.Len())
	if a.cfgPath != "" {
		fmt.Printf("%s %s\n", labelStyle.Render("Config:"), a.cfgPath)
	}
	return nil
}

func printProvider(label string, p assistant.ProviderStatus) {
	state := errorStyle.Render("✗ unavailable")
	if p.Available {
		state = okStyle.Render("✓ available")
	}
	line := fmt.Sprintf("%s %s  %s", labelStyle.Render(label), state, accentStyle.Render(p.Model))
	if p.URL != "" {
		line += "  " + labelStyle.Render(p.URL)
	}
	fmt.Println(line)
}
