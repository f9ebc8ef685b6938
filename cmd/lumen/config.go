package main

import (
	"fmt"
	"os"

	"github.com/reinhart/lumen/internal/configuration"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or create configuration",
	Long:  "Show the effective configuration or create a default config file.",
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

var configInit bool

func init() {
	configCmd.Flags().BoolVar(&configInit, "init", false, "Create a default config file (at --config or ~/.config/lumen/config.toml)")
}

func runConfig(cmd *cobra.Command, args []string) error {
	if configInit {
		return initConfig()
	}
	return showConfig()
}

func initConfig() error {
	path := configPath
	if path == "" {
		path = configuration.UserPath()
	}

	if err := configuration.WriteDefault(path); err != nil {
		return err
	}
	fmt.Println(okStyle.Render("Created " + path + " with default settings."))
	fmt.Println("\nEdit this file to configure:")
	fmt.Println("  - the routing policy (auto, local or cloud)")
	fmt.Println("  - the local server URL and model")
	fmt.Println("  - the cloud backend, model and API key")
	fmt.Println("  - the transactions file")
	return nil
}

func showConfig() error {
	cfg, used, err := loadConfig()
	if err != nil {
		return err
	}

	if used == "" {
		fmt.Println(warnStyle.Render("No config file found. Showing defaults and environment overrides:"))
	} else {
		fmt.Println(accentStyle.Bold(true).Render("Current configuration (" + used + "):"))
	}
	fmt.Println()

	if err := cfg.Redacted().Encode(os.Stdout); err != nil {
		return err
	}

	fmt.Println(labelStyle.Render("\nConfig file locations (in order of precedence):"))
	for i, p := range configuration.SearchPaths() {
		fmt.Printf("  %d. %s\n", i+1, p)
	}
	return nil
}
