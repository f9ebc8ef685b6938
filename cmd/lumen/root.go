package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var (
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7C3AED")).Bold(true)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4"))
)

var rootCmd = &cobra.Command{
	Use:   "lumen",
	Short: "Ask questions about your spending",
	Long: `Lumen answers questions about your transactions with a language model
that reads your data only through a fixed set of read-only tools.

A local OpenAI-compatible server (LM Studio, Ollama) is tried first and a
cloud provider is used as fallback, depending on llm.provider.

Examples:
  lumen chat                                   # interactive chat
  lumen ask "How much did I spend on dining?"  # one question
  lumen serve                                  # JSON HTTP API
  lumen status                                 # provider availability`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
}

func printError(err error) {
	fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
}
