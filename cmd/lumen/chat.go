package main

import (
	"github.com/reinhart/lumen/internal/ui"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat",
	Long: `Start the full-screen chat.

Logs go to debug.log in the current directory when --verbose or agent.debug
is set, since the terminal belongs to the UI.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), logFile)
		if err != nil {
			return err
		}
		defer a.Close()
		return ui.Run(a.server)
	},
}
