package cmd

import (
	"github.com/spf13/cobra"

	"wikiqa/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Build the index and ask questions in an interactive terminal UI",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI()
	},
}

func runTUI() error {
	a, err := newApp()
	if err != nil {
		return err
	}
	return tui.Run(tui.Config{App: a})
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}
