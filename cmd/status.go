package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"wikiqa/internal/app"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the checkpoint and database state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		s, err := a.Status()
		if err != nil {
			return err
		}
		printStatus(os.Stdout, s)
		return nil
	},
}

func printStatus(out io.Writer, s app.Status) {
	fmt.Fprintln(out, heading("Checkpoint"))
	fmt.Fprintf(out, "  Directory:     %s\n", s.CheckpointDir)
	switch {
	case !s.Exists:
		fmt.Fprintf(out, "  State:         %s\n", warning("none; run 'wikiqa index'"))
	case s.Err != nil:
		fmt.Fprintf(out, "  State:         %s\n", failure("unusable, will rebuild from 0"))
		fmt.Fprintf(out, "  Reason:        %v\n", s.Err)
	default:
		fmt.Fprintf(out, "  State:         %s\n", success("ok"))
		fmt.Fprintf(out, "  Next position: %d\n", s.NextPosition)
		fmt.Fprintf(out, "  Dimension:     %d\n", s.Meta.Dimension)
		fmt.Fprintf(out, "  Model:         %s\n", s.Meta.EmbeddingModel)
		fmt.Fprintf(out, "  Saved:         %s\n", s.Meta.SavedAt.Local().Format(time.RFC1123))
	}
	fmt.Fprintf(out, "  Backend:       %s\n", s.Backend)
	if s.DB != nil {
		fmt.Fprintln(out, heading("Database"))
		fmt.Fprintf(out, "  Records:       %d\n", s.DB.Records)
		fmt.Fprintf(out, "  Vectors:       %d\n", s.DB.Vectors)
		if s.DB.Source != "" {
			fmt.Fprintf(out, "  Source:        %s\n", s.DB.Source)
		}
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
