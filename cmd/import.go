package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"wikiqa/internal/corpus"
)

var importCmd = &cobra.Command{
	Use:   "import [corpus.csv]",
	Short: "Load the corpus CSV into the SQLite database",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.Corpus
		if len(args) == 1 {
			path = args[0]
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		mem, err := corpus.LoadCSV(path, 0)
		if err != nil {
			return err
		}
		st, err := a.OpenStore()
		if err != nil {
			return err
		}
		defer st.Close()

		start := time.Now()
		if err := st.ReplaceCorpus(mem, path); err != nil {
			return fmt.Errorf("import corpus: %w", err)
		}
		fmt.Printf("%s imported %d records into %s in %s\n", success("Done:"), st.Len(), cfg.DB,
			time.Since(start).Round(time.Millisecond))
		if a.Checkpoints.Exists() {
			fmt.Printf("  %s an index checkpoint exists in %s; rebuild with 'wikiqa index --fresh' if the corpus changed\n",
				warning("!"), a.Checkpoints.Dir)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
