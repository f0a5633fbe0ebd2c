package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"wikiqa/internal/index"
)

var flagFresh bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Embed the corpus into the vector index, resuming from the last checkpoint",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Indexing %s...\n", cfg.Corpus)
		start := time.Now()
		lastReport := time.Time{}
		stats, err := a.Build(ctx, flagFresh, func(phase string, done, total int) {
			if time.Since(lastReport) < time.Second && done < total {
				return
			}
			lastReport = time.Now()
			fmt.Printf("\r  %s %d/%d", phase, done, total)
		})
		elapsed := time.Since(start)

		if stats != nil {
			fmt.Printf("\n\nDone in %s\n", elapsed.Round(time.Millisecond))
			fmt.Printf("  Chunks:      %d total, %d embedded, %d resumed\n", stats.Total, stats.Embedded, stats.Skipped)
			fmt.Printf("  Dimension:   %d\n", stats.Dimension)
			fmt.Printf("  Checkpoints: %d written to %s\n", stats.Checkpoints, cfg.CheckpointDir)
		}
		if errors.Is(err, index.ErrCheckpointSave) {
			fmt.Printf("%s progress since the last checkpoint was not saved\n", failure("!"))
			return err
		}
		if errors.Is(err, context.Canceled) {
			fmt.Printf("%s interrupted; progress is checkpointed, run 'wikiqa index' to resume\n", warning("!"))
			return nil
		}
		if err != nil {
			return err
		}
		if stats != nil && stats.Total == stats.Skipped+stats.Embedded {
			fmt.Println(success("Index is complete."))
		}
		return nil
	},
}

func init() {
	indexCmd.Flags().BoolVar(&flagFresh, "fresh", false, "discard the existing checkpoint and rebuild from position 0")
	indexCmd.Flags().Int("batch-size", index.DefaultBatchSize, "chunks per embedding call")
	indexCmd.Flags().Int("checkpoint-every", index.DefaultCheckpointEvery, "chunks between checkpoints")
	_ = viper.BindPFlag("batch_size", indexCmd.Flags().Lookup("batch-size"))
	_ = viper.BindPFlag("checkpoint_every", indexCmd.Flags().Lookup("checkpoint-every"))
	rootCmd.AddCommand(indexCmd)
}
