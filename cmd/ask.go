package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"wikiqa/internal/rag"
)

var flagShowSources bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask questions interactively, or answer a single question given as arguments",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		fmt.Println("Loading index...")
		sess, err := a.OpenSession(ctx)
		if err != nil {
			return err
		}
		defer sess.Close()
		fmt.Printf("Using data up to chunk %d\n", sess.NextPosition)

		if len(args) > 0 {
			ans, err := sess.Answer(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			printAnswer(os.Stdout, ans)
			return nil
		}
		return askLoop(ctx, os.Stdin, os.Stdout, sess)
	},
}

type answerer interface {
	Answer(ctx context.Context, query string) (rag.Answer, error)
}

// askLoop reads one question per line until "exit" or end of input.
func askLoop(ctx context.Context, in io.Reader, out io.Writer, o answerer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for {
		fmt.Fprint(out, "Ask a question (or type 'exit'): ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			break
		}
		query := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(query, "exit") {
			return nil
		}
		if query == "" {
			continue
		}

		ans, err := o.Answer(ctx, query)
		if err != nil {
			fmt.Fprintf(out, "%s %v\n\n", failure("Error:"), err)
			continue
		}
		printAnswer(out, ans)
	}
	return scanner.Err()
}

func printAnswer(out io.Writer, ans rag.Answer) {
	fmt.Fprintf(out, "\n%s %s\n", heading("Query:"), ans.Query)
	fmt.Fprintf(out, "%s %s\n", heading("Answer:"), ans.Text)
	if flagShowSources {
		for i, s := range ans.Sources {
			fmt.Fprintf(out, "  %s\n", faint(fmt.Sprintf("[%d] %s (position %d, distance %.4f)", i+1, s.Title, s.Position, s.Distance)))
		}
	}
	fmt.Fprintln(out)
}

func init() {
	askCmd.Flags().BoolVar(&flagShowSources, "sources", false, "list the retrieved chunks under each answer")
	rootCmd.AddCommand(askCmd)
}
