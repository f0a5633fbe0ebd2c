package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"wikiqa/internal/app"
	"wikiqa/internal/rag"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server exposing question answering and corpus search tools",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	sess, err := a.OpenSession(ctx)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer sess.Close()

	s := mcpserver.NewMCPServer("wikiqa", "1.0.0", mcpserver.WithToolCapabilities(false))

	s.AddTool(askQuestionTool(), makeAskHandler(sess.Orchestrator))
	s.AddTool(searchCorpusTool(), makeSearchHandler(sess.Orchestrator))
	s.AddTool(indexStatusTool(), makeStatusHandler(a.Status))

	return mcpserver.ServeStdio(s)
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// --- Tool schema builders ---

var readOnlyAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

func askQuestionTool() mcp.Tool {
	return mcp.NewTool("ask_question",
		mcp.WithDescription("Answer a question from the indexed Wikipedia chunks: retrieves the nearest chunks and generates an answer grounded in them."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Natural language question"),
		),
	)
}

func searchCorpusTool() mcp.Tool {
	return mcp.NewTool("search_corpus",
		mcp.WithDescription("Find the Wikipedia chunks nearest to a query by exact vector search. Returns titles, positions, distances and text."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language query"),
		),
		mcp.WithNumber("k",
			mcp.Description("Maximum number of chunks to return (default 10)"),
		),
	)
}

func indexStatusTool() mcp.Tool {
	return mcp.NewTool("index_status",
		mcp.WithDescription("Report how much of the corpus is indexed, the embedding model and dimension, and when the last checkpoint was saved."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
	)
}

// --- Handler factories ---

func makeAskHandler(o *rag.Orchestrator) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question := req.GetString("question", "")
		if strings.TrimSpace(question) == "" {
			return mcp.NewToolResultError("question is required"), nil
		}

		ans, err := o.Answer(ctx, question)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("answer failed: %v", err)), nil
		}

		var sb strings.Builder
		sb.WriteString(ans.Text)
		if len(ans.Sources) > 0 {
			sb.WriteString("\n\nSources:\n")
			for i, s := range ans.Sources {
				fmt.Fprintf(&sb, "%d. %s (position %d)\n", i+1, s.Title, s.Position)
			}
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func makeSearchHandler(o *rag.Orchestrator) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := req.GetString("query", "")
		if strings.TrimSpace(query) == "" {
			return mcp.NewToolResultError("query is required"), nil
		}
		k := req.GetInt("k", rag.DefaultK)
		if k <= 0 {
			k = rag.DefaultK
		}

		scoped := *o
		scoped.K = k
		normalized, sources, err := scoped.Retrieve(ctx, query)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}

		return mcp.NewToolResultText(formatSearchResults(normalized, sources)), nil
	}
}

func makeStatusHandler(status func() (app.Status, error)) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		s, err := status()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("status failed: %v", err)), nil
		}
		return mcp.NewToolResultText(formatStatus(s)), nil
	}
}

// --- Formatting helpers ---

func formatSearchResults(query string, sources []rag.Source) string {
	if len(sources) == 0 {
		return fmt.Sprintf("No results found for query: %q", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Search results for %q (%d chunks)\n\n", query, len(sources))
	for i, s := range sources {
		fmt.Fprintf(&sb, "### Result %d: %s\n\n", i+1, s.Title)
		fmt.Fprintf(&sb, "**Position:** %d  \n**Distance:** %.4f\n\n", s.Position, s.Distance)
		sb.WriteString(s.Text)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

func formatStatus(s app.Status) string {
	var sb strings.Builder
	switch {
	case !s.Exists:
		sb.WriteString("No index checkpoint yet. Run 'wikiqa index' to build one.\n")
	case s.Err != nil:
		fmt.Fprintf(&sb, "Checkpoint in %s is unusable and will be rebuilt: %v\n", s.CheckpointDir, s.Err)
	default:
		fmt.Fprintf(&sb, "Indexed positions: %d\n", s.NextPosition)
		fmt.Fprintf(&sb, "Embedding model: %s\n", s.Meta.EmbeddingModel)
		fmt.Fprintf(&sb, "Dimension: %d\n", s.Meta.Dimension)
		fmt.Fprintf(&sb, "Last checkpoint: %s\n", s.Meta.SavedAt.Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Fprintf(&sb, "Backend: %s\n", s.Backend)
	if s.DB != nil {
		fmt.Fprintf(&sb, "Database records: %d, vectors: %d\n", s.DB.Records, s.DB.Vectors)
	}
	return sb.String()
}
