package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// AskRequest represents the chat API request.
type AskRequest struct {
	Query     string  `json:"query"`
	Project   string  `json:"project"`
	Threshold float64 `json:"threshold,omitempty"`
	Limit     int     `json:"limit,omitempty"`
}

// AskResponse represents the chat API response.
type AskResponse struct {
	Response         string         `json:"response"`
	Context          []SearchResult `json:"context"`
	KnowledgeGap     bool           `json:"knowledge_gap"`
	KnowledgeGapType string         `json:"knowledge_gap_type,omitempty"`
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var (
		threshold   float64
		limit       int
		showContext bool
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question against the knowledge base",
		Long:  "Retrieves relevant chunks and generates an answer. Weak retrieval is logged as a knowledge gap.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runAsk(args[0], threshold, limit, showContext, outputJSON)
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Minimum similarity for retrieval (server default when 0)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "Maximum context chunks")
	cmd.Flags().BoolVar(&showContext, "context", false, "Show retrieved context chunks")
	cmd.Flags().Bool("output", false, "Output as JSON")

	return cmd
}

func runAsk(query string, threshold float64, limit int, showContext, outputJSON bool) error {
	config, err := LoadConfig()
	if err != nil {
		return err
	}

	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	req := AskRequest{
		Query:     query,
		Project:   config.ProjectID,
		Threshold: threshold,
		Limit:     limit,
	}

	resp, err := api.Post("/chat", req)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	var askResp AskResponse
	if err := json.Unmarshal(resp.Data, &askResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(askResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Println(askResp.Response)

	if askResp.KnowledgeGap {
		fmt.Println()
		if askResp.KnowledgeGapType != "" {
			fmt.Printf("Note: logged a knowledge gap (%s) for this question.\n", askResp.KnowledgeGapType)
		} else {
			fmt.Println("Note: logged a knowledge gap for this question.")
		}
	}

	if showContext && len(askResp.Context) > 0 {
		fmt.Printf("\n%s\nContext (%d chunks):\n", strings.Repeat("-", 40), len(askResp.Context))
		for i, chunk := range askResp.Context {
			content := chunk.Content
			if len(content) > 120 {
				content = content[:117] + "..."
			}
			fmt.Printf("%d. (%.2f) %s\n", i+1, chunk.Similarity, content)
		}
	}

	return nil
}
