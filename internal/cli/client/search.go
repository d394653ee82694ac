package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// SearchRequest represents the search API request.
type SearchRequest struct {
	Query      string  `json:"query"`
	Project    string  `json:"project"`
	Threshold  float64 `json:"threshold,omitempty"`
	Limit      int     `json:"limit,omitempty"`
	SourceType string  `json:"source_type,omitempty"`
}

// SearchResult represents a search result.
type SearchResult struct {
	ID         string  `json:"id"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
	SourceType string  `json:"source_type"`
	SourceID   string  `json:"source_id"`
	Metadata   struct {
		Summary       string   `json:"summary,omitempty"`
		Keywords      []string `json:"keywords,omitempty"`
		OriginalTitle string   `json:"original_title,omitempty"`
	} `json:"metadata"`
}

// SearchResponse represents the search API response.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var (
		sourceType string
		threshold  float64
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the knowledge base",
		Long:  "Searches stored chunks by semantic similarity.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSearch(args[0], sourceType, threshold, limit, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&sourceType, "type", "t", "", "Filter by source type (context, issue, inquiry, product)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Minimum similarity (server default when 0)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "Maximum number of results")
	cmd.Flags().Bool("output", false, "Output as JSON")

	return cmd
}

func runSearch(query, sourceType string, threshold float64, limit int, outputJSON bool) error {
	config, err := LoadConfig()
	if err != nil {
		return err
	}

	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	req := SearchRequest{
		Query:      query,
		Project:    config.ProjectID,
		Threshold:  threshold,
		Limit:      limit,
		SourceType: sourceType,
	}

	resp, err := api.Post("/search", req)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	var searchResp SearchResponse
	if err := json.Unmarshal(resp.Data, &searchResp); err != nil {
		return fmt.Errorf("failed to parse search results: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(searchResp, "", "  ")
		fmt.Println(string(output))
	} else {
		if len(searchResp.Results) == 0 {
			fmt.Println("No results found.")
			return nil
		}

		fmt.Printf("Found %d results:\n\n", len(searchResp.Results))
		for i, result := range searchResp.Results {
			title := result.Metadata.OriginalTitle
			if title == "" {
				title = result.SourceID
			}
			fmt.Printf("%d. %s (%.2f)\n", i+1, title, result.Similarity)
			content := result.Content
			if len(content) > 100 {
				content = content[:97] + "..."
			}
			fmt.Printf("   %s\n", content)
			if result.Metadata.Summary != "" {
				fmt.Printf("   Summary: %s\n", result.Metadata.Summary)
			}
			fmt.Printf("   ID: %s\n", result.ID)
			if i < len(searchResp.Results)-1 {
				fmt.Println(strings.Repeat("-", 40))
			}
		}
	}

	return nil
}
