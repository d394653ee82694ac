package client

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

// GapItem represents a logged knowledge gap.
type GapItem struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Severity    string   `json:"severity,omitempty"`
	Status      string   `json:"status,omitempty"`
	CreatedAt   string   `json:"created_at"`
}

// GapListResponse represents the gap list API response.
type GapListResponse struct {
	Items      []GapItem `json:"items"`
	NextCursor string    `json:"next_cursor,omitempty"`
	HasMore    bool      `json:"has_more"`
}

// GapsCmd creates the gaps command.
func GapsCmd() *cobra.Command {
	var (
		gapType string
		limit   int
		cursor  string
	)

	cmd := &cobra.Command{
		Use:   "gaps",
		Short: "List logged knowledge gaps",
		Long:  "Lists the knowledge gaps detected for the current project, newest first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runGaps(gapType, limit, cursor, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&gapType, "type", "t", "", "Filter by gap type (issue or inquiry)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")
	cmd.Flags().Bool("output", false, "Output as JSON")

	return cmd
}

func runGaps(gapType string, limit int, cursor string, outputJSON bool) error {
	config, err := LoadConfig()
	if err != nil {
		return err
	}

	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	query := url.Values{}
	if gapType != "" {
		query.Set("type", gapType)
	}
	if limit > 0 {
		query.Set("limit", fmt.Sprintf("%d", limit))
	}
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	path := fmt.Sprintf("/projects/%s/gaps", config.ProjectID)
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	resp, err := api.Get(path)
	if err != nil {
		return fmt.Errorf("failed to list gaps: %w", err)
	}

	var gapResp GapListResponse
	if err := json.Unmarshal(resp.Data, &gapResp); err != nil {
		return fmt.Errorf("failed to parse gaps: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(gapResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(gapResp.Items) == 0 {
		fmt.Println("No knowledge gaps found.")
		return nil
	}

	fmt.Printf("Knowledge gaps (%d):\n", len(gapResp.Items))
	for _, gap := range gapResp.Items {
		line := fmt.Sprintf("  [%s] %s", gap.Type, gap.Title)
		if gap.Severity != "" {
			line += fmt.Sprintf(" (severity: %s, status: %s)", gap.Severity, gap.Status)
		}
		fmt.Println(line)
		fmt.Printf("    %s\n", gap.Description)
		fmt.Printf("    ID: %s  Created: %s\n", gap.ID, gap.CreatedAt)
	}

	if gapResp.HasMore && gapResp.NextCursor != "" {
		fmt.Printf("\nMore results available. Use --cursor %s\n", gapResp.NextCursor)
	}

	return nil
}
