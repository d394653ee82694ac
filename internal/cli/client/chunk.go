package client

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// ChunkRequest represents the chunk preview API request.
type ChunkRequest struct {
	Content  string `json:"content"`
	MaxWords int    `json:"max_words,omitempty"`
}

// ChunkItem represents one chunk in the preview response.
type ChunkItem struct {
	Content     string   `json:"content"`
	Summary     string   `json:"summary"`
	Keywords    []string `json:"keywords"`
	ChunkIndex  int      `json:"chunk_index"`
	TotalChunks int      `json:"total_chunks"`
}

// ChunkResponse represents the chunk preview API response.
type ChunkResponse struct {
	Chunks []ChunkItem `json:"chunks"`
}

// ChunkCmd creates the chunk command.
func ChunkCmd() *cobra.Command {
	var (
		file     string
		maxWords int
	)

	cmd := &cobra.Command{
		Use:   "chunk",
		Short: "Preview how content would be chunked",
		Long:  "Splits content into chunks without storing anything. Useful for tuning --max-words before ingesting.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runChunk(file, maxWords, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Input file (stdin if not provided)")
	cmd.Flags().IntVar(&maxWords, "max-words", 0, "Maximum words per chunk (server default when 0)")
	cmd.Flags().Bool("output", false, "Output as JSON")

	return cmd
}

func runChunk(file string, maxWords int, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	var input []byte
	if file != "" {
		input, err = os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
	} else {
		input, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
	}

	if strings.TrimSpace(string(input)) == "" {
		return fmt.Errorf("no input provided")
	}

	resp, err := api.Post("/chunk", ChunkRequest{Content: string(input), MaxWords: maxWords})
	if err != nil {
		return fmt.Errorf("chunking failed: %w", err)
	}

	var chunkResp ChunkResponse
	if err := json.Unmarshal(resp.Data, &chunkResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(chunkResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("%d chunks:\n\n", len(chunkResp.Chunks))
	for _, chunk := range chunkResp.Chunks {
		fmt.Printf("--- chunk %d/%d ---\n", chunk.ChunkIndex, chunk.TotalChunks)
		fmt.Println(chunk.Content)
		if chunk.Summary != "" {
			fmt.Printf("Summary: %s\n", chunk.Summary)
		}
		if len(chunk.Keywords) > 0 {
			fmt.Printf("Keywords: %s\n", strings.Join(chunk.Keywords, ", "))
		}
		fmt.Println()
	}

	return nil
}
