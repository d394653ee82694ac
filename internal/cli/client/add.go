package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// IngestRequest represents the source ingestion API request.
type IngestRequest struct {
	Content    string `json:"content"`
	Title      string `json:"title,omitempty"`
	SourceType string `json:"source_type,omitempty"`
	Project    string `json:"project"`
	MaxWords   int    `json:"max_words,omitempty"`
}

// IngestResponse represents the source ingestion API response.
type IngestResponse struct {
	SourceID string `json:"source_id"`
	Chunks   int    `json:"chunks"`
}

// BatchResult represents a single result in a batch operation.
type BatchResult struct {
	SourceID string `json:"source_id,omitempty"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
	Title    string `json:"title,omitempty"`
	Chunks   int    `json:"chunks,omitempty"`
}

// BatchResponse represents the response for a batch operation.
type BatchResponse struct {
	Results   []BatchResult `json:"results"`
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
}

// AddCmd creates the add command.
func AddCmd() *cobra.Command {
	var (
		file       string
		sourceType string
		title      string
		maxWords   int
		batch      bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Ingest content from stdin or file",
		Long: `Ingest content into the knowledge base. Content is chunked, embedded, and
stored under the current project.

Examples:
  # Ingest plain text from stdin
  cat notes.txt | lumen add --title "Release notes"

  # Ingest a file
  lumen add --file guide.md --title "Setup guide" --type context

  # Streaming batch ingest from JSONL (one JSON object per line)
  cat sources.jsonl | lumen add --batch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			if batch {
				return runBatchAdd(file, outputJSON)
			}
			return runAdd(file, sourceType, title, maxWords, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Input file (plain text or JSON)")
	cmd.Flags().StringVarP(&sourceType, "type", "t", "", "Source type (context, issue, inquiry, product)")
	cmd.Flags().StringVar(&title, "title", "", "Title for the ingested source")
	cmd.Flags().IntVar(&maxWords, "max-words", 0, "Maximum words per chunk (server default when 0)")
	cmd.Flags().BoolVar(&batch, "batch", false, "Batch mode: JSONL input, one source per line")
	cmd.Flags().Bool("output", false, "Output as JSON")

	return cmd
}

func runAdd(file, sourceType, title string, maxWords int, outputJSON bool) error {
	config, err := LoadConfig()
	if err != nil {
		return err
	}

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

	if len(input) == 0 {
		return fmt.Errorf("no input provided")
	}

	req := IngestRequest{
		Project:    config.ProjectID,
		SourceType: sourceType,
		Title:      title,
		MaxWords:   maxWords,
	}

	// JSON input carries its own fields; anything else is raw content
	if isJSONInput(input) {
		var jsonReq IngestRequest
		if err := json.Unmarshal(input, &jsonReq); err != nil {
			return fmt.Errorf("failed to parse JSON input: %w", err)
		}
		req.Content = jsonReq.Content
		if jsonReq.Title != "" && title == "" {
			req.Title = jsonReq.Title
		}
		if jsonReq.SourceType != "" && sourceType == "" {
			req.SourceType = jsonReq.SourceType
		}
		if jsonReq.MaxWords > 0 && maxWords == 0 {
			req.MaxWords = jsonReq.MaxWords
		}
	} else {
		req.Content = string(input)
	}

	if strings.TrimSpace(req.Content) == "" {
		return fmt.Errorf("content is required")
	}

	resp, err := api.Post("/sources", req)
	if err != nil {
		return fmt.Errorf("failed to ingest content: %w", err)
	}

	var result IngestResponse
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("Ingested source: %s\n", result.SourceID)
		fmt.Printf("Chunks stored: %d\n", result.Chunks)
	}

	return nil
}

func isJSONInput(input []byte) bool {
	s := strings.TrimSpace(string(input))
	return len(s) > 0 && s[0] == '{'
}

// runBatchAdd processes JSONL input line by line for memory efficiency.
func runBatchAdd(file string, outputJSON bool) error {
	config, err := LoadConfig()
	if err != nil {
		return err
	}

	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	var reader io.Reader
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return fmt.Errorf("failed to open file: %w", err)
		}
		defer f.Close()
		reader = f
	} else {
		reader = os.Stdin
	}

	scanner := bufio.NewScanner(reader)
	// Large lines up to 5MB to match the server's body limit
	const maxScanTokenSize = 5 * 1024 * 1024
	buf := make([]byte, maxScanTokenSize)
	scanner.Buffer(buf, maxScanTokenSize)

	response := BatchResponse{
		Results: make([]BatchResult, 0),
	}

	lineNum := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue // Skip empty lines
		}

		lineNum++
		response.Total++

		var item IngestRequest
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			result := BatchResult{
				Status: "failed",
				Error:  fmt.Sprintf("line %d: failed to parse JSON: %v", lineNum, err),
			}
			response.Results = append(response.Results, result)
			response.Failed++
			if !outputJSON {
				fmt.Fprintf(os.Stderr, "Line %d: parse error: %v\n", lineNum, err)
			}
			continue
		}

		item.Project = config.ProjectID

		if strings.TrimSpace(item.Content) == "" {
			result := BatchResult{
				Status: "failed",
				Error:  "content is required",
				Title:  item.Title,
			}
			response.Results = append(response.Results, result)
			response.Failed++
			if !outputJSON {
				fmt.Fprintf(os.Stderr, "Line %d: content is required\n", lineNum)
			}
			continue
		}

		resp, err := api.Post("/sources", item)
		if err != nil {
			result := BatchResult{
				Status: "failed",
				Error:  err.Error(),
				Title:  item.Title,
			}
			response.Results = append(response.Results, result)
			response.Failed++
			if !outputJSON {
				fmt.Fprintf(os.Stderr, "Line %d: %v\n", lineNum, err)
			}
			continue
		}

		var ingest IngestResponse
		if err := json.Unmarshal(resp.Data, &ingest); err != nil {
			result := BatchResult{
				Status: "failed",
				Error:  fmt.Sprintf("failed to parse response: %v", err),
				Title:  item.Title,
			}
			response.Results = append(response.Results, result)
			response.Failed++
			continue
		}

		response.Results = append(response.Results, BatchResult{
			SourceID: ingest.SourceID,
			Status:   "ingested",
			Title:    item.Title,
			Chunks:   ingest.Chunks,
		})
		response.Succeeded++

		if !outputJSON {
			fmt.Printf("Ingested: %s (%d chunks)\n", ingest.SourceID, ingest.Chunks)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading input: %w", err)
	}

	if response.Total == 0 {
		return fmt.Errorf("no items provided")
	}

	if outputJSON {
		output, _ := json.MarshalIndent(response, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("\nBatch complete: %d succeeded, %d failed out of %d total\n",
			response.Succeeded, response.Failed, response.Total)
	}

	if response.Failed > 0 {
		return fmt.Errorf("batch completed with %d failures", response.Failed)
	}

	return nil
}
