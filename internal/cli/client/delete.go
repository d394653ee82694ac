package client

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

// DeleteCmd creates the delete command.
func DeleteCmd() *cobra.Command {
	var sourceType string

	cmd := &cobra.Command{
		Use:   "delete <source_id>",
		Short: "Delete an ingested source",
		Long:  "Removes all chunks of a source from the knowledge base. Idempotent.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runDelete(args[0], sourceType, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&sourceType, "type", "t", "", "Source type (default: context)")
	cmd.Flags().Bool("output", false, "Output as JSON")

	return cmd
}

func runDelete(sourceID, sourceType string, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	path := fmt.Sprintf("/sources/%s", sourceID)
	if sourceType != "" {
		path += "?source_type=" + url.QueryEscape(sourceType)
	}

	if _, err := api.Delete(path); err != nil {
		return fmt.Errorf("failed to delete source: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(map[string]interface{}{
			"source_id": sourceID,
			"deleted":   true,
		}, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("Deleted source: %s\n", sourceID)
	}

	return nil
}
