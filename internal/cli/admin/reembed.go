package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lumenkb/lumen/internal/repository"
)

func ReembedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reembed",
		Short: "Manage re-embed jobs",
		Long:  "Queue embedding records for regeneration after an embedding model change",
	}

	cmd.AddCommand(ReembedAllCmd())
	cmd.AddCommand(ReembedRecordCmd())

	return cmd
}

func ReembedAllCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "all",
		Short: "Queue all embedding records for re-embedding",
		Long:  "Queue every embedding record without an open re-embed job. The running server's worker drains the queue.",
		RunE:  runReembedAll,
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runReembedAll(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	jobRepo := repository.NewReembedJobRepository(pool)

	enqueued, err := jobRepo.EnqueueAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to enqueue re-embed jobs: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"enqueued": enqueued,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("Enqueued %d re-embed jobs\n", enqueued)
	}

	return nil
}

func ReembedRecordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record <id>",
		Short: "Queue one embedding record for re-embedding",
		Args:  cobra.ExactArgs(1),
		RunE:  runReembedRecord,
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runReembedRecord(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	recordID := args[0]
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	jobRepo := repository.NewReembedJobRepository(pool)

	job, err := jobRepo.Enqueue(ctx, recordID)
	if err != nil {
		return fmt.Errorf("failed to enqueue re-embed job: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"id":        job.ID,
			"record_id": job.RecordID,
			"status":    job.Status,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("Re-embed job %s queued for record %s\n", job.ID, job.RecordID)
	}

	return nil
}
