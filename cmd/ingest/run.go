package main

import (
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"neural-trace-go/internal/app"
	"neural-trace-go/pkg/log"
	"neural-trace-go/pkg/tasks"
)

var runFlags struct {
	textbookID string
	title      string
	object     string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process a textbook object in this process",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		sc := app.NewSanityClient(cfg.Sanity)
		vectors, err := app.NewVectorIndex(ctx, cfg)
		if err != nil {
			return eris.Wrap(err, "init vector index")
		}
		processor, err := app.NewIngestProcessor(ctx, cfg, sc, vectors)
		if err != nil {
			return eris.Wrap(err, "init ingest processor")
		}

		task := tasks.IngestTask{
			TaskID:        uuid.NewString(),
			TextbookID:    runFlags.textbookID,
			TextbookTitle: runFlags.title,
			ObjectName:    runFlags.object,
		}
		if err := processor.Process(ctx, task); err != nil {
			return eris.Wrap(err, "process textbook")
		}
		log.Infow("textbook ingested", "textbook", task.TextbookID, "object", task.ObjectName)
		return nil
	},
}

func init() {
	addTaskFlags(runCmd, &runFlags.textbookID, &runFlags.title, &runFlags.object)
	rootCmd.AddCommand(runCmd)
}

// addTaskFlags 注册 run 与 enqueue 共用的任务参数。
func addTaskFlags(cmd *cobra.Command, textbookID, title, object *string) {
	cmd.Flags().StringVar(textbookID, "textbook-id", "", "Sanity textbook document id (required)")
	cmd.Flags().StringVar(title, "title", "", "textbook title; read from Sanity when empty")
	cmd.Flags().StringVar(object, "object", "", "object name of the PDF in the bucket (required)")
	_ = cmd.MarkFlagRequired("textbook-id")
	_ = cmd.MarkFlagRequired("object")
}
