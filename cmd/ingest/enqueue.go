package main

import (
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"neural-trace-go/pkg/kafka"
	"neural-trace-go/pkg/log"
	"neural-trace-go/pkg/tasks"
)

var enqueueFlags struct {
	textbookID string
	title      string
	object     string
}

var enqueueCmd = &cobra.Command{
	Use:   "enqueue",
	Short: "Send an ingest task to the queue for the server to process",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cfg.Kafka.Brokers == "" {
			return eris.New("kafka brokers are required (KAFKA_BROKERS)")
		}
		producer := kafka.NewProducer(cfg.Kafka)
		defer producer.Close()

		task := tasks.IngestTask{
			TaskID:        uuid.NewString(),
			TextbookID:    enqueueFlags.textbookID,
			TextbookTitle: enqueueFlags.title,
			ObjectName:    enqueueFlags.object,
		}
		if err := producer.ProduceIngestTask(cmd.Context(), task); err != nil {
			return eris.Wrap(err, "enqueue ingest task")
		}
		log.Infow("ingest task enqueued", "task", task.TaskID, "textbook", task.TextbookID)
		return nil
	},
}

func init() {
	addTaskFlags(enqueueCmd, &enqueueFlags.textbookID, &enqueueFlags.title, &enqueueFlags.object)
	rootCmd.AddCommand(enqueueCmd)
}
