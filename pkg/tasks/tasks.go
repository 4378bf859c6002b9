// Package tasks defines the messages exchanged over the ingestion queue.
package tasks

// IngestTask asks the ingestion processor to split a textbook PDF into page documents.
type IngestTask struct {
	TaskID        string `json:"task_id"`
	TextbookID    string `json:"textbook_id"`
	TextbookTitle string `json:"textbook_title"`
	ObjectName    string `json:"object_name"`
}
