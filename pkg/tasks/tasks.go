// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

// DocumentIngestTask represents the data structure for a document ingestion job.
type DocumentIngestTask struct {
	DocumentID string `json:"document_id"`
	ObjectName string `json:"object_name"`
	FileName   string `json:"file_name"`
	FileExt    string `json:"file_ext"`
	OwnerID    string `json:"owner_id"`
	ContextID  string `json:"context_id"`
}
