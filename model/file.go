package model

import (
	"time"

	"github.com/google/uuid"
)

// FileStatus represents the lifecycle state of an ingested file.
type FileStatus string

const (
	FileStatusPending    FileStatus = "pending"
	FileStatusProcessing FileStatus = "processing"
	FileStatusCompleted  FileStatus = "completed"
	FileStatusFailed     FileStatus = "failed"
)

// IngestedFile is the metadata record of one ingested document.
type IngestedFile struct {
	ID                 int        `json:"id"`
	RID                uuid.UUID  `json:"rid"`
	Filename           string     `json:"filename"`
	Filepath           string     `json:"filepath,omitempty"`
	Filesize           int64      `json:"filesize"`
	Status             FileStatus `json:"status"`
	IngestedAt         time.Time  `json:"ingested_at"`
	ChunkCount         int        `json:"chunk_count"`
	EntitiesAdded      int        `json:"entities_added"`
	RelationshipsAdded int        `json:"relationships_added"`
	ErrorMessage       string     `json:"error_message,omitempty"`
}
