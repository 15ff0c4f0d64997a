package models

import (
	"time"

	"github.com/lib/pq"
)

// SystemPrompt is a subject level instruction for the LLM. An empty TaskIDs
// list applies to every task.
type SystemPrompt struct {
	ID        string         `db:"id" json:"id"`
	SubjectID string         `db:"subject_id" json:"subjectId"`
	Name      string         `db:"name" json:"name"`
	Content   string         `db:"content" json:"content"`
	TaskIDs   pq.StringArray `db:"task_ids" json:"taskIds"`
	Priority  int            `db:"priority" json:"priority"`
	IsActive  bool           `db:"is_active" json:"isActive"`
	CreatedBy *string        `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time      `db:"updated_at" json:"updatedAt"`
}

// AppliesTo reports whether the prompt covers taskID.
func (p *SystemPrompt) AppliesTo(taskID string) bool {
	if len(p.TaskIDs) == 0 || taskID == "" {
		return true
	}
	for _, id := range p.TaskIDs {
		if id == taskID {
			return true
		}
	}
	return false
}

// PromptUpload is the single current prompt for a (subject, task, file type).
type PromptUpload struct {
	ID         string    `db:"id" json:"id"`
	SubjectID  string    `db:"subject_id" json:"subjectId"`
	TaskID     string    `db:"task_id" json:"taskId"`
	FileType   FileType  `db:"file_type" json:"fileType"`
	PromptText string    `db:"prompt_text" json:"promptText"`
	Version    int       `db:"version" json:"version"`
	UploadedBy *string   `db:"uploaded_by" json:"uploadedBy,omitempty"`
	IsActive   bool      `db:"is_active" json:"isActive"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}

// PromptUploadFilter narrows upload listings; empty fields match everything.
type PromptUploadFilter struct {
	SubjectID string
	TaskID    string
	FileType  FileType
}
