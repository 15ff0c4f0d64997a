package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// FileType names one of the four documents reviewed per exam.
type FileType string

const (
	FileTypeProblem     FileType = "problem"
	FileTypeAnswer      FileType = "answer"
	FileTypeExplanation FileType = "explanation"
	FileTypeScoring     FileType = "scoring"
)

// AllFileTypes is the canonical document order.
var AllFileTypes = []FileType{FileTypeProblem, FileTypeAnswer, FileTypeExplanation, FileTypeScoring}

// Valid reports whether f is a known file type.
func (f FileType) Valid() bool {
	switch f {
	case FileTypeProblem, FileTypeAnswer, FileTypeExplanation, FileTypeScoring:
		return true
	}
	return false
}

// TaskRow is one checklist item.
type TaskRow struct {
	TaskID      string `json:"taskId"`
	Remark      string `json:"remark"`
	Description string `json:"description"`
}

// TaskFile is the checklist for one document.
type TaskFile struct {
	FileType FileType  `json:"fileType"`
	Tasks    []TaskRow `json:"tasks"`
}

// TaskFiles is persisted as JSONB.
type TaskFiles []TaskFile

// Value marshals the files to JSON.
func (f TaskFiles) Value() (driver.Value, error) {
	if f == nil {
		f = TaskFiles{}
	}
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("marshal task files: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSONB into the files slice.
func (f *TaskFiles) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*f = TaskFiles{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for TaskFiles", value)
	}
	if len(data) == 0 {
		*f = TaskFiles{}
		return nil
	}
	if err := json.Unmarshal(data, f); err != nil {
		return fmt.Errorf("unmarshal task files: %w", err)
	}
	return nil
}

// TaskIDs returns the ordered task ids of the first file, which every file
// shares once validated.
func (f TaskFiles) TaskIDs() []string {
	if len(f) == 0 {
		return nil
	}
	ids := make([]string, 0, len(f[0].Tasks))
	for _, row := range f[0].Tasks {
		ids = append(ids, row.TaskID)
	}
	return ids
}

// EmptyTaskFiles returns all four file types with no rows.
func EmptyTaskFiles() TaskFiles {
	files := make(TaskFiles, 0, len(AllFileTypes))
	for _, ft := range AllFileTypes {
		files = append(files, TaskFile{FileType: ft, Tasks: []TaskRow{}})
	}
	return files
}

// TaskDefinition holds the checklist for one (subject, exam type).
type TaskDefinition struct {
	ID        string    `db:"id" json:"id"`
	SubjectID string    `db:"subject_id" json:"subjectId"`
	ExamType  ExamType  `db:"exam_type" json:"examType"`
	Files     TaskFiles `db:"files" json:"files"`
	UpdatedBy *string   `db:"updated_by" json:"updatedBy,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}
