package models

import "time"

// WorkProgress is one submitted question for a (user, subject, exam type,
// task, file type). Content is stored per question number.
type WorkProgress struct {
	ID             string    `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"-"`
	SubjectID      string    `db:"subject_id" json:"subjectId"`
	ExamType       ExamType  `db:"exam_type" json:"examType"`
	TaskID         string    `db:"task_id" json:"taskId"`
	FileType       FileType  `db:"file_type" json:"fileType"`
	QuestionNumber int       `db:"question_number" json:"questionNumber"`
	ReferenceData  string    `db:"reference_data" json:"referenceData"`
	AIOutput       string    `db:"ai_output" json:"aiOutput"`
	Completed      bool      `db:"completed" json:"completed"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

// ProgressStatus is the derived completion state of a task/file-type cell.
type ProgressStatus string

const (
	ProgressCompleted  ProgressStatus = "completed"
	ProgressInProgress ProgressStatus = "in_progress"
	ProgressNotStarted ProgressStatus = "not_started"
)

// ProgressCell aggregates submissions for one task and file type.
type ProgressCell struct {
	TaskID          string         `json:"taskId"`
	FileType        FileType       `json:"fileType"`
	CompletedCount  int            `json:"completedCount"`
	Required        int            `json:"required"`
	QuestionNumbers []int          `json:"questionNumbers"`
	Status          ProgressStatus `json:"status"`
}

// ProgressTotals counts cells per status.
type ProgressTotals struct {
	Completed  int `json:"completed"`
	InProgress int `json:"inProgress"`
	NotStarted int `json:"notStarted"`
	Total      int `json:"total"`
	Percent    int `json:"percent"`
}

// ProgressSummary is the derived view over a task definition.
type ProgressSummary struct {
	SubjectID string         `json:"subjectId"`
	ExamType  ExamType       `json:"examType"`
	Required  int            `json:"required"`
	Cells     []ProgressCell `json:"cells"`
	Totals    ProgressTotals `json:"totals"`
}

// ProgressExportRow is one user x task x file type line of a progress report.
type ProgressExportRow struct {
	LoginID        string   `db:"login_id"`
	DisplayName    string   `db:"display_name"`
	TaskID         string   `db:"task_id"`
	FileType       FileType `db:"file_type"`
	CompletedCount int      `db:"completed_count"`
}
