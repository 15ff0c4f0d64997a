package models

import "time"

// ExamType distinguishes mock exams from past papers.
type ExamType string

const (
	ExamTypeMock ExamType = "mock"
	ExamTypePast ExamType = "past"
)

// ParseExamType maps an empty value to mock and rejects unknown types.
func ParseExamType(raw string) (ExamType, bool) {
	switch ExamType(raw) {
	case "":
		return ExamTypeMock, true
	case ExamTypeMock, ExamTypePast:
		return ExamType(raw), true
	}
	return "", false
}

// Subject is an exam category. SubjectID is the public slug; ID is internal.
type Subject struct {
	ID                string     `db:"id" json:"id"`
	SubjectID         string     `db:"subject_id" json:"subjectId"`
	SubjectName       string     `db:"subject_name" json:"subjectName"`
	ExamType          ExamType   `db:"exam_type" json:"examType"`
	IsDeleted         bool       `db:"is_deleted" json:"isDeleted"`
	DeletedAt         *time.Time `db:"deleted_at" json:"deletedAt,omitempty"`
	SystemPromptLimit *int       `db:"system_prompt_limit" json:"systemPromptLimit,omitempty"`
	CreatedBy         *string    `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updatedAt"`
}

// SubjectDeleteAction selects the lifecycle transition for DELETE /subjects.
type SubjectDeleteAction string

const (
	SubjectSoftDelete SubjectDeleteAction = "soft_delete"
	SubjectRestore    SubjectDeleteAction = "restore"
	SubjectHardDelete SubjectDeleteAction = "hard_delete"
)
