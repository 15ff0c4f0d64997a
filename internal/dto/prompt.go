package dto

// CreateSystemPromptRequest is the POST /prompts/system payload.
type CreateSystemPromptRequest struct {
	SubjectID string   `json:"subjectId" validate:"required"`
	Name      string   `json:"name" validate:"required,max=100"`
	Content   string   `json:"content" validate:"required"`
	TaskIDs   []string `json:"taskIds"`
	Priority  int      `json:"priority" validate:"min=0"`
	IsActive  *bool    `json:"isActive"`
}

// UpdateSystemPromptRequest patches a system prompt; nil fields are kept.
type UpdateSystemPromptRequest struct {
	Name     *string   `json:"name" validate:"omitempty,min=1,max=100"`
	Content  *string   `json:"content" validate:"omitempty,min=1"`
	TaskIDs  *[]string `json:"taskIds"`
	Priority *int      `json:"priority" validate:"omitempty,min=0"`
	IsActive *bool     `json:"isActive"`
}

// UpsertPromptUploadRequest replaces the prompt at a coordinate.
type UpsertPromptUploadRequest struct {
	SubjectID  string `json:"subjectId" validate:"required"`
	TaskID     string `json:"taskId" validate:"required,max=64"`
	FileType   string `json:"fileType" validate:"required,oneof=problem answer explanation scoring"`
	PromptText string `json:"promptText" validate:"required"`
	IsActive   *bool  `json:"isActive"`
}
