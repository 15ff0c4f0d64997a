package dto

// ChatRequest forwards a message to the LLM.
type ChatRequest struct {
	Message   string `json:"message" validate:"required,max=20000"`
	TaskType  string `json:"taskType" validate:"max=64"`
	SubjectID string `json:"subjectId"`
	TaskID    string `json:"taskId"`
	FileType  string `json:"fileType" validate:"omitempty,oneof=problem answer explanation scoring"`
}

// ChatResponse is the LLM reply.
type ChatResponse struct {
	Response string `json:"response"`
}
