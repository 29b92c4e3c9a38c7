package model

// CheckPriorSubmissionRequest is the payload for the pre-entry duplicate
// check.
type CheckPriorSubmissionRequest struct {
	FirstName string `json:"first_name" binding:"required,min=1,max=100"`
	LastName  string `json:"last_name" binding:"required,min=1,max=100"`
}

// SelectAnswerRequest is the payload for recording one answer choice.
type SelectAnswerRequest struct {
	QID      string `json:"q_id" binding:"required,uuid"`
	Selected string `json:"selected" binding:"required,max=500"`
}

// NavigateRequest is the payload for moving between questions.
type NavigateRequest struct {
	Direction string `json:"direction" binding:"required,oneof=next prev jump"`
	Index     int    `json:"index" binding:"min=0"`
}

// ReviewRequest is the payload for toggling the review screen.
type ReviewRequest struct {
	Mode string `json:"mode" binding:"required,oneof=enter exit"`
}
