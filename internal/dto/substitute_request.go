package dto

// CreateSubstituteRequest is the payload for raising a coverage request.
type CreateSubstituteRequest struct {
	ClassID             string  `json:"class_id" validate:"required"`
	DateNeeded          string  `json:"date_needed" validate:"required,datetime=2006-01-02"`
	StartTime           string  `json:"start_time" validate:"required,datetime=15:04"`
	EndTime             string  `json:"end_time" validate:"required,datetime=15:04"`
	Reason              *string `json:"reason"`
	SpecialInstructions *string `json:"special_instructions"`
}

// UpdateSubstituteRequest edits the descriptive fields of an open request.
type UpdateSubstituteRequest struct {
	DateNeeded          string  `json:"date_needed" validate:"required,datetime=2006-01-02"`
	StartTime           string  `json:"start_time" validate:"required,datetime=15:04"`
	EndTime             string  `json:"end_time" validate:"required,datetime=15:04"`
	Reason              *string `json:"reason"`
	SpecialInstructions *string `json:"special_instructions"`
}

// TransitionRequest drives the request state machine.
type TransitionRequest struct {
	Event        string `json:"event" validate:"required"`
	SubstituteID string `json:"substitute_id"`
}

// UpdateStatusRequest sets a target status and assignment in one call.
type UpdateStatusRequest struct {
	Status               string  `json:"status" validate:"required"`
	AssignedSubstituteID *string `json:"assigned_substitute_id"`
}

// RespondRequest records a substitute accepting or declining a request.
type RespondRequest struct {
	SubstituteID string  `json:"substitute_id" validate:"required"`
	Accept       bool    `json:"accept"`
	Notes        *string `json:"notes"`
}
