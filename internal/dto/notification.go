package dto

// SendNotificationRequest delivers a single message to a user.
type SendNotificationRequest struct {
	UserID    string `json:"user_id" validate:"required"`
	RequestID string `json:"request_id"`
	Title     string `json:"title" validate:"required,max=200"`
	Body      string `json:"body" validate:"required"`
}

// LogNotificationRequest appends an audit row.
type LogNotificationRequest struct {
	UserID       string  `json:"user_id" validate:"required"`
	RequestID    string  `json:"request_id" validate:"required"`
	Kind         string  `json:"notification_type" validate:"required"`
	Status       string  `json:"status" validate:"required"`
	ErrorMessage *string `json:"error_message"`
}

// NotifyCandidatesRequest fans a request out to candidate substitutes.
// ClassName and DateNeeded are looked up when empty.
type NotifyCandidatesRequest struct {
	RequestID    string   `json:"request_id" validate:"required"`
	ClassName    string   `json:"class_name"`
	DateNeeded   string   `json:"date_needed" validate:"omitempty,datetime=2006-01-02"`
	CandidateIDs []string `json:"candidate_ids" validate:"required,min=1,dive,required"`
}
