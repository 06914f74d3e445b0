package models

import (
	"database/sql/driver"
	"fmt"
)

// RequestStatus is the lifecycle state of a substitute request.
type RequestStatus string

const (
	RequestOpen      RequestStatus = "open"
	RequestFilled    RequestStatus = "filled"
	RequestCancelled RequestStatus = "cancelled"
)

// ParseRequestStatus converts raw into a known status.
func ParseRequestStatus(raw string) (RequestStatus, error) {
	switch status := RequestStatus(raw); status {
	case RequestOpen, RequestFilled, RequestCancelled:
		return status, nil
	}
	return "", fmt.Errorf("request status %q: %w", raw, ErrUnknownValue)
}

// Scan implements sql.Scanner.
func (s *RequestStatus) Scan(src interface{}) error {
	raw, err := scanEnum("request status", src)
	if err != nil {
		return err
	}
	status, err := ParseRequestStatus(raw)
	if err != nil {
		return err
	}
	*s = status
	return nil
}

// Value implements driver.Valuer.
func (s RequestStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// RequestEventType names an edge of the request state machine.
type RequestEventType string

const (
	EventAssign   RequestEventType = "assign"
	EventUnassign RequestEventType = "unassign"
	EventCancel   RequestEventType = "cancel"
)

// ParseRequestEventType converts raw into a known event.
func ParseRequestEventType(raw string) (RequestEventType, error) {
	switch event := RequestEventType(raw); event {
	case EventAssign, EventUnassign, EventCancel:
		return event, nil
	}
	return "", fmt.Errorf("request event %q: %w", raw, ErrUnknownValue)
}

// RequestEvent is a transition request. SubstituteID is only read for assign.
type RequestEvent struct {
	Type         RequestEventType
	SubstituteID string
}

// AssignEvent builds an assign event for substituteID.
func AssignEvent(substituteID string) RequestEvent {
	return RequestEvent{Type: EventAssign, SubstituteID: substituteID}
}

// UnassignEvent builds an unassign event.
func UnassignEvent() RequestEvent {
	return RequestEvent{Type: EventUnassign}
}

// CancelEvent builds a cancel event.
func CancelEvent() RequestEvent {
	return RequestEvent{Type: EventCancel}
}

// SubstituteRequest is one shift needing coverage. AssignedSubstituteID is set
// exactly when Status is filled.
type SubstituteRequest struct {
	ID                   string        `db:"id" json:"id"`
	ClassID              string        `db:"class_id" json:"class_id"`
	RequestedBy          string        `db:"requested_by" json:"requested_by"`
	DateNeeded           string        `db:"date_needed" json:"date_needed"`
	StartTime            string        `db:"start_time" json:"start_time"`
	EndTime              string        `db:"end_time" json:"end_time"`
	Reason               *string       `db:"reason" json:"reason,omitempty"`
	SpecialInstructions  *string       `db:"special_instructions" json:"special_instructions,omitempty"`
	Status               RequestStatus `db:"status" json:"status"`
	AssignedSubstituteID *string       `db:"assigned_substitute_id" json:"assigned_substitute_id,omitempty"`
	CreatedAt            Timestamp     `db:"created_at" json:"created_at"`
	UpdatedAt            Timestamp     `db:"updated_at" json:"updated_at"`
}

// Consistent reports whether the assignment agrees with the status.
func (r SubstituteRequest) Consistent() bool {
	return (r.AssignedSubstituteID != nil) == (r.Status == RequestFilled)
}

// SubstituteRequestFilter narrows request listings. Dates are inclusive.
type SubstituteRequestFilter struct {
	Status               *RequestStatus
	ClassID              *string
	RequestedBy          *string
	AssignedSubstituteID *string
	DateFrom             *string
	DateTo               *string
	// OpenOrAssignedTo matches open requests plus those assigned to the id.
	OpenOrAssignedTo *string
}

// SubstituteRequestExport is a request joined with display names for reports.
type SubstituteRequestExport struct {
	ID               string        `db:"id"`
	DateNeeded       string        `db:"date_needed"`
	StartTime        string        `db:"start_time"`
	EndTime          string        `db:"end_time"`
	Status           RequestStatus `db:"status"`
	ClassName        string        `db:"class_name"`
	OrganizationName string        `db:"organization_name"`
	RequesterName    string        `db:"requester_name"`
	SubstituteName   *string       `db:"substitute_name"`
	Reason           *string       `db:"reason"`
}

// ResponseType is a substitute's answer to a request.
type ResponseType string

const (
	ResponseAccepted ResponseType = "accepted"
	ResponseDeclined ResponseType = "declined"
)

// Scan implements sql.Scanner.
func (r *ResponseType) Scan(src interface{}) error {
	raw, err := scanEnum("response type", src)
	if err != nil {
		return err
	}
	switch ResponseType(raw) {
	case ResponseAccepted, ResponseDeclined:
		*r = ResponseType(raw)
		return nil
	}
	return fmt.Errorf("response type %q: %w", raw, ErrUnknownValue)
}

// Value implements driver.Valuer.
func (r ResponseType) Value() (driver.Value, error) {
	return string(r), nil
}

// SubstituteResponse records a substitute accepting or declining a request.
type SubstituteResponse struct {
	ID           string       `db:"id" json:"id"`
	RequestID    string       `db:"request_id" json:"request_id"`
	SubstituteID string       `db:"substitute_id" json:"substitute_id"`
	Response     ResponseType `db:"response" json:"response"`
	ResponseTime Timestamp    `db:"response_time" json:"response_time"`
	Notes        *string      `db:"notes" json:"notes,omitempty"`
}
