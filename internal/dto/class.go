package dto

// ClassRequest is the create/update payload for classes.
type ClassRequest struct {
	Name           string  `json:"name" validate:"required,max=200"`
	OrganizationID string  `json:"organization_id" validate:"required"`
	Subject        *string `json:"subject"`
	GradeLevel     *string `json:"grade_level"`
	RoomNumber     *string `json:"room_number"`
	Description    *string `json:"description"`
}
