package models

// Class belongs to exactly one organization.
type Class struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	OrganizationID string    `db:"organization_id" json:"organization_id"`
	Subject        *string   `db:"subject" json:"subject,omitempty"`
	GradeLevel     *string   `db:"grade_level" json:"grade_level,omitempty"`
	RoomNumber     *string   `db:"room_number" json:"room_number,omitempty"`
	Description    *string   `db:"description" json:"description,omitempty"`
	CreatedAt      Timestamp `db:"created_at" json:"created_at"`
	UpdatedAt      Timestamp `db:"updated_at" json:"updated_at"`
}
