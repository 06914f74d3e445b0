package models

// Organization is a node in the school/district tree.
type Organization struct {
	ID                   string    `db:"id" json:"id"`
	Name                 string    `db:"name" json:"name"`
	ParentOrganizationID *string   `db:"parent_organization_id" json:"parent_organization_id,omitempty"`
	Description          *string   `db:"description" json:"description,omitempty"`
	ContactEmail         *string   `db:"contact_email" json:"contact_email,omitempty"`
	ContactPhone         *string   `db:"contact_phone" json:"contact_phone,omitempty"`
	CreatedAt            Timestamp `db:"created_at" json:"created_at"`
	UpdatedAt            Timestamp `db:"updated_at" json:"updated_at"`
}
