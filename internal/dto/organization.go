package dto

// OrganizationRequest is the create/update payload for organizations.
type OrganizationRequest struct {
	Name                 string  `json:"name" validate:"required,max=200"`
	ParentOrganizationID *string `json:"parent_organization_id" validate:"omitempty"`
	Description          *string `json:"description"`
	ContactEmail         *string `json:"contact_email" validate:"omitempty,email"`
	ContactPhone         *string `json:"contact_phone" validate:"omitempty,max=40"`
}
