package dto

// UpsertSettingRequest sets the value for a key.
type UpsertSettingRequest struct {
	Value       string  `json:"value" validate:"required"`
	Description *string `json:"description"`
}
