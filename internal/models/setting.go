package models

// Setting is a free-form key/value configuration row.
type Setting struct {
	Key         string    `db:"key" json:"key"`
	Value       string    `db:"value" json:"value"`
	Description *string   `db:"description" json:"description,omitempty"`
	UpdatedAt   Timestamp `db:"updated_at" json:"updated_at"`
}
