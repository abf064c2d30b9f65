package models

// AuditLog records mutating operations for later review.
type AuditLog struct {
	Base
	Actor        string                 `gorm:"not null;index" json:"actor"`
	Action       string                 `gorm:"not null" json:"action"`
	ResourceType string                 `gorm:"not null" json:"resource_type"`
	ResourceID   string                 `gorm:"index" json:"resource_id"`
	IPAddress    string                 `json:"ip_address"`
	Changes      map[string]interface{} `gorm:"serializer:json;type:text;not null" json:"changes,omitempty"`
}
