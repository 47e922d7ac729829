package models

import "time"

// StoredDocument is one JSON document addressed by a slash separated path,
// e.g. users/u1/data/logs. OwnerID is the identity id that owns the path.
type StoredDocument struct {
	Path      string    `gorm:"primaryKey"`
	OwnerID   string    `gorm:"not null;default:'';index:idx_documents_owner"`
	Body      string    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (StoredDocument) TableName() string {
	return "documents"
}
