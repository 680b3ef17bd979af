// internal/storage/models/base.go
package models

import "time"

// BaseModel заменяет gorm.Model, без soft delete: история только дописывается.
type BaseModel struct {
	ID        uint      `gorm:"primarykey"`
	CreatedAt time.Time `gorm:"index"`
}
