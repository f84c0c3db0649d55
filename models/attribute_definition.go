package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Admin-managed catalog of attributes the frontend offers when composing an
// entry. Purely descriptive: entries may still carry attributes that have no
// definition here.
type AttributeDefinition struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name           string    `gorm:"not null" json:"name"`
	Label          string    `gorm:"not null" json:"label"`
	Unit           *string   `json:"unit"`
	Category       *string   `json:"category"`
	Active         bool      `gorm:"default:true" json:"active"`
	DefaultVisible bool      `gorm:"default:true" json:"default_visible"`
	Weight         int       `gorm:"default:1" json:"weight"`
	DayPeriod      string    `gorm:"size:2;default:am" json:"day_period"`
	CreatedAt      time.Time `json:"created_at"`
}

func (d *AttributeDefinition) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
