package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// One journal entry per (date, day_period). Date is kept as YYYY-MM-DD text
// so the natural-key lookup never depends on session timezones.
type DailyEntry struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Date       string    `gorm:"type:date;not null;uniqueIndex:uniq_entry_date_period" json:"date"`
	DayPeriod  string    `gorm:"size:2;not null;uniqueIndex:uniq_entry_date_period" json:"day_period"`
	Visibility string    `gorm:"size:10;not null;default:private" json:"visibility"`
	Notes      string    `gorm:"type:text" json:"notes"`
	CreatedAt  time.Time `json:"created_at"`

	Attributes []EntryAttribute `gorm:"foreignKey:EntryID;constraint:OnDelete:CASCADE" json:"attributes"`
	NoteList   []EntryNote      `gorm:"foreignKey:EntryID;constraint:OnDelete:CASCADE" json:"note_list,omitempty"`
}

func (e *DailyEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// EntryAttribute rows are owned by exactly one entry and are replaced
// wholesale on every overwrite. Duplicate names within an entry are allowed.
type EntryAttribute struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	EntryID   uuid.UUID `gorm:"type:uuid;index;not null" json:"entry_id"`
	Name      string    `gorm:"not null" json:"name"`      // e.g. "sleep_hours"
	Value     *string   `json:"value"`                     // numbers or text
	Unit      *string   `json:"unit"`                      // e.g. "hrs", "bpm"
	Note      *string   `gorm:"type:text" json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

func (a *EntryAttribute) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Append-only notes attached to an entry, ordered by creation time.
type EntryNote struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	EntryID   uuid.UUID `gorm:"type:uuid;index;not null" json:"entry_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (n *EntryNote) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
