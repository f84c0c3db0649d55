package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jkor2/lifeof/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EntryService struct{ db *gorm.DB }

func NewEntryService(db *gorm.DB) *EntryService { return &EntryService{db: db} }

type AttributeInput struct {
	Name  string  `json:"name"`
	Value *string `json:"value"`
	Unit  *string `json:"unit"`
	Note  *string `json:"note"`
}

type UpsertEntryInput struct {
	Date       string           `json:"date"`
	DayPeriod  string           `json:"day_period"`
	Visibility string           `json:"visibility"`
	Notes      string           `json:"notes"`
	Attributes []AttributeInput `json:"attributes"`
	Overwrite  bool             `json:"overwrite"`
}

// validate normalizes and checks everything before a single row is touched.
func (in *UpsertEntryInput) validate() error {
	if _, err := time.Parse("2006-01-02", in.Date); err != nil {
		return newValidationError("date", "must be YYYY-MM-DD")
	}

	in.DayPeriod = strings.ToLower(strings.TrimSpace(in.DayPeriod))
	if in.DayPeriod != "am" && in.DayPeriod != "pm" {
		return newValidationError("day_period", "must be 'am' or 'pm'")
	}

	if in.Visibility == "" {
		in.Visibility = "private"
	}
	if in.Visibility != "public" && in.Visibility != "private" {
		return newValidationError("visibility", "must be 'public' or 'private'")
	}

	for i := range in.Attributes {
		in.Attributes[i].Name = strings.TrimSpace(in.Attributes[i].Name)
		if in.Attributes[i].Name == "" {
			return newValidationError("attributes", "attribute name must not be empty")
		}
	}
	return nil
}

// Upsert creates or overwrites the entry for (date, day_period) in one
// transaction. Overwrite replaces the attribute set outright: attributes
// missing from the new set are removed, nothing is merged.
func (s *EntryService) Upsert(ctx context.Context, in UpsertEntryInput) (*models.DailyEntry, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var entryID uuid.UUID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.DailyEntry
		err := tx.Where("date = ? AND day_period = ?", in.Date, in.DayPeriod).
			First(&existing).Error

		switch {
		case err == nil:
			if !in.Overwrite {
				return ErrConflict
			}
			existing.Visibility = in.Visibility
			existing.Notes = in.Notes
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
			if err := tx.Where("entry_id = ?", existing.ID).
				Delete(&models.EntryAttribute{}).Error; err != nil {
				return err
			}
			entryID = existing.ID

		case errors.Is(err, gorm.ErrRecordNotFound):
			entry := models.DailyEntry{
				Date:       in.Date,
				DayPeriod:  in.DayPeriod,
				Visibility: in.Visibility,
				Notes:      in.Notes,
			}
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
			entryID = entry.ID

		default:
			return err
		}

		for _, a := range in.Attributes {
			attr := models.EntryAttribute{
				EntryID: entryID,
				Name:    a.Name,
				Value:   a.Value,
				Unit:    a.Unit,
				Note:    a.Note,
			}
			if err := tx.Create(&attr).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, entryID)
}

func (s *EntryService) Get(ctx context.Context, id uuid.UUID) (*models.DailyEntry, error) {
	var entry models.DailyEntry
	err := s.db.WithContext(ctx).
		Preload("Attributes").
		Preload("NoteList", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&entry, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

type ListEntriesFilter struct {
	Visibility string
	DateFrom   string
	DateTo     string
	Limit      int
	Offset     int
}

func (s *EntryService) List(ctx context.Context, f ListEntriesFilter) ([]models.DailyEntry, error) {
	q := s.db.WithContext(ctx).
		Preload("Attributes").
		Order("date DESC, day_period ASC")

	if f.Visibility != "" {
		q = q.Where("visibility = ?", f.Visibility)
	}
	if f.DateFrom != "" {
		q = q.Where("date >= ?", f.DateFrom)
	}
	if f.DateTo != "" {
		q = q.Where("date <= ?", f.DateTo)
	}
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	q = q.Limit(f.Limit).Offset(f.Offset)

	var entries []models.DailyEntry
	err := q.Find(&entries).Error
	return entries, err
}

// AddNote appends to the entry's note list. Notes are never edited in place.
func (s *EntryService) AddNote(ctx context.Context, entryID uuid.UUID, content string) (*models.EntryNote, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, newValidationError("content", "must not be empty")
	}

	var entry models.DailyEntry
	err := s.db.WithContext(ctx).Select("id").First(&entry, "id = ?", entryID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	note := models.EntryNote{EntryID: entryID, Content: content}
	if err := s.db.WithContext(ctx).Create(&note).Error; err != nil {
		return nil, err
	}
	return &note, nil
}

func (s *EntryService) SetVisibility(ctx context.Context, entryID uuid.UUID, visibility string) error {
	if visibility != "public" && visibility != "private" {
		return newValidationError("visibility", "must be 'public' or 'private'")
	}

	res := s.db.WithContext(ctx).
		Model(&models.DailyEntry{}).
		Where("id = ?", entryID).
		Update("visibility", visibility)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the entry with its attributes and notes; no orphans remain.
func (s *EntryService) Delete(ctx context.Context, entryID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry models.DailyEntry
		err := tx.Select("id").First(&entry, "id = ?", entryID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		if err := tx.Where("entry_id = ?", entryID).Delete(&models.EntryAttribute{}).Error; err != nil {
			return err
		}
		if err := tx.Where("entry_id = ?", entryID).Delete(&models.EntryNote{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.DailyEntry{}, "id = ?", entryID).Error
	})
}
