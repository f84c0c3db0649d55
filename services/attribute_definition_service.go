package services

import (
	"context"
	"errors"
	"strings"

	"github.com/jkor2/lifeof/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AttributeDefinitionService struct{ db *gorm.DB }

func NewAttributeDefinitionService(db *gorm.DB) *AttributeDefinitionService {
	return &AttributeDefinitionService{db: db}
}

type AttributeDefinitionInput struct {
	Name           string  `json:"name"`
	Label          string  `json:"label"`
	Unit           *string `json:"unit"`
	Category       *string `json:"category"`
	Active         *bool   `json:"active"`
	DefaultVisible *bool   `json:"default_visible"`
	Weight         *int    `json:"weight"`
	DayPeriod      string  `json:"day_period"`
}

func (in *AttributeDefinitionInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Label = strings.TrimSpace(in.Label)
	if in.Name == "" {
		return newValidationError("name", "must not be empty")
	}
	if in.Label == "" {
		return newValidationError("label", "must not be empty")
	}

	in.DayPeriod = strings.ToLower(strings.TrimSpace(in.DayPeriod))
	if in.DayPeriod == "" {
		in.DayPeriod = "am"
	}
	if in.DayPeriod != "am" && in.DayPeriod != "pm" {
		return newValidationError("day_period", "must be 'am' or 'pm'")
	}
	return nil
}

func (in *AttributeDefinitionInput) apply(def *models.AttributeDefinition) {
	def.Name = in.Name
	def.Label = in.Label
	def.Unit = in.Unit
	def.Category = in.Category
	def.DayPeriod = in.DayPeriod
	def.Active = in.Active == nil || *in.Active
	def.DefaultVisible = in.DefaultVisible == nil || *in.DefaultVisible
	if in.Weight != nil {
		def.Weight = *in.Weight
	} else if def.Weight == 0 {
		def.Weight = 1
	}
}

func (s *AttributeDefinitionService) List(ctx context.Context) ([]models.AttributeDefinition, error) {
	var defs []models.AttributeDefinition
	err := s.db.WithContext(ctx).
		Order("category, day_period, label").
		Find(&defs).Error
	return defs, err
}

func (s *AttributeDefinitionService) Create(ctx context.Context, in AttributeDefinitionInput) (*models.AttributeDefinition, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var def models.AttributeDefinition
	in.apply(&def)
	if err := s.db.WithContext(ctx).Create(&def).Error; err != nil {
		return nil, err
	}
	return &def, nil
}

func (s *AttributeDefinitionService) Update(ctx context.Context, id uuid.UUID, in AttributeDefinitionInput) (*models.AttributeDefinition, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var def models.AttributeDefinition
	err := s.db.WithContext(ctx).First(&def, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	in.apply(&def)
	if err := s.db.WithContext(ctx).Save(&def).Error; err != nil {
		return nil, err
	}
	return &def, nil
}

func (s *AttributeDefinitionService) Delete(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&models.AttributeDefinition{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
