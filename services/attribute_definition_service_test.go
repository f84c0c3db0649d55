package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAttributeDefinitionDefaults(t *testing.T) {
	db := newTestDB(t)
	svc := NewAttributeDefinitionService(db)

	def, err := svc.Create(context.Background(), AttributeDefinitionInput{
		Name:  "  mood  ",
		Label: "Mood",
	})
	require.NoError(t, err)

	assert.Equal(t, "mood", def.Name)
	assert.Equal(t, "am", def.DayPeriod)
	assert.True(t, def.Active)
	assert.True(t, def.DefaultVisible)
	assert.Equal(t, 1, def.Weight)
	assert.NotEqual(t, uuid.Nil, def.ID)
}

func TestCreateAttributeDefinitionValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewAttributeDefinitionService(db)
	ctx := context.Background()

	var vErr *ValidationError

	_, err := svc.Create(ctx, AttributeDefinitionInput{Label: "No name"})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "name", vErr.Field)

	_, err = svc.Create(ctx, AttributeDefinitionInput{Name: "sleep", Label: "Sleep", DayPeriod: "noon"})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "day_period", vErr.Field)
}

func TestUpdateAttributeDefinition(t *testing.T) {
	db := newTestDB(t)
	svc := NewAttributeDefinitionService(db)
	ctx := context.Background()

	def, err := svc.Create(ctx, AttributeDefinitionInput{Name: "hrv", Label: "HRV"})
	require.NoError(t, err)

	inactive := false
	weight := 5
	updated, err := svc.Update(ctx, def.ID, AttributeDefinitionInput{
		Name:      "hrv",
		Label:     "Heart Rate Variability",
		Unit:      strPtr("ms"),
		Active:    &inactive,
		Weight:    &weight,
		DayPeriod: "PM",
	})
	require.NoError(t, err)

	assert.Equal(t, "Heart Rate Variability", updated.Label)
	assert.Equal(t, "ms", *updated.Unit)
	assert.False(t, updated.Active)
	assert.Equal(t, 5, updated.Weight)
	assert.Equal(t, "pm", updated.DayPeriod)

	_, err = svc.Update(ctx, uuid.New(), AttributeDefinitionInput{Name: "x", Label: "X"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteAttributeDefinition(t *testing.T) {
	db := newTestDB(t)
	svc := NewAttributeDefinitionService(db)
	ctx := context.Background()

	def, err := svc.Create(ctx, AttributeDefinitionInput{Name: "steps", Label: "Steps"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, def.ID))
	assert.ErrorIs(t, svc.Delete(ctx, def.ID), ErrNotFound)
}

func TestListAttributeDefinitionsOrdering(t *testing.T) {
	db := newTestDB(t)
	svc := NewAttributeDefinitionService(db)
	ctx := context.Background()

	cat := func(s string) *string { return &s }
	for _, in := range []AttributeDefinitionInput{
		{Name: "strain", Label: "Strain", Category: cat("training")},
		{Name: "mood", Label: "Mood", Category: cat("mental")},
		{Name: "focus", Label: "Focus", Category: cat("mental")},
	} {
		_, err := svc.Create(ctx, in)
		require.NoError(t, err)
	}

	defs, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, defs, 3)
	assert.Equal(t, "Focus", defs[0].Label)
	assert.Equal(t, "Mood", defs[1].Label)
	assert.Equal(t, "Strain", defs[2].Label)
}
