package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewActivityDefaultsDate(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	a, err := NewActivity("crop-1", ActivityInput{Type: ActivityWatering, Description: "  Watered the paddy  "}, now)
	require.NoError(t, err)

	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "crop-1", a.CropID)
	assert.Equal(t, "Watered the paddy", a.Description)
	assert.Equal(t, now, a.Date)
	assert.Equal(t, "watering (Watered the paddy)", a.Summary())
}

func TestNewActivityKeepsSubmittedDate(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	when := now.Add(-48 * time.Hour)

	a, err := NewActivity("crop-1", ActivityInput{Type: ActivityFertilizer, Description: "NPK", Date: &when}, now)
	require.NoError(t, err)
	assert.Equal(t, when, a.Date)
}

func TestNewActivityRejectsBadInput(t *testing.T) {
	now := time.Now()
	cases := map[string]struct {
		cropID string
		in     ActivityInput
		field  string
	}{
		"blank description": {"c1", ActivityInput{Type: ActivityWatering, Description: "   "}, "description"},
		"unknown type":      {"c1", ActivityInput{Type: "dancing", Description: "x"}, "type"},
		"missing crop":      {"", ActivityInput{Type: ActivityWatering, Description: "x"}, "crop_id"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewActivity(tc.cropID, tc.in, now)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestCropNormalizeDefaults(t *testing.T) {
	now := time.Now()
	c := Crop{Name: " Rice "}
	require.NoError(t, c.Normalize(now))

	assert.Equal(t, "Rice", c.Name)
	assert.Equal(t, StagePlanted, c.CurrentStage)
	assert.Equal(t, HealthGood, c.HealthStatus)
	assert.NotEmpty(t, c.ID)
	assert.NotNil(t, c.Activities)

	bad := Crop{Name: "Rice", CurrentStage: "sprouting"}
	assert.ErrorIs(t, bad.Normalize(now), ErrValidation)
}

func TestCropCloneDoesNotShareActivities(t *testing.T) {
	c := Crop{Name: "Banana", Activities: []Activity{{ID: "a1"}}}
	cp := c.Clone()
	cp.Activities[0].ID = "changed"

	assert.Equal(t, "a1", c.Activities[0].ID)
}

func TestCropContextSentence(t *testing.T) {
	planted := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	c := Crop{Name: "Rice", PlantingDate: &planted, CurrentStage: StageGrowing}

	assert.Equal(t, "The farmer is asking about their Rice crop, planted on 2025-03-14, current stage: growing.", c.ContextSentence())
}

func TestCropPatchValidate(t *testing.T) {
	stage := CropStage("rotting")
	assert.ErrorIs(t, CropPatch{CurrentStage: &stage}.Validate(), ErrValidation)

	ok := StageMature
	assert.NoError(t, CropPatch{CurrentStage: &ok}.Validate())
	assert.True(t, CropPatch{}.IsEmpty())
}

func TestLocationPlaceName(t *testing.T) {
	assert.Equal(t, "Thiruvananthapuram", Location{}.PlaceName("Thiruvananthapuram"))
	assert.Equal(t, "Kochi", Location{District: "Kochi"}.PlaceName("Thiruvananthapuram"))
	assert.Equal(t, "Kochi, Aluva", Location{District: "Kochi", Taluk: "Aluva"}.String())
}

func TestUserNormalize(t *testing.T) {
	u := User{Name: "Ravi"}
	require.NoError(t, u.Normalize(time.Now()))
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, []string{}, u.Crops)

	assert.ErrorIs(t, (&User{}).Normalize(time.Now()), ErrValidation)
}
