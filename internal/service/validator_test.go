package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlmis/buq/internal/domain"
	"github.com/openlmis/buq/pkg/utils"
)

func TestValidator_ReportsAllViolationsByJSONName(t *testing.T) {
	validator := NewValidator()

	err := validator.ValidateStruct(&domain.BottomUpQuantification{})
	require.Error(t, err)

	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, utils.CodeValidation, appErr.Code)

	violations, ok := appErr.Details["violations"].(map[string]interface{})
	require.True(t, ok)
	for _, key := range []string{"facilityId", "programId", "processingPeriodId", "targetYear", "status"} {
		assert.Contains(t, violations, key)
		assert.Equal(t, "must not be blank", violations[key])
	}
}

func TestValidator_ValidEntityPasses(t *testing.T) {
	validator := NewValidator()

	buq := &domain.BottomUpQuantification{
		FacilityID:         uuid.New(),
		ProgramID:          uuid.New(),
		ProcessingPeriodID: uuid.New(),
		TargetYear:         2026,
		Status:             domain.StatusDraft,
	}
	assert.NoError(t, validator.ValidateStruct(buq))
}

func TestValidator_DivesIntoLineItems(t *testing.T) {
	validator := NewValidator()

	buq := &domain.BottomUpQuantification{
		FacilityID:         uuid.New(),
		ProgramID:          uuid.New(),
		ProcessingPeriodID: uuid.New(),
		TargetYear:         2026,
		Status:             domain.StatusDraft,
		LineItems: []*domain.BottomUpQuantificationLineItem{
			{},
		},
	}

	err := validator.ValidateStruct(buq)
	require.Error(t, err)
	assert.True(t, utils.IsValidation(err))
}
