package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scolaris/internal/dedup/models"
	dErrors "scolaris/pkg/domain-errors"
)

func TestNewDetectedGroup(t *testing.T) {
	group, err := models.NewDetectedGroup("S1|S2", 95, []models.Member{
		{StudentID: "S1", Reason: "reference"},
		{StudentID: "S2", Reason: "identical national-ID", Score: 100},
	})
	require.NoError(t, err)
	assert.Equal(t, "S1|S2", group.Signature)
	assert.Len(t, group.Members, 2)
}

func TestNewDetectedGroupRejectsEmptySignature(t *testing.T) {
	_, err := models.NewDetectedGroup("", 95, []models.Member{
		{StudentID: "S1"}, {StudentID: "S2"},
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestNewDetectedGroupRejectsSingleton(t *testing.T) {
	_, err := models.NewDetectedGroup("S1", 100, []models.Member{{StudentID: "S1"}})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}
