package domain_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scolaris/pkg/domain"
	dErrors "scolaris/pkg/domain-errors"
)

func TestParseStudentID(t *testing.T) {
	id, err := domain.ParseStudentID("  ETU-2023-0042 ")
	require.NoError(t, err)
	assert.Equal(t, "ETU-2023-0042", id.String())
	assert.False(t, id.IsZero())
}

func TestParseStudentIDRejectsEmpty(t *testing.T) {
	_, err := domain.ParseStudentID("   ")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestParseStudentIDRejectsOverlong(t *testing.T) {
	_, err := domain.ParseStudentID(strings.Repeat("x", 65))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
