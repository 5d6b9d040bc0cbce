package strings_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	pstrings "scolaris/pkg/platform/strings"
)

func TestDedupeAndTrim(t *testing.T) {
	assert.Equal(t,
		[]string{"kafka-1:9092", "kafka-2:9092"},
		pstrings.DedupeAndTrim([]string{" kafka-1:9092 ", "kafka-2:9092", "kafka-1:9092", "", "  "}),
	)
}

func TestDedupeAndTrimEmpty(t *testing.T) {
	assert.Empty(t, pstrings.DedupeAndTrim(nil))
	assert.Empty(t, pstrings.DedupeAndTrim([]string{"", "   "}))
}
