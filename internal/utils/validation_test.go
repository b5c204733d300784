package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRecordID(t *testing.T) {
	assert.NoError(t, ValidateRecordID("ts-001"))
	assert.NoError(t, ValidateRecordID("550e8400-e29b-41d4-a716-446655440000"))
	assert.NoError(t, ValidateRecordID("record_id_1"))

	assert.Equal(t, ErrEmptyID, ValidateRecordID(""))
	assert.Equal(t, ErrInvalidIDFormat, ValidateRecordID("id with spaces"))
	assert.Equal(t, ErrInvalidIDFormat, ValidateRecordID("id;drop table"))
	assert.Equal(t, ErrIDTooLong, ValidateRecordID(strings.Repeat("a", 65)))
}

func TestIsHexObjectID(t *testing.T) {
	assert.True(t, IsHexObjectID("507f1f77bcf86cd799439011"))
	assert.False(t, IsHexObjectID("507f1f77bcf86cd79943901"))
	assert.False(t, IsHexObjectID("zzzf1f77bcf86cd799439011"))
	assert.False(t, IsHexObjectID(""))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "&lt;script&gt;", SanitizeString("<script>"))
	assert.Equal(t, "line1\nline2", SanitizeString("line1\nline2"))
	assert.Equal(t, "ab", SanitizeString("a\x00b"))
}

func TestTrimAndValidate(t *testing.T) {
	got, err := TrimAndValidate("  hello  ", 10)
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	_, err = TrimAndValidate("   ", 10)
	assert.Equal(t, ErrEmptyString, err)

	_, err = TrimAndValidate("toolongvalue", 5)
	assert.Equal(t, ErrStringTooLong, err)
}
