package repository

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsDuplicateEntry(t *testing.T) {
	assert.True(t, isDuplicateEntry(errors.New(
		"Error 1062 (23000): Duplicate entry '2-1-2026-09-01-20:00:00' for key 'shows.uniq_schedule'")))
	assert.True(t, isDuplicateEntry(errors.New(
		"Error 1062 (23000): Duplicate entry 'a@b.example' for key 'users.email'")))

	assert.False(t, isDuplicateEntry(errors.New("Error 1205 (HY000): Lock wait timeout exceeded")))
	assert.False(t, isDuplicateEntry(nil))
}
