package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTripAndOrdering(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s, err := EncodeCursor(Cursor{CreatedAt: at, ID: "b"})
	require.NoError(t, err)

	c, err := DecodeCursor(s)
	require.NoError(t, err)
	require.NotNil(t, c)

	assert.True(t, c.After(at.Add(-time.Second), "z"))
	assert.True(t, c.After(at, "a"))
	assert.False(t, c.After(at, "b"))
	assert.False(t, c.After(at.Add(time.Second), "a"))
}

func TestDecodeCursor_EmptyAndInvalid(t *testing.T) {
	c, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, c)

	_, err = DecodeCursor("%%%")
	assert.True(t, errors.Is(err, ErrInvalidCursor))
}

func TestNextCursorOnlyOnFullPage(t *testing.T) {
	now := time.Now()
	assert.Empty(t, NextCursor(3, 5, now, "x"))
	assert.NotEmpty(t, NextCursor(5, 5, now, "x"))
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 20, ClampLimit(0, 20, 50))
	assert.Equal(t, 50, ClampLimit(500, 20, 50))
	assert.Equal(t, 7, ClampLimit(7, 20, 50))
}
