package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestMostRecentWindow(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	early := &AssignmentWindow{ID: uuid.New(), StartAt: base, EndAt: base.Add(8 * time.Hour)}
	late := &AssignmentWindow{ID: uuid.New(), StartAt: base.Add(time.Hour), EndAt: base.Add(9 * time.Hour)}

	t.Run("empty input", func(t *testing.T) {
		assert.Nil(t, MostRecentWindow(nil))
		assert.Nil(t, MostRecentWindow([]*AssignmentWindow{}))
	})

	t.Run("single window", func(t *testing.T) {
		assert.Equal(t, early, MostRecentWindow([]*AssignmentWindow{early}))
	})

	t.Run("latest startAt wins regardless of order", func(t *testing.T) {
		assert.Equal(t, late, MostRecentWindow([]*AssignmentWindow{early, late}))
		assert.Equal(t, late, MostRecentWindow([]*AssignmentWindow{late, early}))
	})

	t.Run("equal startAt falls back to greatest ID", func(t *testing.T) {
		a := &AssignmentWindow{ID: uuid.MustParse("11111111-1111-1111-1111-111111111111"), StartAt: base}
		b := &AssignmentWindow{ID: uuid.MustParse("22222222-2222-2222-2222-222222222222"), StartAt: base}

		// Deterministic no matter the slice order.
		assert.Equal(t, b, MostRecentWindow([]*AssignmentWindow{a, b}))
		assert.Equal(t, b, MostRecentWindow([]*AssignmentWindow{b, a}))
	})

	t.Run("nil entries are skipped", func(t *testing.T) {
		assert.Equal(t, late, MostRecentWindow([]*AssignmentWindow{nil, early, nil, late}))
	})
}

func TestAssignmentWindowContains(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	w := &AssignmentWindow{StartAt: start, EndAt: start.Add(2 * time.Hour)}

	assert.True(t, w.Contains(start), "inclusive at start")
	assert.True(t, w.Contains(start.Add(time.Hour)))
	assert.True(t, w.Contains(start.Add(2*time.Hour)), "inclusive at end")
	assert.False(t, w.Contains(start.Add(-time.Second)))
	assert.False(t, w.Contains(start.Add(2*time.Hour+time.Second)))
}
