package app

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawsline/relay/internal/routing/domain"
)

func TestDetectConflicts_OverlappingPair(t *testing.T) {
	threadID := uuid.New()
	w1 := window(threadID, uuid.New(), mustParse(t, "2026-08-01T10:00:00Z"), mustParse(t, "2026-08-01T12:00:00Z"))
	w2 := window(threadID, uuid.New(), mustParse(t, "2026-08-01T11:00:00Z"), mustParse(t, "2026-08-01T13:00:00Z"))

	conflicts := DetectConflicts([]domain.AssignmentWindow{w2, w1})

	require.Len(t, conflicts, 1)
	c := conflicts[0]
	assert.Equal(t, threadID, c.ThreadID)
	assert.Equal(t, w1.ID, c.WindowA.ID)
	assert.Equal(t, w2.ID, c.WindowB.ID)
	assert.Equal(t, mustParse(t, "2026-08-01T11:00:00Z"), c.OverlapStart)
	assert.Equal(t, mustParse(t, "2026-08-01T12:00:00Z"), c.OverlapEnd)
}

func TestDetectConflicts_TouchingIntervalsDoNotConflict(t *testing.T) {
	// Back-to-back bookings share a boundary instant; overlapStart ==
	// overlapEnd is not a conflict.
	threadID := uuid.New()
	w1 := window(threadID, uuid.New(), mustParse(t, "2026-08-01T10:00:00Z"), mustParse(t, "2026-08-01T12:00:00Z"))
	w2 := window(threadID, uuid.New(), mustParse(t, "2026-08-01T12:00:00Z"), mustParse(t, "2026-08-01T14:00:00Z"))

	assert.Empty(t, DetectConflicts([]domain.AssignmentWindow{w1, w2}))
}

func TestDetectConflicts_DifferentThreadsDoNotConflict(t *testing.T) {
	w1 := window(uuid.New(), uuid.New(), mustParse(t, "2026-08-01T10:00:00Z"), mustParse(t, "2026-08-01T12:00:00Z"))
	w2 := window(uuid.New(), uuid.New(), mustParse(t, "2026-08-01T10:00:00Z"), mustParse(t, "2026-08-01T12:00:00Z"))

	assert.Empty(t, DetectConflicts([]domain.AssignmentWindow{w1, w2}))
}

func TestDetectConflicts_ContainedWindow(t *testing.T) {
	threadID := uuid.New()
	outer := window(threadID, uuid.New(), mustParse(t, "2026-08-01T08:00:00Z"), mustParse(t, "2026-08-01T20:00:00Z"))
	inner := window(threadID, uuid.New(), mustParse(t, "2026-08-01T10:00:00Z"), mustParse(t, "2026-08-01T12:00:00Z"))

	conflicts := DetectConflicts([]domain.AssignmentWindow{inner, outer})

	require.Len(t, conflicts, 1)
	assert.Equal(t, inner.StartAt, conflicts[0].OverlapStart)
	assert.Equal(t, inner.EndAt, conflicts[0].OverlapEnd)
}

func TestDetectConflicts_ThreeWayOverlapReportsEveryPair(t *testing.T) {
	threadID := uuid.New()
	base := mustParse(t, "2026-08-01T10:00:00Z")
	var windows []domain.AssignmentWindow
	for i := 0; i < 3; i++ {
		windows = append(windows, window(threadID, uuid.New(),
			base.Add(time.Duration(i)*30*time.Minute),
			base.Add(time.Duration(i)*30*time.Minute+2*time.Hour)))
	}

	conflicts := DetectConflicts(windows)

	// 3 mutually overlapping windows produce 3 pairs.
	assert.Len(t, conflicts, 3)
}

func TestDetectConflicts_LongWindowOverlapsLaterShortOnes(t *testing.T) {
	// A long first window must be paired with every later window it
	// covers, not just its immediate neighbor.
	threadID := uuid.New()
	long := window(threadID, uuid.New(), mustParse(t, "2026-08-01T08:00:00Z"), mustParse(t, "2026-08-01T18:00:00Z"))
	short1 := window(threadID, uuid.New(), mustParse(t, "2026-08-01T09:00:00Z"), mustParse(t, "2026-08-01T10:00:00Z"))
	short2 := window(threadID, uuid.New(), mustParse(t, "2026-08-01T15:00:00Z"), mustParse(t, "2026-08-01T16:00:00Z"))

	conflicts := DetectConflicts([]domain.AssignmentWindow{short2, long, short1})

	// long/short1, long/short2; the shorts do not overlap each other.
	require.Len(t, conflicts, 2)
	for _, c := range conflicts {
		assert.Equal(t, long.ID, c.WindowA.ID)
	}
}

func TestDetectConflicts_Empty(t *testing.T) {
	assert.Empty(t, DetectConflicts(nil))
}
