package app

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pawsline/relay/internal/routing/domain"
)

// DetectConflicts finds every pair of windows on the same thread whose
// intervals overlap. Input is the org's current and future windows; past
// windows cannot produce actionable conflicts.
//
// Windows are grouped per thread and sorted by start time, then swept: a
// window only needs comparing against later windows that start before it
// ends. Sorting dominates, so the scan is O(n log n) plus output size.
func DetectConflicts(windows []domain.AssignmentWindow) []domain.WindowConflict {
	byThread := make(map[uuid.UUID][]domain.AssignmentWindow)
	for _, w := range windows {
		byThread[w.ThreadID] = append(byThread[w.ThreadID], w)
	}

	threadIDs := make([]uuid.UUID, 0, len(byThread))
	for id := range byThread {
		threadIDs = append(threadIDs, id)
	}
	sort.Slice(threadIDs, func(i, j int) bool { return threadIDs[i].String() < threadIDs[j].String() })

	var conflicts []domain.WindowConflict
	for _, threadID := range threadIDs {
		group := byThread[threadID]
		sort.Slice(group, func(i, j int) bool {
			if !group[i].StartAt.Equal(group[j].StartAt) {
				return group[i].StartAt.Before(group[j].StartAt)
			}
			return group[i].ID.String() < group[j].ID.String()
		})

		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group) && group[j].StartAt.Before(group[i].EndAt); j++ {
				overlapStart := maxTime(group[i].StartAt, group[j].StartAt)
				overlapEnd := minTime(group[i].EndAt, group[j].EndAt)
				if overlapStart.Before(overlapEnd) {
					conflicts = append(conflicts, domain.WindowConflict{
						ThreadID:     threadID,
						WindowA:      group[i],
						WindowB:      group[j],
						OverlapStart: overlapStart,
						OverlapEnd:   overlapEnd,
					})
				}
			}
		}
	}
	return conflicts
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
