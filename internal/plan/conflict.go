package plan

import (
	"github.com/edudisplej/loopplan/internal/model"
	"github.com/edudisplej/loopplan/internal/timeline"
)

// ConflictPolicy tells Resolve what to do when a candidate block overlaps
// existing blocks. The choice always comes from the caller.
type ConflictPolicy int

const (
	// PolicyAbort rejects the candidate, leaving the plan untouched.
	PolicyAbort ConflictPolicy = iota
	// PolicyTrimOverlapping truncates earlier-starting blocks to the
	// candidate's start and drops blocks the candidate supersedes.
	PolicyTrimOverlapping
	// PolicyDeleteOverlapping removes every overlapping block.
	PolicyDeleteOverlapping
)

// FindOverlaps returns the existing blocks the candidate collides with.
// Only blocks of the same kind compete: weekly candidates against weekly
// blocks sharing at least one day, date candidates against date blocks on the
// identical date. ignoredID excludes the block being edited.
func FindOverlaps(blocks []model.TimeBlock, candidate model.TimeBlock, ignoredID int) []model.TimeBlock {
	var out []model.TimeBlock
	candidateDays := candidate.Days()
	for _, existing := range blocks {
		if ignoredID != 0 && existing.ID == ignoredID {
			continue
		}
		if existing.BlockType != candidate.BlockType {
			continue
		}
		if candidate.BlockType == model.BlockDate {
			if !sameDate(existing.SpecificDate, candidate.SpecificDate) {
				continue
			}
		} else {
			if !shareDay(candidateDays, existing.Days()) {
				continue
			}
		}
		if timeline.Overlaps(
			timeline.ToMinute(candidate.StartTime, 0),
			timeline.ToMinute(candidate.EndTime, 0),
			timeline.ToMinute(existing.StartTime, 0),
			timeline.ToMinute(existing.EndTime, 0),
		) {
			out = append(out, existing)
		}
	}
	return out
}

func sameDate(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func shareDay(a, b map[int]bool) bool {
	for d := range a {
		if b[d] {
			return true
		}
	}
	return false
}

// Resolve applies the chosen policy to the block set and returns the new set
// with the candidate inserted. On PolicyAbort with overlaps present it
// returns a ConflictError and the original slice untouched.
func Resolve(blocks []model.TimeBlock, candidate model.TimeBlock, ignoredID int, policy ConflictPolicy) ([]model.TimeBlock, error) {
	overlaps := FindOverlaps(blocks, candidate, ignoredID)
	if len(overlaps) == 0 {
		return upsert(blocks, candidate, ignoredID), nil
	}
	// Locked blocks are never trimmed or deleted; the caller has to move the
	// candidate out of their way instead.
	for _, block := range overlaps {
		if block.IsLocked {
			return blocks, &ConflictError{Overlaps: overlaps}
		}
	}

	switch policy {
	case PolicyDeleteOverlapping:
		doomed := map[int]bool{}
		for _, block := range overlaps {
			doomed[block.ID] = true
		}
		kept := make([]model.TimeBlock, 0, len(blocks))
		for _, block := range blocks {
			if !doomed[block.ID] {
				kept = append(kept, block)
			}
		}
		return upsert(kept, candidate, ignoredID), nil

	case PolicyTrimOverlapping:
		conflicting := map[int]bool{}
		for _, block := range overlaps {
			conflicting[block.ID] = true
		}
		candidateStart := timeline.ToMinute(candidate.StartTime, 0)
		kept := make([]model.TimeBlock, 0, len(blocks))
		for _, block := range blocks {
			if !conflicting[block.ID] {
				kept = append(kept, block)
				continue
			}
			// Blocks starting at or after the candidate are superseded.
			if timeline.ToMinute(block.StartTime, 0) >= candidateStart {
				continue
			}
			trimmed := block
			trimmed.EndTime = timeline.MinuteToTime(candidateStart)
			if timeline.ToMinute(trimmed.StartTime, 0) == candidateStart {
				continue
			}
			kept = append(kept, trimmed)
		}
		return upsert(kept, candidate, ignoredID), nil

	default:
		return blocks, &ConflictError{Overlaps: overlaps}
	}
}

// upsert replaces the block with the candidate's id (or ignoredID when the
// candidate was renumbered) or appends it.
func upsert(blocks []model.TimeBlock, candidate model.TimeBlock, ignoredID int) []model.TimeBlock {
	out := make([]model.TimeBlock, 0, len(blocks)+1)
	replaced := false
	for _, block := range blocks {
		if block.ID == candidate.ID || (ignoredID != 0 && block.ID == ignoredID) {
			if !replaced {
				out = append(out, candidate)
				replaced = true
			}
			continue
		}
		out = append(out, block)
	}
	if !replaced {
		out = append(out, candidate)
	}
	return out
}
