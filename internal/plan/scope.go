package plan

import (
	"sort"
	"time"

	"github.com/edudisplej/loopplan/internal/model"
	"github.com/edudisplej/loopplan/internal/timeline"
)

// ResolveScope returns the scope governing an instant: the winning time
// block's scope id, or "base" when the DEFAULT loop plays. Pure function over
// the plan snapshot; it backs both live playback queries and grid preview.
//
// Tie-break order: date blocks beat weekly blocks, then priority descending,
// then id ascending. A weekly block whose window wraps past midnight is
// evaluated against the instant's own day: its morning half matches the same
// weekday the mask names, not the following calendar day.
func ResolveScope(p *model.Plan, instant time.Time) string {
	block := GoverningBlock(p, instant)
	if block == nil {
		return model.ScopeBase
	}
	return model.ScopeID(block.ID)
}

// GoverningBlock returns the time block governing an instant, or nil when the
// DEFAULT loop governs.
func GoverningBlock(p *model.Plan, instant time.Time) *model.TimeBlock {
	minute := instant.Hour()*60 + instant.Minute()
	weekday := model.Weekday(instant)
	dateKey := model.DateKey(instant)

	var matching []model.TimeBlock
	for _, block := range p.TimeBlocks {
		if !bool(block.IsActive) {
			continue
		}
		if !timeline.Contains(timeline.SegmentsOf(block.StartTime, block.EndTime), minute) {
			continue
		}
		if block.BlockType == model.BlockDate {
			if block.SpecificDate == nil || *block.SpecificDate != dateKey {
				continue
			}
		} else {
			if !block.Days()[weekday] {
				continue
			}
		}
		matching = append(matching, block)
	}
	if len(matching) == 0 {
		return nil
	}

	sort.Slice(matching, func(i, j int) bool {
		wi, wj := kindWeight(matching[i].BlockType), kindWeight(matching[j].BlockType)
		if wi != wj {
			return wi > wj
		}
		if matching[i].Priority != matching[j].Priority {
			return matching[i].Priority > matching[j].Priority
		}
		return matching[i].ID < matching[j].ID
	})

	winner := matching[0]
	return &winner
}

func kindWeight(kind model.BlockKind) int {
	if kind == model.BlockDate {
		return 2
	}
	return 1
}

// GoverningItems returns the loop items that should play at an instant: the
// winning block's style items, or the DEFAULT style's. A default/uneditable
// group always serves its DEFAULT loop.
func GoverningItems(p *model.Plan, instant time.Time, isDefaultGroup bool) []model.ContentItem {
	if !isDefaultGroup {
		if block := GoverningBlock(p, instant); block != nil {
			if style := p.StyleByID(block.LoopStyleID); style != nil {
				return style.Items
			}
			// Expanded payloads carry the items inline as a fallback.
			if len(block.Loops) > 0 {
				return block.Loops
			}
		}
	}
	if style := p.DefaultStyle(); style != nil {
		return style.Items
	}
	return nil
}
