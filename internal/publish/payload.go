// Package publish builds the kiosk wire payload and commits plans with
// exactly-once-per-change semantics.
package publish

import (
	"encoding/json"

	"github.com/edudisplej/loopplan/internal/model"
)

// BuildPayload denormalizes a plan into the wire form: the DEFAULT style's
// items as base_loop, and every time block carrying its style's items inline
// so legacy kiosks never need the style list.
func BuildPayload(p *model.Plan) *model.WirePlan {
	defaultStyle := p.DefaultStyle()
	var base []model.ContentItem
	if defaultStyle != nil {
		base = model.CloneItems(defaultStyle.Items)
	}

	expanded := make([]model.TimeBlock, len(p.TimeBlocks))
	for i, block := range p.TimeBlocks {
		expanded[i] = block
		if style := p.StyleByID(block.LoopStyleID); style != nil {
			expanded[i].Loops = model.CloneItems(style.Items)
		} else {
			expanded[i].Loops = model.CloneItems(block.Loops)
		}
	}

	normalized := make([]model.TimeBlock, len(p.TimeBlocks))
	for i, block := range p.TimeBlocks {
		normalized[i] = block
		normalized[i].Loops = nil
	}

	styles := make([]model.LoopStyle, len(p.LoopStyles))
	for i, style := range p.LoopStyles {
		styles[i] = style
		styles[i].Items = model.CloneItems(style.Items)
	}

	return &model.WirePlan{
		BaseLoop:           base,
		TimeBlocks:         expanded,
		LoopStyles:         styles,
		DefaultLoopStyleID: p.DefaultLoopStyleID,
		ScheduleBlocks:     normalized,
	}
}

// Snapshot serializes a plan for draft comparison. Serialization is
// deterministic for a given plan value, so equal snapshots mean equal plans.
func Snapshot(p *model.Plan) string {
	payload := BuildPayload(p)
	raw, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	return string(raw)
}

// TotalItems counts content across the base loop and every block loop; a
// plan publishing zero items is rejected. The technical placeholder is not
// content.
func TotalItems(w *model.WirePlan) int {
	total := 0
	for _, item := range w.BaseLoop {
		if !item.IsTechnical() {
			total++
		}
	}
	for _, block := range w.TimeBlocks {
		for _, item := range block.Loops {
			if !item.IsTechnical() {
				total++
			}
		}
	}
	return total
}
