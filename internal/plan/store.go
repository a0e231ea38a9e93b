// Package plan implements the in-memory loop plan: the style/block aggregate,
// the authoring-time conflict resolver and the playback-time scope resolver.
package plan

import (
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edudisplej/loopplan/internal/model"
	"github.com/edudisplej/loopplan/internal/timeline"
)

// Store owns the canonical in-memory plan for one editing session and
// enforces its entity invariants. It is not safe for concurrent use; the
// owning session serializes access.
type Store struct {
	plan          *model.Plan
	activeStyleID int
	nextTempID    int
	technical     *model.ContentItem
	now           func() time.Time
}

// NewStore wraps an existing plan aggregate. technical is the placeholder
// item injected into empty loops (nil disables injection).
func NewStore(p *model.Plan, technical *model.ContentItem) *Store {
	s := &Store{
		plan:       p,
		nextTempID: -1,
		technical:  technical,
		now:        time.Now,
	}
	s.ensureDefaultStyle()
	s.activeStyleID = s.plan.DefaultLoopStyleID
	for i := range s.plan.LoopStyles {
		s.plan.LoopStyles[i].Items = model.NormalizeItems(s.plan.LoopStyles[i].Items, s.technical)
		if s.plan.LoopStyles[i].ID <= s.nextTempID {
			s.nextTempID = s.plan.LoopStyles[i].ID - 1
		}
	}
	for _, block := range s.plan.TimeBlocks {
		if block.ID <= s.nextTempID {
			s.nextTempID = block.ID - 1
		}
	}
	return s
}

// NewStoreFromWire builds a store from a load payload, synthesizing a DEFAULT
// style from legacy flat payloads that only carried a bare item list.
func NewStoreFromWire(w *model.WirePlan, technical *model.ContentItem) *Store {
	p := &model.Plan{}
	if len(w.LoopStyles) > 0 {
		p.LoopStyles = make([]model.LoopStyle, len(w.LoopStyles))
		copy(p.LoopStyles, w.LoopStyles)
		p.DefaultLoopStyleID = w.DefaultLoopStyleID
		if len(w.ScheduleBlocks) > 0 {
			p.TimeBlocks = append(p.TimeBlocks, w.ScheduleBlocks...)
		} else {
			p.TimeBlocks = append(p.TimeBlocks, w.TimeBlocks...)
		}
		return NewStore(p, technical)
	}

	// Legacy payloads: base_loop (or flat loops) plus expanded blocks, no
	// named styles. Synthesize them so the planner model holds.
	base := w.BaseLoop
	if base == nil {
		base = w.Loops
	}
	s := NewStore(p, technical)
	defaultStyle := s.plan.DefaultStyle()
	defaultStyle.Items = model.NormalizeItems(model.CloneItems(base), technical)
	for i, block := range w.TimeBlocks {
		name := block.BlockName
		if name == "" {
			name = "Slot " + strconv.Itoa(i+1)
		}
		style := s.newStyle(name, model.CloneItems(block.Loops))
		s.plan.LoopStyles = append(s.plan.LoopStyles, style)
		block.ID = s.allocID()
		block.LoopStyleID = style.ID
		block.DaysMask = model.NormalizeDaysMask(block.DaysMask)
		s.plan.TimeBlocks = append(s.plan.TimeBlocks, block)
	}
	return s
}

// Plan exposes the aggregate for snapshotting and resolution. Callers must
// not mutate it directly.
func (s *Store) Plan() *model.Plan {
	return s.plan
}

// ActiveStyleID is the style currently open in the editor.
func (s *Store) ActiveStyleID() int {
	return s.activeStyleID
}

func (s *Store) allocID() int {
	id := s.nextTempID
	s.nextTempID--
	return id
}

func (s *Store) newStyle(name string, items []model.ContentItem) model.LoopStyle {
	return model.LoopStyle{
		ID:             s.allocID(),
		Name:           name,
		Items:          model.NormalizeItems(items, s.technical),
		LastModifiedMs: s.now().UnixMilli(),
	}
}

// ensureDefaultStyle guarantees exactly one DEFAULT style exists and is
// referenced by DefaultLoopStyleID.
func (s *Store) ensureDefaultStyle() {
	if len(s.plan.LoopStyles) == 0 {
		style := model.LoopStyle{ID: -1, Name: "DEFAULT", LastModifiedMs: time.Now().UnixMilli()}
		if s.technical != nil {
			style.Items = []model.ContentItem{*s.technical}
		} else {
			style.Items = []model.ContentItem{}
		}
		s.plan.LoopStyles = []model.LoopStyle{style}
		s.plan.DefaultLoopStyleID = style.ID
		return
	}
	if s.plan.StyleByID(s.plan.DefaultLoopStyleID) == nil {
		s.plan.DefaultLoopStyleID = s.plan.LoopStyles[0].ID
	}
}

// CreateStyle adds a new empty style and makes it active.
func (s *Store) CreateStyle(name string) (*model.LoopStyle, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	style := s.newStyle(name, nil)
	s.plan.LoopStyles = append(s.plan.LoopStyles, style)
	s.activeStyleID = style.ID
	return s.plan.StyleByID(style.ID), nil
}

// DuplicateStyle copies a style under a collision-free name: "X copy",
// "X copy 2", and so on.
func (s *Store) DuplicateStyle(id int) (*model.LoopStyle, error) {
	source := s.plan.StyleByID(id)
	if source == nil {
		return nil, &ValidationError{Field: "style_id", Reason: "style not found"}
	}
	taken := map[string]bool{}
	for _, style := range s.plan.LoopStyles {
		taken[strings.ToLower(strings.TrimSpace(style.Name))] = true
	}
	base := strings.TrimSpace(source.Name) + " copy"
	candidate := base
	for suffix := 2; taken[strings.ToLower(candidate)]; suffix++ {
		candidate = base + " " + strconv.Itoa(suffix)
	}
	style := s.newStyle(candidate, model.CloneItems(source.Items))
	s.plan.LoopStyles = append(s.plan.LoopStyles, style)
	s.activeStyleID = style.ID
	return s.plan.StyleByID(style.ID), nil
}

// RenameStyle stamps a new name and bumps last_modified.
func (s *Store) RenameStyle(id int, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	style := s.plan.StyleByID(id)
	if style == nil {
		return &ValidationError{Field: "style_id", Reason: "style not found"}
	}
	style.Name = name
	style.LastModifiedMs = s.now().UnixMilli()
	return nil
}

// ReplaceStyleItems swaps a style's item list, keeping the placeholder
// invariant intact.
func (s *Store) ReplaceStyleItems(id int, items []model.ContentItem) error {
	style := s.plan.StyleByID(id)
	if style == nil {
		return &ValidationError{Field: "style_id", Reason: "style not found"}
	}
	style.Items = model.NormalizeItems(model.CloneItems(items), s.technical)
	style.LastModifiedMs = s.now().UnixMilli()
	return nil
}

// DeleteStyle removes a style and cascades to its time blocks. The DEFAULT
// style and the last remaining style are protected.
func (s *Store) DeleteStyle(id int) error {
	if id == s.plan.DefaultLoopStyleID {
		return &InvariantViolation{Reason: "the DEFAULT loop style cannot be deleted"}
	}
	if len(s.plan.LoopStyles) <= 1 {
		return &InvariantViolation{Reason: "at least one loop style must remain"}
	}
	if s.plan.StyleByID(id) == nil {
		return &ValidationError{Field: "style_id", Reason: "style not found"}
	}
	for _, block := range s.plan.TimeBlocks {
		if block.LoopStyleID == id && bool(block.IsLocked) {
			return ErrBlockLocked
		}
	}

	styles := s.plan.LoopStyles[:0]
	for _, style := range s.plan.LoopStyles {
		if style.ID != id {
			styles = append(styles, style)
		}
	}
	s.plan.LoopStyles = styles

	blocks := s.plan.TimeBlocks[:0]
	removed := 0
	for _, block := range s.plan.TimeBlocks {
		if block.LoopStyleID == id {
			removed++
			continue
		}
		blocks = append(blocks, block)
	}
	s.plan.TimeBlocks = blocks
	if removed > 0 {
		log.Debug().Int("style_id", id).Int("cascaded_blocks", removed).Msg("style deletion cascaded to time blocks")
	}

	if s.activeStyleID == id {
		s.activeStyleID = s.plan.DefaultLoopStyleID
	}
	return nil
}

// SetActiveStyle switches the editor focus.
func (s *Store) SetActiveStyle(id int) error {
	if s.plan.StyleByID(id) == nil {
		return &ValidationError{Field: "style_id", Reason: "style not found"}
	}
	s.activeStyleID = id
	return nil
}

// UpsertTimeBlock validates a block, routes it through the conflict resolver
// under the caller's policy, and inserts or replaces it. Rejections leave the
// plan untouched.
func (s *Store) UpsertTimeBlock(block model.TimeBlock, policy ConflictPolicy) (*model.TimeBlock, error) {
	if err := s.validateBlock(&block); err != nil {
		return nil, err
	}
	ignoredID := 0
	if block.ID != 0 {
		if existing := s.plan.BlockByID(block.ID); existing != nil {
			if existing.IsLocked {
				return nil, ErrBlockLocked
			}
			ignoredID = block.ID
		}
	}
	if block.ID == 0 {
		block.ID = s.allocID()
	}
	resolved, err := Resolve(s.plan.TimeBlocks, block, ignoredID, policy)
	if err != nil {
		return nil, err
	}
	s.plan.TimeBlocks = resolved
	return s.plan.BlockByID(block.ID), nil
}

func (s *Store) validateBlock(block *model.TimeBlock) error {
	style := s.plan.StyleByID(block.LoopStyleID)
	if style == nil {
		return &ValidationError{Field: "loop_style_id", Reason: "style not found"}
	}
	if block.LoopStyleID == s.plan.DefaultLoopStyleID {
		return &ValidationError{Field: "loop_style_id", Reason: "the DEFAULT loop cannot be scheduled"}
	}
	switch block.BlockType {
	case model.BlockWeekly:
		block.SpecificDate = nil
		block.DaysMask = model.NormalizeDaysMask(block.DaysMask)
		if len(block.Days()) == 0 {
			return &ValidationError{Field: "days_mask", Reason: "select at least one day"}
		}
	case model.BlockDate:
		if block.SpecificDate == nil || *block.SpecificDate == "" {
			return &ValidationError{Field: "specific_date", Reason: "date is required"}
		}
		if _, err := time.Parse("2006-01-02", *block.SpecificDate); err != nil {
			return &ValidationError{Field: "specific_date", Reason: "expected YYYY-MM-DD"}
		}
	default:
		return &ValidationError{Field: "block_type", Reason: "must be weekly or date"}
	}
	if strings.TrimSpace(block.StartTime) == "" || strings.TrimSpace(block.EndTime) == "" {
		return &ValidationError{Field: "start_time", Reason: "start and end are required"}
	}
	if block.BlockName == "" {
		block.BlockName = "Time block"
	}
	window := timeline.CoveredMinutes(timeline.SegmentsOf(block.StartTime, block.EndTime))
	if loop := model.TotalDuration(style.Items); loop > window*60 {
		log.Debug().Int("block_id", block.ID).Int("window_min", window).Int("loop_sec", loop).
			Msg("loop is longer than its block window")
	}
	return nil
}

// DeleteTimeBlock removes a block by id. Locked blocks stay.
func (s *Store) DeleteTimeBlock(id int) error {
	existing := s.plan.BlockByID(id)
	if existing == nil {
		return &ValidationError{Field: "block_id", Reason: "time block not found"}
	}
	if existing.IsLocked {
		return ErrBlockLocked
	}
	blocks := s.plan.TimeBlocks[:0]
	for _, block := range s.plan.TimeBlocks {
		if block.ID == id {
			continue
		}
		blocks = append(blocks, block)
	}
	s.plan.TimeBlocks = blocks
	return nil
}
