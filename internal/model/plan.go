package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// BlockKind discriminates recurring weekly blocks from one-off date blocks.
type BlockKind string

const (
	BlockWeekly BlockKind = "weekly"
	BlockDate   BlockKind = "date"
)

// ScopeBase is the scope id returned when no time block governs an instant
// and the DEFAULT loop plays.
const ScopeBase = "base"

// LoopStyle is a named, ordered sequence of content items that can be
// scheduled through time blocks. Persisted styles carry positive ids,
// local-only styles negative ones.
type LoopStyle struct {
	ID             int           `json:"id"`
	Name           string        `json:"name"`
	Items          []ContentItem `json:"items"`
	LastModifiedMs int64         `json:"last_modified_ms,omitempty"`
}

// TimeBlock binds a loop style to a weekly recurring window or a single date.
type TimeBlock struct {
	ID           int           `json:"id"`
	BlockName    string        `json:"block_name"`
	BlockType    BlockKind     `json:"block_type"`
	SpecificDate *string       `json:"specific_date"`
	StartTime    string        `json:"start_time"`
	EndTime      string        `json:"end_time"`
	DaysMask     string        `json:"days_mask"`
	Priority     int           `json:"priority"`
	LoopStyleID  int           `json:"loop_style_id"`
	IsActive     IntBool       `json:"is_active"`
	IsLocked     IntBool       `json:"is_locked"`
	Loops        []ContentItem `json:"loops"`
}

// Plan is the full scheduling configuration for one display group and the
// unit of draft comparison and publish.
type Plan struct {
	LoopStyles         []LoopStyle `json:"loop_styles"`
	DefaultLoopStyleID int         `json:"default_loop_style_id"`
	TimeBlocks         []TimeBlock `json:"time_blocks"`
}

// WirePlan is the load/publish payload. Field names are load-bearing for
// interoperability with existing kiosk clients; schedule_blocks duplicates
// time_blocks without the expanded loops for legacy readers.
type WirePlan struct {
	BaseLoop           []ContentItem `json:"base_loop"`
	TimeBlocks         []TimeBlock   `json:"time_blocks"`
	LoopStyles         []LoopStyle   `json:"loop_styles"`
	DefaultLoopStyleID int           `json:"default_loop_style_id"`
	ScheduleBlocks     []TimeBlock   `json:"schedule_blocks"`

	// PlanVersion is echoed on load/publish responses; legacy flat payloads
	// carried a bare "loops" array instead of loop_styles.
	PlanVersion string        `json:"plan_version,omitempty"`
	Loops       []ContentItem `json:"loops,omitempty"`
}

// DraftSnapshot is the cached working copy of a plan.
type DraftSnapshot struct {
	Snapshot string `json:"snapshot"`
	SavedAt  string `json:"saved_at"`
}

// IntBool marshals as 0/1, matching the kiosk wire format.
type IntBool bool

func (b IntBool) MarshalJSON() ([]byte, error) {
	if b {
		return []byte("1"), nil
	}
	return []byte("0"), nil
}

func (b *IntBool) UnmarshalJSON(data []byte) error {
	switch strings.Trim(string(data), `"`) {
	case "1", "true":
		*b = true
	default:
		*b = false
	}
	return nil
}

// NormalizeDaysMask reduces a CSV day list to unique, sorted values in 1..7.
// Empty or garbage input falls back to the full week.
func NormalizeDaysMask(raw string) string {
	seen := map[int]bool{}
	for _, part := range strings.Split(raw, ",") {
		d, err := strconv.Atoi(strings.TrimSpace(part))
		if err == nil && d >= 1 && d <= 7 {
			seen[d] = true
		}
	}
	if len(seen) == 0 {
		return "1,2,3,4,5,6,7"
	}
	days := make([]int, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Ints(days)
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ",")
}

// Days expands the block's days_mask into a set keyed 1 (Monday) .. 7 (Sunday).
func (b TimeBlock) Days() map[int]bool {
	out := map[int]bool{}
	for _, part := range strings.Split(b.DaysMask, ",") {
		d, err := strconv.Atoi(strings.TrimSpace(part))
		if err == nil && d >= 1 && d <= 7 {
			out[d] = true
		}
	}
	return out
}

// Weekday maps time.Weekday onto the 1 (Monday) .. 7 (Sunday) mask values.
func Weekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// DateKey renders t as the specific_date wire form.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// StyleByID returns the style with the given id, or nil.
func (p *Plan) StyleByID(id int) *LoopStyle {
	for i := range p.LoopStyles {
		if p.LoopStyles[i].ID == id {
			return &p.LoopStyles[i]
		}
	}
	return nil
}

// BlockByID returns the time block with the given id, or nil.
func (p *Plan) BlockByID(id int) *TimeBlock {
	for i := range p.TimeBlocks {
		if p.TimeBlocks[i].ID == id {
			return &p.TimeBlocks[i]
		}
	}
	return nil
}

// DefaultStyle returns the DEFAULT loop style, or nil when the plan is empty.
func (p *Plan) DefaultStyle() *LoopStyle {
	return p.StyleByID(p.DefaultLoopStyleID)
}

// Clone deep-copies the plan so callers can stage mutations without touching
// the canonical aggregate.
func (p *Plan) Clone() *Plan {
	out := &Plan{
		DefaultLoopStyleID: p.DefaultLoopStyleID,
		LoopStyles:         make([]LoopStyle, len(p.LoopStyles)),
		TimeBlocks:         make([]TimeBlock, len(p.TimeBlocks)),
	}
	for i, style := range p.LoopStyles {
		out.LoopStyles[i] = style
		out.LoopStyles[i].Items = CloneItems(style.Items)
	}
	for i, block := range p.TimeBlocks {
		out.TimeBlocks[i] = block
		out.TimeBlocks[i].Loops = CloneItems(block.Loops)
		if block.SpecificDate != nil {
			date := *block.SpecificDate
			out.TimeBlocks[i].SpecificDate = &date
		}
	}
	return out
}

// ScopeID renders a block reference the way the editor addresses scopes.
func ScopeID(blockID int) string {
	return fmt.Sprintf("block:%d", blockID)
}
