package plan

import (
	"testing"
	"time"

	"github.com/edudisplej/loopplan/internal/model"
)

func testPlan(blocks ...model.TimeBlock) *model.Plan {
	return &model.Plan{
		DefaultLoopStyleID: 1,
		LoopStyles: []model.LoopStyle{
			{ID: 1, Name: "DEFAULT", Items: []model.ContentItem{{ModuleID: 1, ModuleKey: model.ModuleClock, DurationSeconds: 10}}},
			{ID: 2, Name: "Morning", Items: []model.ContentItem{{ModuleID: 2, ModuleKey: model.ModuleText, DurationSeconds: 10}}},
			{ID: 3, Name: "Special", Items: []model.ContentItem{{ModuleID: 3, ModuleKey: model.ModuleVideo, DurationSeconds: 10}}},
		},
		TimeBlocks: blocks,
	}
}

func at(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02 15:04", value)
	if err != nil {
		t.Fatal(err)
	}
	return ts
}

func TestResolveScopeNoMatchesReturnsBase(t *testing.T) {
	p := testPlan(weeklyBlock(10, "6,7", "08:00:00", "12:00:00", 100))
	if got := ResolveScope(p, at(t, "2024-06-10 09:30")); got != model.ScopeBase {
		t.Fatalf("expected base, got %q", got) // 2024-06-10 is a Monday
	}
}

func TestResolveScopeDateBeatsWeeklyRegardlessOfPriority(t *testing.T) {
	weekly := weeklyBlock(10, "1,2,3,4,5", "08:00:00", "12:00:00", 100)
	weekly.LoopStyleID = 2
	date := dateBlock(20, "2024-06-10", "09:00:00", "10:00:00", 50)
	date.LoopStyleID = 3
	p := testPlan(weekly, date)

	if got := ResolveScope(p, at(t, "2024-06-10 09:30")); got != model.ScopeID(20) {
		t.Fatalf("date block must win over weekly, got %q", got)
	}
	if got := ResolveScope(p, at(t, "2024-06-11 09:30")); got != model.ScopeID(10) {
		t.Fatalf("tuesday has no date override, weekly must win, got %q", got)
	}
	if got := ResolveScope(p, at(t, "2024-06-10 13:00")); got != model.ScopeBase {
		t.Fatalf("outside both windows the base loop governs, got %q", got)
	}
}

func TestResolveScopePriorityThenID(t *testing.T) {
	low := weeklyBlock(10, "1", "08:00:00", "12:00:00", 100)
	high := weeklyBlock(11, "1", "09:00:00", "11:00:00", 200)
	p := testPlan(low, high)
	if got := ResolveScope(p, at(t, "2024-06-10 09:30")); got != model.ScopeID(11) {
		t.Fatalf("higher priority must win, got %q", got)
	}

	twinA := weeklyBlock(21, "1", "08:00:00", "12:00:00", 100)
	twinB := weeklyBlock(20, "1", "08:00:00", "12:00:00", 100)
	p = testPlan(twinA, twinB)
	if got := ResolveScope(p, at(t, "2024-06-10 09:30")); got != model.ScopeID(20) {
		t.Fatalf("equal priority resolves to lower id, got %q", got)
	}
}

func TestResolveScopeSkipsInactiveBlocks(t *testing.T) {
	block := weeklyBlock(10, "1", "08:00:00", "12:00:00", 100)
	block.IsActive = false
	p := testPlan(block)
	if got := ResolveScope(p, at(t, "2024-06-10 09:30")); got != model.ScopeBase {
		t.Fatalf("inactive blocks must not match, got %q", got)
	}
}

func TestResolveScopeMidnightWrapMatchesOwnDay(t *testing.T) {
	// Monday 22:00-02:00: both halves are evaluated against the instant's
	// own weekday, so Monday 23:30 and Monday 01:00 match, Tuesday 01:00
	// does not.
	block := weeklyBlock(10, "1", "22:00:00", "02:00:00", 100)
	p := testPlan(block)

	if got := ResolveScope(p, at(t, "2024-06-10 23:30")); got != model.ScopeID(10) {
		t.Fatalf("monday evening half should match, got %q", got)
	}
	if got := ResolveScope(p, at(t, "2024-06-10 01:00")); got != model.ScopeID(10) {
		t.Fatalf("monday morning half should match, got %q", got)
	}
	if got := ResolveScope(p, at(t, "2024-06-11 01:00")); got != model.ScopeBase {
		t.Fatalf("tuesday is not in the mask, got %q", got)
	}
}

func TestResolveScopeFullDayBlock(t *testing.T) {
	block := weeklyBlock(10, "1", "08:00:00", "08:00:00", 100)
	p := testPlan(block)
	for _, clock := range []string{"00:00", "07:59", "08:00", "23:59"} {
		if got := ResolveScope(p, at(t, "2024-06-10 "+clock)); got != model.ScopeID(10) {
			t.Fatalf("full-day block should match %s, got %q", clock, got)
		}
	}
}

func TestGoverningItems(t *testing.T) {
	weekly := weeklyBlock(10, "1,2,3,4,5", "08:00:00", "12:00:00", 100)
	weekly.LoopStyleID = 2
	p := testPlan(weekly)

	items := GoverningItems(p, at(t, "2024-06-10 09:30"), false)
	if len(items) != 1 || items[0].ModuleID != 2 {
		t.Fatalf("expected the Morning style items, got %v", items)
	}

	items = GoverningItems(p, at(t, "2024-06-10 13:00"), false)
	if len(items) != 1 || items[0].ModuleID != 1 {
		t.Fatalf("expected the DEFAULT items, got %v", items)
	}

	// A default group always serves the DEFAULT loop.
	items = GoverningItems(p, at(t, "2024-06-10 09:30"), true)
	if len(items) != 1 || items[0].ModuleID != 1 {
		t.Fatalf("default group must serve DEFAULT items, got %v", items)
	}
}
