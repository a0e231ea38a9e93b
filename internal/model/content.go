package model

import "encoding/json"

// Module keys understood by the kiosk renderers. Unknown keys still round-trip
// through the plan; only their settings stay opaque.
const (
	ModuleClock        = "clock"
	ModuleDefaultLogo  = "default-logo"
	ModuleText         = "text"
	ModuleVideo        = "video"
	ModuleGallery      = "image-gallery"
	ModuleGalleryAlias = "gallery"
	ModuleUnconfigured = "unconfigured"
)

// UnconfiguredDurationSeconds is pinned for the technical placeholder item.
const UnconfiguredDurationSeconds = 60

// DefaultItemDurationSeconds applies when an item carries no duration.
const DefaultItemDurationSeconds = 10

// ContentItem is one entry of a loop: a renderer module plus its settings.
type ContentItem struct {
	ModuleID        int             `json:"module_id"`
	ModuleName      string          `json:"module_name,omitempty"`
	Description     string          `json:"description,omitempty"`
	ModuleKey       string          `json:"module_key"`
	DurationSeconds int             `json:"duration_seconds"`
	Settings        json.RawMessage `json:"settings"`
}

// IsTechnical reports whether the item is the unconfigured placeholder that
// stands in for an otherwise empty loop.
func (c ContentItem) IsTechnical() bool {
	return c.ModuleKey == ModuleUnconfigured
}

// EffectiveDuration resolves the playback duration in seconds. Video items
// follow their source media length when the settings carry one; the technical
// placeholder is fixed.
func (c ContentItem) EffectiveDuration() int {
	if c.IsTechnical() {
		return UnconfiguredDurationSeconds
	}
	if c.ModuleKey == ModuleVideo {
		if s, err := c.DecodeSettings(); err == nil {
			if vs, ok := s.(VideoSettings); ok && vs.VideoDurationSec > 0 {
				return vs.VideoDurationSec
			}
		}
	}
	if c.DurationSeconds > 0 {
		return c.DurationSeconds
	}
	return DefaultItemDurationSeconds
}

// TechnicalItem builds the placeholder injected into empty loops.
func TechnicalItem(moduleID int, moduleName string) ContentItem {
	return ContentItem{
		ModuleID:        moduleID,
		ModuleName:      moduleName,
		ModuleKey:       ModuleUnconfigured,
		DurationSeconds: UnconfiguredDurationSeconds,
		Settings:        json.RawMessage(`{}`),
	}
}

// CloneItems deep-copies a content item slice, including raw settings bytes.
func CloneItems(items []ContentItem) []ContentItem {
	if items == nil {
		return nil
	}
	out := make([]ContentItem, len(items))
	for i, item := range items {
		out[i] = item
		if item.Settings != nil {
			out[i].Settings = append(json.RawMessage(nil), item.Settings...)
		}
	}
	return out
}

// NormalizeItems enforces the placeholder invariant: a loop holds either
// exactly the technical item or one-or-more real items, never zero, never a
// mix. technical may be nil when no placeholder module is configured.
func NormalizeItems(items []ContentItem, technical *ContentItem) []ContentItem {
	real := make([]ContentItem, 0, len(items))
	var existing *ContentItem
	for i := range items {
		if items[i].IsTechnical() {
			if existing == nil {
				existing = &items[i]
			}
			continue
		}
		real = append(real, items[i])
	}
	if len(real) > 0 {
		return real
	}
	if existing != nil {
		kept := *existing
		kept.DurationSeconds = UnconfiguredDurationSeconds
		return []ContentItem{kept}
	}
	if technical == nil {
		return []ContentItem{}
	}
	return []ContentItem{*technical}
}

// HasRealItems reports whether the loop contains anything beyond the
// technical placeholder.
func HasRealItems(items []ContentItem) bool {
	for _, item := range items {
		if !item.IsTechnical() {
			return true
		}
	}
	return false
}

// TotalDuration sums effective durations across a loop, in seconds.
func TotalDuration(items []ContentItem) int {
	total := 0
	for _, item := range items {
		total += item.EffectiveDuration()
	}
	return total
}
