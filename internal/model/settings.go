package model

import "encoding/json"

// ClockSettings configures the digital/analog clock renderer.
type ClockSettings struct {
	Type         string `json:"type"`
	Format       string `json:"format"`
	DateFormat   string `json:"dateFormat"`
	TimeColor    string `json:"timeColor"`
	DateColor    string `json:"dateColor"`
	BgColor      string `json:"bgColor"`
	FontSize     int    `json:"fontSize"`
	TimeFontSize int    `json:"timeFontSize"`
	DateFontSize int    `json:"dateFontSize"`
	ClockSize    int    `json:"clockSize"`
	ShowSeconds  bool   `json:"showSeconds"`
	ShowDate     bool   `json:"showDate"`
	Language     string `json:"language"`
}

// LogoSettings configures the fallback branding screen.
type LogoSettings struct {
	Text        string `json:"text"`
	FontSize    int    `json:"fontSize"`
	TextColor   string `json:"textColor"`
	BgColor     string `json:"bgColor"`
	ShowVersion bool   `json:"showVersion"`
	Version     string `json:"version"`
}

// TextSettings configures the static/scrolling text renderer.
type TextSettings struct {
	Text               string  `json:"text"`
	FontFamily         string  `json:"fontFamily"`
	FontSize           int     `json:"fontSize"`
	FontWeight         string  `json:"fontWeight"`
	FontStyle          string  `json:"fontStyle"`
	LineHeight         float64 `json:"lineHeight"`
	TextAlign          string  `json:"textAlign"`
	TextColor          string  `json:"textColor"`
	BgColor            string  `json:"bgColor"`
	BgImageData        string  `json:"bgImageData"`
	ScrollMode         bool    `json:"scrollMode"`
	ScrollStartPauseMs int     `json:"scrollStartPauseMs"`
	ScrollEndPauseMs   int     `json:"scrollEndPauseMs"`
	ScrollSpeedPxPerSec int    `json:"scrollSpeedPxPerSec"`
}

// VideoSettings configures the video renderer. VideoDurationSec, when
// positive, fixes the item duration to the source media length.
type VideoSettings struct {
	VideoAssetURL    string `json:"videoAssetUrl"`
	VideoAssetID     string `json:"videoAssetId"`
	VideoDurationSec int    `json:"videoDurationSec"`
	Muted            bool   `json:"muted"`
	FitMode          string `json:"fitMode"`
	BgColor          string `json:"bgColor"`
}

// OverlaySettings are the clock/text overlays a gallery item can carry.
type OverlaySettings struct {
	ClockOverlayEnabled       bool   `json:"clockOverlayEnabled"`
	ClockOverlayPosition      string `json:"clockOverlayPosition"`
	ClockOverlayHeightPercent int    `json:"clockOverlayHeightPercent"`
	ClockOverlayTimeColor     string `json:"clockOverlayTimeColor"`
	ClockOverlayDateColor     string `json:"clockOverlayDateColor"`
	TextOverlayEnabled        bool   `json:"textOverlayEnabled"`
	TextOverlayPosition       string `json:"textOverlayPosition"`
	TextOverlayHeightPercent  int    `json:"textOverlayHeightPercent"`
	TextOverlayText           string `json:"textOverlayText"`
	TextOverlayFontSize       int    `json:"textOverlayFontSize"`
	TextOverlayColor          string `json:"textOverlayColor"`
	TextOverlaySpeedPxPerSec  int    `json:"textOverlaySpeedPxPerSec"`
}

// GallerySettings configures the image gallery renderer.
type GallerySettings struct {
	ImageUrlsJSON   string `json:"imageUrlsJson"`
	DisplayMode     string `json:"displayMode"`
	FitMode         string `json:"fitMode"`
	SlideIntervalSec int   `json:"slideIntervalSec"`
	TransitionMs    int    `json:"transitionMs"`
	CollageColumns  int    `json:"collageColumns"`
	BgColor         string `json:"bgColor"`
	OverlaySettings
}

// OpaqueSettings carries settings for module kinds this service does not
// model; they pass through publish untouched.
type OpaqueSettings map[string]any

// DecodeSettings interprets the raw settings blob according to the item's
// module key. Unknown keys decode into OpaqueSettings.
func (c ContentItem) DecodeSettings() (any, error) {
	raw := c.Settings
	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}
	switch c.ModuleKey {
	case ModuleClock:
		var s ClockSettings
		err := json.Unmarshal(raw, &s)
		return s, err
	case ModuleDefaultLogo:
		var s LogoSettings
		err := json.Unmarshal(raw, &s)
		return s, err
	case ModuleText:
		var s TextSettings
		err := json.Unmarshal(raw, &s)
		return s, err
	case ModuleVideo:
		var s VideoSettings
		err := json.Unmarshal(raw, &s)
		return s, err
	case ModuleGallery, ModuleGalleryAlias:
		var s GallerySettings
		err := json.Unmarshal(raw, &s)
		return s, err
	default:
		var s OpaqueSettings
		err := json.Unmarshal(raw, &s)
		return s, err
	}
}

func defaultOverlaySettings() OverlaySettings {
	return OverlaySettings{
		ClockOverlayPosition:      "top",
		ClockOverlayHeightPercent: 25,
		ClockOverlayTimeColor:     "#ffffff",
		ClockOverlayDateColor:     "#ffffff",
		TextOverlayPosition:       "bottom",
		TextOverlayHeightPercent:  20,
		TextOverlayText:           "Sem vložte text...",
		TextOverlayFontSize:       52,
		TextOverlayColor:          "#ffffff",
		TextOverlaySpeedPxPerSec:  120,
	}
}

// DefaultSettings returns the factory settings for a module kind, already
// marshalled for storage on a ContentItem.
func DefaultSettings(moduleKey string) json.RawMessage {
	var s any
	switch moduleKey {
	case ModuleClock:
		s = ClockSettings{
			Type: "digital", Format: "24h", DateFormat: "dmy",
			TimeColor: "#ffffff", DateColor: "#ffffff", BgColor: "#000000",
			FontSize: 120, TimeFontSize: 120, DateFontSize: 36, ClockSize: 300,
			ShowSeconds: true, ShowDate: true, Language: "sk",
		}
	case ModuleDefaultLogo:
		s = LogoSettings{
			Text: "EDUDISPLEJ", FontSize: 120, TextColor: "#ffffff",
			BgColor: "#000000", ShowVersion: true, Version: "v1.0",
		}
	case ModuleText:
		s = TextSettings{
			Text: "Sem vložte text...", FontFamily: "Arial, sans-serif",
			FontSize: 72, FontWeight: "700", FontStyle: "normal",
			LineHeight: 1.2, TextAlign: "left", TextColor: "#ffffff",
			BgColor: "#000000", ScrollStartPauseMs: 3000,
			ScrollEndPauseMs: 3000, ScrollSpeedPxPerSec: 35,
		}
	case ModuleVideo:
		s = VideoSettings{
			VideoDurationSec: 10, Muted: true, FitMode: "contain",
			BgColor: "#000000",
		}
	case ModuleGallery, ModuleGalleryAlias:
		s = GallerySettings{
			ImageUrlsJSON: "[]", DisplayMode: "slideshow", FitMode: "cover",
			SlideIntervalSec: 5, TransitionMs: 450, CollageColumns: 3,
			BgColor: "#000000", OverlaySettings: defaultOverlaySettings(),
		}
	default:
		s = OpaqueSettings{}
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return raw
}
