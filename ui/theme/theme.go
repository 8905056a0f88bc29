package theme

// Palette and ttk styles for the caption overlay. InitStyles activates the
// base theme and configures the semantic widget styles.

import (
	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// Palette defines core semantic colors used across widgets.
const (
	ColorBg        = "#f7f9fb" // app background
	ColorSurface   = "#ffffff" // caption card
	ColorBorder    = "#d0d7de"
	ColorPrimary   = "#2563eb" // buttons, translated caption
	ColorDanger    = "#dc2626"
	ColorAccent    = "#10b981" // state badge
	ColorText      = "#1e293b"
	ColorTextMuted = "#64748b" // original caption, status line
)

// PaletteSnapshot represents resolved colors for the active mode.
type PaletteSnapshot struct {
	AppBg     string
	Surface   string
	Border    string
	Primary   string
	Danger    string
	Accent    string
	Text      string
	TextMuted string
}

var (
	light = PaletteSnapshot{
		AppBg:     ColorBg,
		Surface:   ColorSurface,
		Border:    ColorBorder,
		Primary:   ColorPrimary,
		Danger:    ColorDanger,
		Accent:    ColorAccent,
		Text:      ColorText,
		TextMuted: ColorTextMuted,
	}
	dark = PaletteSnapshot{
		AppBg:     "#0f172a",
		Surface:   "#1e293b",
		Border:    "#334155",
		Primary:   "#3b82f6",
		Danger:    "#ef4444",
		Accent:    "#10b981",
		Text:      "#f1f5f9",
		TextMuted: "#94a3b8",
	}
)

// CurrentPalette returns colors for the current dark/light mode.
func CurrentPalette() PaletteSnapshot {
	if darkMode {
		return dark
	}
	return light
}

// style names used with Style("primary.TButton") etc.
const (
	StylePrimaryButton   = "primary.TButton"
	StyleDangerButton    = "danger.TButton"
	StyleStateLabel      = "state.TLabel"
	StyleOriginalLabel   = "original.TLabel"
	StyleTranslatedLabel = "translated.TLabel"
	StyleStatusLabel     = "status.TLabel"
)

var darkMode bool

// InitStyles (re)applies styles for the current darkMode value.
func InitStyles() { applyStyles(CurrentPalette()) }

// SetDark switches mode and reapplies styles. Returns the new mode.
func SetDark(d bool) bool {
	darkMode = d
	applyStyles(CurrentPalette())
	return darkMode
}

// ToggleDark flips dark mode and reapplies styles.
func ToggleDark() bool { return SetDark(!darkMode) }

// IsDark reports current mode.
func IsDark() bool { return darkMode }

func applyStyles(p PaletteSnapshot) {
	_ = ActivateTheme("azure light") // baseline metrics
	App.Configure(Background(p.AppBg))

	StyleConfigure(StylePrimaryButton,
		Background(p.Primary),
		Foreground("white"),
		Padding("4p 3p"),
		Borderwidth(1),
		Relief("ridge"),
	)
	StyleConfigure(StyleDangerButton,
		Background(p.Danger),
		Foreground("white"),
		Padding("4p 3p"),
		Borderwidth(1),
		Relief("ridge"),
	)
	StyleConfigure(StyleStateLabel,
		Foreground("white"),
		Background(p.Accent),
		Padding("4p 2p"),
		Borderwidth(1),
		Relief("groove"),
	)
	StyleConfigure(StyleOriginalLabel,
		Foreground(p.TextMuted),
		Background(p.Surface),
		Padding("4p 2p"),
	)
	StyleConfigure(StyleTranslatedLabel,
		Foreground(p.Primary),
		Background(p.Surface),
		Padding("4p 4p"),
	)
	StyleConfigure(StyleStatusLabel,
		Foreground(p.TextMuted),
		Background(p.AppBg),
		Padding("2p 1p"),
	)
}
