// Package ui provides the interactive terminal interface of the ForumKit
// client: feed, comment threads, support tickets and the admin panels.
package ui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ForumKit brand palette.
var (
	// Light mode
	LightBackground = lipgloss.Color("#f7f7f5")
	LightForeground = lipgloss.Color("#1d2433")
	LightPrimary    = lipgloss.Color("#2f5fde")
	LightAccent     = lipgloss.Color("#f2a343")
	LightMuted      = lipgloss.Color("#8a90a0")
	LightBorder     = lipgloss.Color("#d8dbe2")

	// Dark mode
	DarkBackground = lipgloss.Color("#171a21")
	DarkForeground = lipgloss.Color("#eceef2")
	DarkPrimary    = lipgloss.Color("#7a9bff")
	DarkAccent     = lipgloss.Color("#f2a343")
	DarkMuted      = lipgloss.Color("#5b6170")
	DarkBorder     = lipgloss.Color("#2c313d")

	// Semantic colors (same in both modes)
	ColorSuccess = lipgloss.Color("#3fb26f")
	ColorError   = lipgloss.Color("#e05252")
	ColorWarning = lipgloss.Color("#e0b64f")
)

// Theme holds the current color scheme
type Theme struct {
	Background lipgloss.Color
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	IsDark     bool
}

// LightTheme returns the light mode theme
func LightTheme() Theme {
	return Theme{
		Background: LightBackground,
		Foreground: LightForeground,
		Primary:    LightPrimary,
		Accent:     LightAccent,
		Muted:      LightMuted,
		Border:     LightBorder,
	}
}

// DarkTheme returns the dark mode theme
func DarkTheme() Theme {
	return Theme{
		Background: DarkBackground,
		Foreground: DarkForeground,
		Primary:    DarkPrimary,
		Accent:     DarkAccent,
		Muted:      DarkMuted,
		Border:     DarkBorder,
		IsDark:     true,
	}
}

// ThemeFor resolves the configured theme name; "auto" falls back to
// terminal detection.
func ThemeFor(name string) Theme {
	switch name {
	case "light":
		return LightTheme()
	case "dark":
		return DarkTheme()
	default:
		return DetectTheme()
	}
}

// DetectTheme guesses light/dark from the terminal environment.
func DetectTheme() Theme {
	if os.Getenv("FORUMKIT_DARK_MODE") == "1" {
		return DarkTheme()
	}

	// COLORFGBG is "foreground;background"; low background indices are dark.
	if colorTerm := os.Getenv("COLORFGBG"); colorTerm != "" {
		parts := strings.Split(colorTerm, ";")
		if len(parts) == 2 {
			if bgIdx, err := strconv.Atoi(parts[1]); err == nil {
				if (bgIdx >= 0 && bgIdx <= 6) || bgIdx == 8 {
					return DarkTheme()
				}
			}
		}
	}
	return LightTheme()
}

// Styles holds all the styled components
type Styles struct {
	Theme Theme

	// Layout
	Header lipgloss.Style
	Footer lipgloss.Style
	Tab    lipgloss.Style
	TabOn  lipgloss.Style

	// Text
	Title  lipgloss.Style
	Body   lipgloss.Style
	Muted  lipgloss.Style
	Author lipgloss.Style

	// Status
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Badge   lipgloss.Style

	// Content
	Card     lipgloss.Style
	Selected lipgloss.Style
	Pinned   lipgloss.Style
	Overlay  lipgloss.Style
}

// NewStyles creates a new Styles instance with the given theme
func NewStyles(theme Theme) Styles {
	return Styles{
		Theme: theme,

		Header: lipgloss.NewStyle().
			Background(theme.Primary).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 2).
			Bold(true),

		Footer: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 2),

		Tab: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 1),

		TabOn: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true).
			Underline(true).
			Padding(0, 1),

		Title: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		Body: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Author: lipgloss.NewStyle().
			Foreground(theme.Accent),

		Success: lipgloss.NewStyle().Foreground(ColorSuccess),
		Error:   lipgloss.NewStyle().Foreground(ColorError).Bold(true),
		Warning: lipgloss.NewStyle().Foreground(ColorWarning),

		Badge: lipgloss.NewStyle().
			Background(ColorError).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 1).
			Bold(true),

		Card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),

		Selected: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Primary).
			Padding(0, 1),

		Pinned: lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(theme.Accent).
			Padding(0, 1),

		Overlay: lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(ColorError).
			Foreground(ColorError).
			Padding(2, 4).
			Bold(true),
	}
}

// DefaultStyles returns styles with the auto-detected theme.
func DefaultStyles() Styles {
	return NewStyles(DetectTheme())
}
