package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme colors
var (
	PrimaryColor   = lipgloss.Color("#5B9BD5") // Blue
	SecondaryColor = lipgloss.Color("#7B68EE") // Medium slate blue
	AccentColor    = lipgloss.Color("#00D4AA") // Teal accent

	SuccessColor = lipgloss.Color("#2ECC71")
	WarningColor = lipgloss.Color("#F1C40F")
	ErrorColor   = lipgloss.Color("#E74C3C")
	InfoColor    = lipgloss.Color("#5B9BD5")

	TextColor    = lipgloss.Color("#FFFFFF")
	SubtextColor = lipgloss.Color("#B0B0B0")
	MutedColor   = lipgloss.Color("#6C6C6C")
	DimColor     = lipgloss.Color("#4A4A4A")
)

// Base styles
var (
	BoldStyle = lipgloss.NewStyle().Bold(true)

	PrimaryStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	InfoStyle = lipgloss.NewStyle().
			Foreground(InfoColor).
			Bold(true)

	WhiteStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	GrayStyle = lipgloss.NewStyle().
			Foreground(SubtextColor)

	MutedStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	DimStyle = lipgloss.NewStyle().
			Foreground(DimColor)
)

// Component styles
var (
	BannerStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	SectionTitleStyle = lipgloss.NewStyle().
				Foreground(TextColor).
				Bold(true)

	GroupTitleStyle = lipgloss.NewStyle().
			Foreground(AccentColor).
			Bold(true)

	BorderStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	BulletStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor)

	KeyStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	ValueStyle = lipgloss.NewStyle().
			Foreground(SubtextColor)

	SeparatorStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	// Dashboard sidebar
	SidebarStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(PrimaryColor).
			Padding(0, 1)

	SidebarItemStyle = lipgloss.NewStyle().
				Foreground(SubtextColor).
				PaddingLeft(1)

	SidebarSelectedStyle = lipgloss.NewStyle().
				Foreground(TextColor).
				Background(SecondaryColor).
				Bold(true).
				PaddingLeft(1)

	ContentStyle = lipgloss.NewStyle().
			PaddingLeft(2)

	HelpStyle = lipgloss.NewStyle().
			Foreground(MutedColor)
)

// Status icons
const (
	IconSuccess = "✓"
	IconWarning = "⚠"
	IconError   = "✗"
	IconInfo    = "ℹ"
	IconBullet  = "•"
	IconArrow   = "→"
	IconDot     = "●"
)

// Box drawing characters
const (
	BoxTopLeft     = "┌"
	BoxTopRight    = "┐"
	BoxBottomLeft  = "└"
	BoxBottomRight = "┘"
	BoxHorizontal  = "─"
)

// Progress bar characters
const (
	ProgressFull  = "█"
	ProgressEmpty = "░"
)

// DefaultWidth is the default terminal width for formatting
const DefaultWidth = 60

// RenderBanner returns the styled ASCII banner
func RenderBanner() string {
	banner := `██████╗ ██╗   ██╗██╗     ███████╗███████╗██████╗  ██████╗
██╔══██╗██║   ██║██║     ██╔════╝██╔════╝██╔══██╗██╔════╝
██████╔╝██║   ██║██║     ███████╗█████╗  ██████╔╝██║
██╔═══╝ ██║   ██║██║     ╚════██║██╔══╝  ██╔═══╝ ██║
██║     ╚██████╔╝███████╗███████║███████╗██║     ╚██████╗
╚═╝      ╚═════╝ ╚══════╝╚══════╝╚══════╝╚═╝      ╚═════╝`
	return BannerStyle.Render(banner)
}

// RenderSubtitle returns the styled subtitle
func RenderSubtitle() string {
	return BoldStyle.Foreground(TextColor).Render("                  Hardware Telemetry")
}

// RenderSectionStart returns a styled section header
func RenderSectionStart(title string) string {
	titlePart := SectionTitleStyle.Render(title)

	dashCount := DefaultWidth - lipgloss.Width(title) - 4 // "┌─ " + title + " ─"
	if dashCount < 0 {
		dashCount = 0
	}

	prefix := BorderStyle.Render(BoxTopLeft + BoxHorizontal + " ")
	suffix := BorderStyle.Render(" " + BoxHorizontal + strings.Repeat(BoxHorizontal, dashCount) + BoxTopRight)

	return prefix + titlePart + suffix
}

// RenderSectionEnd returns a styled section footer
func RenderSectionEnd() string {
	return BorderStyle.Render(BoxBottomLeft + strings.Repeat(BoxHorizontal, DefaultWidth) + BoxBottomRight)
}

// RenderStatus returns a styled status message
func RenderStatus(status, message string) string {
	var icon string
	var style lipgloss.Style

	switch status {
	case "success":
		icon = IconSuccess
		style = SuccessStyle
	case "warning":
		icon = IconWarning
		style = WarningStyle
	case "error":
		icon = IconError
		style = ErrorStyle
	default:
		icon = IconInfo
		style = InfoStyle
	}

	return "  " + style.Render(icon) + " " + WhiteStyle.Render(message)
}

// RenderKeyValue returns a styled key-value pair, indented by depth
func RenderKeyValue(depth int, key, value string) string {
	return strings.Repeat("  ", depth+1) + BulletStyle.Render(IconBullet) + " " +
		KeyStyle.Render(key) + " " +
		SeparatorStyle.Render(":") + " " +
		ValueStyle.Render(value)
}

// RenderProgressBar returns a styled progress bar
func RenderProgressBar(percent float64, width int) string {
	if width <= 0 {
		width = 20
	}

	filled := int(percent / 100 * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	var barStyle lipgloss.Style
	switch {
	case percent >= 90:
		barStyle = ErrorStyle
	case percent >= 70:
		barStyle = WarningStyle
	default:
		barStyle = SuccessStyle
	}

	return barStyle.Render(strings.Repeat(ProgressFull, filled)) +
		DimStyle.Render(strings.Repeat(ProgressEmpty, width-filled))
}
