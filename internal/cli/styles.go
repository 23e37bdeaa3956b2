package cli

import "github.com/charmbracelet/lipgloss"

// Color palette shared by all CLI output.
const (
	// ColorPrimary is purple, used for titles and headers.
	ColorPrimary = lipgloss.Color("#7C3AED")

	// ColorMuted is gray, used for secondary text.
	ColorMuted = lipgloss.Color("#6B7280")

	// ColorSuccess is green, used for valid documents.
	ColorSuccess = lipgloss.Color("#10B981")

	// ColorError is red, used for invalid documents and failures.
	ColorError = lipgloss.Color("#EF4444")

	// ColorWarning is amber, used for unresolved references.
	ColorWarning = lipgloss.Color("#F59E0B")

	// ColorHighlight is blue, used for paths and identifiers.
	ColorHighlight = lipgloss.Color("#3B82F6")
)

var (
	// TitleStyle is for primary headers and section titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	// SubtitleStyle is for secondary headers and descriptions.
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// SuccessStyle is for success messages and positive indicators.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	// ErrorStyle is for error messages and failure indicators.
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorError)

	// WarningStyle is for warning messages and caution indicators.
	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	// PathStyle is for file paths and schema identifiers.
	PathStyle = lipgloss.NewStyle().
			Foreground(ColorHighlight)
)

const (
	successIcon = "✓"
	errorIcon   = "✗"
	warningIcon = "!"
)
