package style

import "github.com/charmbracelet/lipgloss"

// Palette holds the colors of the progress view. Stage colors follow the
// pipeline: pending work is Warning, a confirmed run is Success.
type Palette struct {
	Accent  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Warning lipgloss.Color
	Info    lipgloss.Color

	TextMuted     lipgloss.Color
	TextSecondary lipgloss.Color
}

// DefaultPalette возвращает палитру для тёмного терминала
func DefaultPalette() Palette {
	return Palette{
		Accent:  lipgloss.Color("#00E5FF"),
		Success: lipgloss.Color("#2AFFAA"),
		Error:   lipgloss.Color("#FF5555"),
		Warning: lipgloss.Color("#FFB500"),
		Info:    lipgloss.Color("#3B82F6"),

		TextMuted:     lipgloss.Color("#6C7280"),
		TextSecondary: lipgloss.Color("#B4BCC8"),
	}
}

// Styles used by the submission progress view.
type Styles struct {
	Title     lipgloss.Style
	Container lipgloss.Style
	Label     lipgloss.Style
	Stage     lipgloss.Style
	Done      lipgloss.Style
	Failed    lipgloss.Style
	Muted     lipgloss.Style
	Logs      lipgloss.Style
	LogError  lipgloss.Style
	LogWarn   lipgloss.Style
	Help      lipgloss.Style
}

func NewStyles(palette Palette) Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Foreground(palette.Accent).
			Bold(true).
			MarginBottom(1),

		Container: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.Accent).
			Padding(0, 2),

		Label: lipgloss.NewStyle().
			Foreground(palette.TextSecondary).
			Width(14),

		Stage: lipgloss.NewStyle().
			Foreground(palette.Warning),

		Done: lipgloss.NewStyle().
			Foreground(palette.Success).
			Bold(true),

		Failed: lipgloss.NewStyle().
			Foreground(palette.Error).
			Bold(true),

		Muted: lipgloss.NewStyle().
			Foreground(palette.TextMuted),

		Logs: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.Info).
			Padding(0, 1).
			MarginTop(1),

		LogError: lipgloss.NewStyle().Foreground(palette.Error),
		LogWarn:  lipgloss.NewStyle().Foreground(palette.Warning),

		Help: lipgloss.NewStyle().
			Foreground(palette.TextMuted).
			MarginTop(1),
	}
}
