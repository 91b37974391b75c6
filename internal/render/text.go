package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

const barWidth = 30

var toneColors = map[Tone]*color.Color{
	ToneDestructive: color.New(color.FgRed, color.Bold),
	ToneWarning:     color.New(color.FgYellow, color.Bold),
	ToneMuted:       color.New(color.FgWhite),
	TonePrimary:     color.New(color.FgCyan, color.Bold),
	ToneSuccess:     color.New(color.FgGreen, color.Bold),
}

var bandColors = map[Band]*color.Color{
	BandHigh:   color.New(color.FgRed),
	BandMedium: color.New(color.FgYellow),
	BandLow:    color.New(color.FgGreen),
}

// WriteText prints v for a terminal. Colour follows color.NoColor.
func WriteText(w io.Writer, v View) error {
	var b strings.Builder

	toneColors[v.Display.Tone].Fprintf(&b, "%s\n", strings.ToUpper(v.Display.Label))

	filled := v.Percent * barWidth / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	fmt.Fprintf(&b, "AI likelihood  %s %d%%\n", bandColors[v.Band].Sprint(bar), v.Percent)

	if v.Summary != "" {
		fmt.Fprintf(&b, "\n%s\n", v.Summary)
	}

	if len(v.Detected) > 0 {
		fmt.Fprintf(&b, "\nDetected signals (%d)\n", len(v.Detected))
		for _, s := range v.Detected {
			sev := toneColors[SeverityTone(s.Severity)].Sprintf("[%s]", s.Severity)
			fmt.Fprintf(&b, "  %s %s: %s\n", sev, s.Name, s.Description)
		}
	}

	if len(v.Clear) > 0 {
		names := make([]string, 0, len(v.Clear))
		for _, s := range v.Clear {
			names = append(names, s.Name)
		}
		fmt.Fprintf(&b, "\nClear (%d): %s\n", len(v.Clear), strings.Join(names, ", "))
	}

	_, err := io.WriteString(w, b.String())
	return err
}
