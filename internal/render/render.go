// Package render maps an analysis result onto its display configuration.
// Everything here is a pure function of the result.
package render

import (
	"fmt"
	"sort"

	"github.com/example/deeptrust/internal/analysis"
)

// Tone is the visual emphasis of a verdict or signal.
type Tone string

const (
	ToneDestructive Tone = "destructive"
	ToneWarning     Tone = "warning"
	ToneMuted       Tone = "muted"
	TonePrimary     Tone = "primary"
	ToneSuccess     Tone = "success"
)

// Display is the fixed treatment for one verdict.
type Display struct {
	Icon  string
	Label string
	Tone  Tone
	Glow  bool
}

// VerdictDisplay returns the treatment for v.
func VerdictDisplay(v analysis.Verdict) Display {
	switch v {
	case analysis.VerdictAIGenerated:
		return Display{Icon: "x-circle", Label: "AI Generated", Tone: ToneDestructive, Glow: true}
	case analysis.VerdictLikelyAI:
		return Display{Icon: "alert-triangle", Label: "Likely AI", Tone: ToneWarning, Glow: true}
	case analysis.VerdictUncertain:
		return Display{Icon: "help-circle", Label: "Uncertain", Tone: ToneMuted}
	case analysis.VerdictLikelyReal:
		return Display{Icon: "shield", Label: "Likely Real", Tone: TonePrimary, Glow: true}
	case analysis.VerdictReal:
		return Display{Icon: "check-circle", Label: "Authentic", Tone: ToneSuccess, Glow: true}
	default:
		panic(fmt.Sprintf("render: unhandled verdict %s", v))
	}
}

// Band colours the confidence bar; higher confidence means more AI-like.
type Band string

const (
	BandHigh   Band = "high"
	BandMedium Band = "medium"
	BandLow    Band = "low"
)

// ConfidenceBand picks the bar colour for confidence.
func ConfidenceBand(confidence int) Band {
	switch {
	case confidence >= 70:
		return BandHigh
	case confidence >= 40:
		return BandMedium
	default:
		return BandLow
	}
}

// SeverityTone is the emphasis of a detected signal.
func SeverityTone(s analysis.Severity) Tone {
	switch s {
	case analysis.SeverityHigh:
		return ToneDestructive
	case analysis.SeverityMedium:
		return ToneWarning
	default:
		return ToneMuted
	}
}

// View is the complete display configuration for one result.
type View struct {
	Verdict analysis.Verdict
	Display Display
	// Percent is the bar fill, clamped to 0..100.
	Percent  int
	Band     Band
	Detected []analysis.Signal
	Clear    []analysis.Signal
	Summary  string
	// Consistent is informational only: whether the verdict falls on the
	// side of the scale the confidence suggests.
	Consistent bool
}

// Render builds the view for r.
func Render(r analysis.Result) View {
	detected := make([]analysis.Signal, 0, len(r.Signals))
	clearSignals := make([]analysis.Signal, 0, len(r.Signals))
	for _, s := range r.Signals {
		if s.Detected {
			detected = append(detected, s)
		} else {
			clearSignals = append(clearSignals, s)
		}
	}
	sort.SliceStable(detected, func(i, j int) bool {
		return detected[i].Severity > detected[j].Severity
	})

	return View{
		Verdict:    r.Verdict,
		Display:    VerdictDisplay(r.Verdict),
		Percent:    clampPercent(r.Confidence),
		Band:       ConfidenceBand(r.Confidence),
		Detected:   detected,
		Clear:      clearSignals,
		Summary:    r.Summary,
		Consistent: consistent(r.Confidence, r.Verdict),
	}
}

func clampPercent(confidence int) int {
	switch {
	case confidence < 0:
		return 0
	case confidence > 100:
		return 100
	default:
		return confidence
	}
}

func consistent(confidence int, v analysis.Verdict) bool {
	switch v {
	case analysis.VerdictAIGenerated, analysis.VerdictLikelyAI:
		return confidence >= 50
	case analysis.VerdictLikelyReal, analysis.VerdictReal:
		return confidence <= 50
	default:
		return true
	}
}
