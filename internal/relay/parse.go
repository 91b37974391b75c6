package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/example/deeptrust/internal/analysis"
)

var codeFence = regexp.MustCompile("(?i)```(?:json)?")

// CleanContent strips Markdown code fences and surrounding whitespace from
// the model output.
func CleanContent(content string) string {
	return strings.TrimSpace(codeFence.ReplaceAllString(content, ""))
}

type wireSignal struct {
	Name        string             `json:"name"`
	Detected    *bool              `json:"detected"`
	Severity    *analysis.Severity `json:"severity"`
	Description string             `json:"description"`
}

type wireResult struct {
	Confidence *float64          `json:"confidence"`
	Verdict    *analysis.Verdict `json:"verdict"`
	Signals    *[]wireSignal     `json:"signals"`
	Summary    *string           `json:"summary"`
}

// ParseContent cleans the raw model output once and decodes it into a
// Result. Any failure is a parse failure.
func ParseContent(content string) (*analysis.Result, error) {
	var wire wireResult
	if err := json.Unmarshal([]byte(CleanContent(content)), &wire); err != nil {
		return nil, parseFailure(err)
	}

	switch {
	case wire.Confidence == nil:
		return nil, parseFailure(errors.New("missing confidence"))
	case wire.Verdict == nil:
		return nil, parseFailure(errors.New("missing verdict"))
	case wire.Signals == nil:
		return nil, parseFailure(errors.New("missing signals"))
	case wire.Summary == nil:
		return nil, parseFailure(errors.New("missing summary"))
	}

	confidence := math.Round(*wire.Confidence)
	if math.IsNaN(confidence) || confidence < math.MinInt32 || confidence > math.MaxInt32 {
		return nil, parseFailure(fmt.Errorf("confidence %g does not fit an integer", *wire.Confidence))
	}

	signals := make([]analysis.Signal, 0, len(*wire.Signals))
	for i, s := range *wire.Signals {
		if s.Detected == nil || s.Severity == nil {
			return nil, parseFailure(fmt.Errorf("signal %d: detected and severity are required", i))
		}
		signals = append(signals, analysis.Signal{
			Name:        s.Name,
			Detected:    *s.Detected,
			Severity:    *s.Severity,
			Description: s.Description,
		})
	}

	return &analysis.Result{
		Confidence: int(confidence),
		Verdict:    *wire.Verdict,
		Signals:    signals,
		Summary:    *wire.Summary,
	}, nil
}

func parseFailure(err error) error {
	return analysis.NewError(analysis.KindParseFailure, analysis.MessageParseFailure, err)
}
