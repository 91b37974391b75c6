package analysis

import (
	"encoding/json"
	"fmt"
)

// Verdict is the model's authenticity judgment for an image.
type Verdict int

const (
	VerdictAIGenerated Verdict = iota + 1
	VerdictLikelyAI
	VerdictUncertain
	VerdictLikelyReal
	VerdictReal
)

var verdictNames = map[Verdict]string{
	VerdictAIGenerated: "AI_GENERATED",
	VerdictLikelyAI:    "LIKELY_AI",
	VerdictUncertain:   "UNCERTAIN",
	VerdictLikelyReal:  "LIKELY_REAL",
	VerdictReal:        "REAL",
}

// Verdicts lists every verdict in order from most synthetic to most authentic.
func Verdicts() []Verdict {
	return []Verdict{VerdictAIGenerated, VerdictLikelyAI, VerdictUncertain, VerdictLikelyReal, VerdictReal}
}

func (v Verdict) String() string {
	if name, ok := verdictNames[v]; ok {
		return name
	}
	return fmt.Sprintf("Verdict(%d)", int(v))
}

// Valid reports whether v is one of the five known verdicts.
func (v Verdict) Valid() bool {
	_, ok := verdictNames[v]
	return ok
}

// ParseVerdict maps the wire name of a verdict to its value.
func ParseVerdict(s string) (Verdict, error) {
	for v, name := range verdictNames {
		if name == s {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown verdict %q", s)
}

func (v Verdict) MarshalJSON() ([]byte, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("cannot marshal %s", v)
	}
	return json.Marshal(v.String())
}

func (v *Verdict) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("verdict must be a string: %w", err)
	}
	parsed, err := ParseVerdict(s)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Severity grades how strongly a detected signal points at synthesis.
type Severity int

const (
	SeverityLow Severity = iota + 1
	SeverityMedium
	SeverityHigh
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// ParseSeverity maps the wire name of a severity to its value.
func ParseSeverity(s string) (Severity, error) {
	switch s {
	case "low":
		return SeverityLow, nil
	case "medium":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	default:
		return 0, fmt.Errorf("unknown severity %q", s)
	}
}

func (s Severity) MarshalJSON() ([]byte, error) {
	if s < SeverityLow || s > SeverityHigh {
		return nil, fmt.Errorf("cannot marshal %s", s)
	}
	return json.Marshal(s.String())
}

func (s *Severity) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("severity must be a string: %w", err)
	}
	parsed, err := ParseSeverity(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Signal is one forensic indicator the model reports having evaluated.
type Signal struct {
	Name        string   `json:"name"`
	Detected    bool     `json:"detected"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
}

// Result is the structured verdict returned for one image.
//
// Confidence and Verdict are supplied independently by the model and are not
// checked against each other.
type Result struct {
	Confidence int      `json:"confidence"`
	Verdict    Verdict  `json:"verdict"`
	Signals    []Signal `json:"signals"`
	Summary    string   `json:"summary"`
}
