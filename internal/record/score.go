package record

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"euvdalert/internal/severity"
)

// Score holds the raw baseScore token exactly as the feed sent it. The feed
// publishes numbers, but strings such as "8.5" or "N/A" show up too.
type Score []byte

// ScoreOf builds a numeric score.
func ScoreOf(f float64) Score {
	return Score(strconv.FormatFloat(f, 'f', -1, 64))
}

// ScoreString builds a string-typed score token.
func ScoreString(s string) Score {
	b, _ := json.Marshal(s)
	return Score(b)
}

func (s Score) MarshalJSON() ([]byte, error) {
	if len(s) == 0 {
		return []byte("null"), nil
	}
	return []byte(s), nil
}

func (s *Score) UnmarshalJSON(data []byte) error {
	*s = append((*s)[:0], data...)
	return nil
}

// Float parses the score. Absent, non-numeric and non-finite values return a *ScoreError.
func (s Score) Float() (float64, error) {
	raw := strings.TrimSpace(string(s))
	text := raw
	if strings.HasPrefix(raw, `"`) {
		if err := json.Unmarshal([]byte(raw), &text); err != nil {
			return 0, &ScoreError{Value: raw, Err: err}
		}
	}
	text = strings.TrimSpace(text)
	if text == "" || text == "null" {
		return 0, &ScoreError{Value: raw}
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, &ScoreError{Value: raw, Err: err}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &ScoreError{Value: raw}
	}
	return f, nil
}

// Severity classifies the score; unparsable scores are Unknown.
func (s Score) Severity() severity.Level {
	return severity.ClassifyParsed(s.Float())
}

// String renders the score for display.
func (s Score) String() string {
	f, err := s.Float()
	if err != nil {
		return "N/A"
	}
	return strconv.FormatFloat(f, 'f', 1, 64)
}
