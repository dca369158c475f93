// Package severity maps CVSS base scores to discrete severity buckets.
package severity

import (
	"fmt"
	"math"
	"strings"

	gocvss30 "github.com/pandatix/go-cvss/30"
	gocvss31 "github.com/pandatix/go-cvss/31"
	gocvss40 "github.com/pandatix/go-cvss/40"
)

// Level is a severity bucket.
type Level int

const (
	Unknown Level = iota
	Low
	Medium
	High
	Critical
)

// Levels lists every bucket from most to least severe.
var Levels = []Level{Critical, High, Medium, Low, Unknown}

func (l Level) String() string {
	switch l {
	case Low:
		return "Low"
	case Medium:
		return "Medium"
	case High:
		return "High"
	case Critical:
		return "Critical"
	default:
		return "Unknown"
	}
}

// Icon returns the marker used in digests for the level.
func (l Level) Icon() string {
	switch l {
	case Low:
		return "🟢"
	case Medium:
		return "🟡"
	case High:
		return "🟠"
	case Critical:
		return "🔴"
	default:
		return "❓"
	}
}

// Classify returns the bucket for a score. Zero, negative and NaN scores are Unknown.
func Classify(score float64) Level {
	switch {
	case math.IsNaN(score) || score <= 0:
		return Unknown
	case score < 4.0:
		return Low
	case score < 7.0:
		return Medium
	case score < 9.0:
		return High
	default:
		return Critical
	}
}

// ClassifyParsed classifies the result of a score parse; a parse error is Unknown.
func ClassifyParsed(score float64, err error) Level {
	if err != nil {
		return Unknown
	}
	return Classify(score)
}

// ScoreFromVector computes the base score of a CVSS 3.0, 3.1 or 4.0 vector.
func ScoreFromVector(vector string) (float64, error) {
	vector = strings.TrimSpace(vector)
	switch {
	case strings.HasPrefix(vector, "CVSS:3.0/"):
		v, err := gocvss30.ParseVector(vector)
		if err != nil {
			return 0, fmt.Errorf("parse cvss 3.0 vector: %w", err)
		}
		return v.BaseScore(), nil
	case strings.HasPrefix(vector, "CVSS:3.1/"):
		v, err := gocvss31.ParseVector(vector)
		if err != nil {
			return 0, fmt.Errorf("parse cvss 3.1 vector: %w", err)
		}
		return v.BaseScore(), nil
	case strings.HasPrefix(vector, "CVSS:4.0/"):
		v, err := gocvss40.ParseVector(vector)
		if err != nil {
			return 0, fmt.Errorf("parse cvss 4.0 vector: %w", err)
		}
		return v.Score(), nil
	default:
		return 0, fmt.Errorf("unsupported cvss vector %q", vector)
	}
}
