// Package parser extracts the analysis narrative and the structured proposal
// payload from the scheduler agent's raw planning text.
//
// The agent wraps its final answer in <response> with <proposal> prose, an
// optional <payload> block holding a JSON object with a "proposals" array,
// and a <consent> question. Only the payload markers are load-bearing; the
// other tags are cosmetic and stripped from the analysis for display.
package parser

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"
)

// Proposal is a single candidate calendar activity awaiting approval.
// Start and End stay exactly as emitted (ISO-8601, backend timezone).
type Proposal struct {
	Type    string `json:"type"`
	Summary string `json:"summary"`
	Start   string `json:"start"`
	End     string `json:"end"`
	Reason  string `json:"reason,omitempty"`
}

// Result is the outcome of parsing one raw planning response.
type Result struct {
	Analysis  string
	Proposals []Proposal
}

var (
	payloadRe  = regexp.MustCompile(`(?s)<payload>\s*(\{.*?\})\s*</payload>`)
	wrapTagsRe = regexp.MustCompile(`</?(?:response|proposal|consent)>`)
)

// Parse splits a raw planning response into analysis prose and proposals.
// It never fails: a missing or malformed payload degrades to zero proposals
// with whatever prose was recoverable. Pure and deterministic.
func Parse(raw string) Result {
	m := payloadRe.FindStringSubmatchIndex(raw)
	if m == nil {
		return Result{Analysis: cleanProse(raw)}
	}

	analysis := cleanProse(raw[:m[0]])

	var payload struct {
		Proposals []Proposal `json:"proposals"`
	}
	if err := json.Unmarshal([]byte(raw[m[2]:m[3]]), &payload); err != nil {
		// Malformed payload degrades to "no suggestions", never an error.
		return Result{Analysis: analysis}
	}

	return Result{Analysis: analysis, Proposals: payload.Proposals}
}

func cleanProse(s string) string {
	return strings.TrimSpace(wrapTagsRe.ReplaceAllString(s, ""))
}

// timestampLayouts covers the formats the scheduler agent has been seen to
// emit: full RFC3339 with offset, and zoneless variants with or without
// seconds.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// StartTime parses the proposal's start timestamp. ok is false when the
// backend emitted something unrecognizable.
func (p Proposal) StartTime() (time.Time, bool) {
	return parseTimestamp(p.Start)
}

// EndTime parses the proposal's end timestamp.
func (p Proposal) EndTime() (time.Time, bool) {
	return parseTimestamp(p.End)
}

// DateKey is the calendar date of the proposal's start in the backend's
// timezone, taken directly from the emitted string (YYYY-MM-DD).
func (p Proposal) DateKey() string {
	if len(p.Start) < 10 {
		return p.Start
	}
	return p.Start[:10]
}
