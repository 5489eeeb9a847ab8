// Package orchestrator drives the day-by-day consent review over scheduling
// proposals returned by the planning backend.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"wellness-companion/internal/backend"
	"wellness-companion/internal/parser"
)

// Status is the single tagged state of the review flow. It replaces the
// pile of independent booleans the web client used for consent tracking.
type Status string

const (
	StatusIdle         Status = "IDLE"
	StatusPlanning     Status = "PLANNING"
	StatusNoProposals  Status = "NO_PROPOSALS"
	StatusBatchConsent Status = "BATCH_CONSENT" // legacy all-at-once consent
	StatusDayReview    Status = "DAY_REVIEW"
	StatusFinished     Status = "FINISHED"
	StatusAborted      Status = "ABORTED"
)

// DayGroup pairs one calendar date with the proposals starting on it, in the
// order they appeared in the parsed list.
type DayGroup struct {
	Date      string
	Proposals []parser.Proposal
}

// Session is one in-progress review. Owned and mutated exclusively by the
// Orchestrator.
type Session struct {
	ID         string
	DayGroups  []DayGroup
	CurrentDay int
}

// Orchestrator owns the consent state machine. Methods return the chat
// messages to surface; the caller decides how to deliver them.
type Orchestrator struct {
	client  backend.Client
	status  Status
	session *Session
}

// New creates an idle Orchestrator.
func New(client backend.Client) *Orchestrator {
	return &Orchestrator{client: client, status: StatusIdle}
}

// Status returns the current review state.
func (o *Orchestrator) Status() Status {
	return o.status
}

// GroupByDay partitions proposals by the calendar date of their start.
// Day keys sort ascending (lexicographic, chronological for normalized date
// strings); within a day the input order is preserved. The backend decision
// cursor walks proposals in emission order, which the scheduler agent emits
// chronologically, so ascending grouping keeps decisions aligned with it; an
// out-of-order payload would still be reviewed date-ascending.
func GroupByDay(proposals []parser.Proposal) []DayGroup {
	byDate := make(map[string][]parser.Proposal)
	var keys []string
	for _, p := range proposals {
		key := p.DateKey()
		if _, seen := byDate[key]; !seen {
			keys = append(keys, key)
		}
		byDate[key] = append(byDate[key], p)
	}
	sort.Strings(keys)

	groups := make([]DayGroup, 0, len(keys))
	for _, k := range keys {
		groups = append(groups, DayGroup{Date: k, Proposals: byDate[k]})
	}
	return groups
}

// BeginPlanning marks a planning call as in flight.
func (o *Orchestrator) BeginPlanning() {
	o.status = StatusPlanning
	o.session = nil
}

// Reset returns to idle, e.g. after a failed planning call.
func (o *Orchestrator) Reset() {
	o.status = StatusIdle
	o.session = nil
}

// StartReview builds the day groups and opens the review on the first day.
// An empty proposal list ends the flow with a "nothing to suggest" notice.
// A successful new planning run replaces any previous session.
func (o *Orchestrator) StartReview(proposals []parser.Proposal, sessionID string) []string {
	if len(proposals) == 0 {
		o.status = StatusNoProposals
		o.session = nil
		return []string{"I looked at your calendar and have nothing to suggest right now. It already looks well balanced. 💜"}
	}

	o.session = &Session{
		ID:        sessionID,
		DayGroups: GroupByDay(proposals),
	}
	o.status = StatusDayReview
	return []string{o.dayPrompt()}
}

// StartBatchConsent opens the legacy all-at-once consent over an ungrouped
// proposal list.
func (o *Orchestrator) StartBatchConsent(proposals []parser.Proposal, sessionID string) []string {
	if len(proposals) == 0 {
		o.status = StatusNoProposals
		o.session = nil
		return []string{"I looked at your calendar and have nothing to suggest right now. It already looks well balanced. 💜"}
	}

	o.session = &Session{
		ID:        sessionID,
		DayGroups: []DayGroup{{Date: "", Proposals: proposals}},
	}
	o.status = StatusBatchConsent

	var b strings.Builder
	b.WriteString("Here's everything I'd like to add:\n")
	for _, p := range proposals {
		b.WriteString(formatProposalLine(p))
	}
	b.WriteString("\nShall I add all of these? (yes/no)")
	return []string{b.String()}
}

// DecideDay applies the user's decision to every proposal of the current
// day: one sequential decision call per proposal, in list order. Individual
// failures are swallowed and counted as not-scheduled; the loop always runs
// to the end of the day. Afterwards the review advances to the next day or
// finishes.
func (o *Orchestrator) DecideDay(ctx context.Context, accept bool) []string {
	if o.status != StatusDayReview || o.session == nil {
		return nil
	}

	group := o.session.DayGroups[o.session.CurrentDay]
	scheduled := o.decideGroup(ctx, group.Proposals, accept)

	var messages []string
	if accept {
		messages = append(messages, fmt.Sprintf("Added %d activities for %s.", scheduled, formatDayName(group.Date)))
	} else {
		messages = append(messages, fmt.Sprintf("Okay, skipping %s.", formatDayName(group.Date)))
	}

	o.session.CurrentDay++
	if o.session.CurrentDay < len(o.session.DayGroups) {
		messages = append(messages, o.dayPrompt())
		return messages
	}

	o.status = StatusFinished
	o.session = nil
	messages = append(messages, "That's every day reviewed. Take care of yourself! 💜")
	return messages
}

// DecideBatch applies one decision to the whole legacy batch, then finishes.
func (o *Orchestrator) DecideBatch(ctx context.Context, accept bool) []string {
	if o.status != StatusBatchConsent || o.session == nil {
		return nil
	}

	proposals := o.session.DayGroups[0].Proposals
	scheduled := o.decideGroup(ctx, proposals, accept)

	o.status = StatusFinished
	o.session = nil

	if accept {
		return []string{fmt.Sprintf("Added %d activities to your calendar. 💜", scheduled)}
	}
	return []string{"Okay, nothing was added."}
}

// Cancel aborts an in-progress review. Local state clears unconditionally;
// the backend session delete is fire-and-forget and decisions already issued
// are not retracted.
func (o *Orchestrator) Cancel(ctx context.Context) []string {
	if o.status != StatusDayReview && o.status != StatusBatchConsent {
		return []string{"There's no review in progress."}
	}

	sessionID := o.session.ID
	o.status = StatusAborted
	o.session = nil

	if err := o.client.CancelSession(ctx, sessionID); err != nil {
		log.Printf("Failed to cancel backend session %s: %v", sessionID, err)
	}
	return []string{"Review cancelled. Anything already added stays on your calendar."}
}

// decideGroup issues one decision call per proposal, strictly sequentially,
// and returns how many came back scheduled. A failed call counts as
// not-scheduled and never stops the loop.
func (o *Orchestrator) decideGroup(ctx context.Context, proposals []parser.Proposal, accept bool) int {
	scheduled := 0
	for _, p := range proposals {
		res, err := o.client.Decide(ctx, o.session.ID, accept)
		if err != nil {
			log.Printf("Decision call failed for %q: %v", p.Summary, err)
			continue
		}
		if accept && res.Result.Status == "scheduled" {
			scheduled++
		}
	}
	return scheduled
}

// dayPrompt renders the prompt for the current day: a header naming the day,
// one line per proposal, and the consent question.
func (o *Orchestrator) dayPrompt() string {
	group := o.session.DayGroups[o.session.CurrentDay]

	var b strings.Builder
	fmt.Fprintf(&b, "📅 %s\n", formatDayName(group.Date))
	for _, p := range group.Proposals {
		b.WriteString(formatProposalLine(p))
	}
	b.WriteString("\nAdd these to your calendar? (yes/no)")
	return b.String()
}

// formatProposalLine renders "• summary (15:04–15:04)" with an optional
// " - reason" suffix. The time layout is fixed so output is deterministic.
func formatProposalLine(p parser.Proposal) string {
	var b strings.Builder
	b.WriteString("• ")
	b.WriteString(p.Summary)

	start, okStart := p.StartTime()
	end, okEnd := p.EndTime()
	if okStart && okEnd {
		fmt.Fprintf(&b, " (%s–%s)", start.Format("15:04"), end.Format("15:04"))
	}
	if p.Reason != "" {
		b.WriteString(" - ")
		b.WriteString(p.Reason)
	}
	b.WriteString("\n")
	return b.String()
}

// formatDayName renders a date key as "Monday, Jan 2" when it parses,
// otherwise returns the key as-is.
func formatDayName(dateKey string) string {
	if dateKey == "" {
		return "your week"
	}
	t, err := time.Parse("2006-01-02", dateKey)
	if err != nil {
		return dateKey
	}
	return t.Format("Monday, Jan 2")
}
