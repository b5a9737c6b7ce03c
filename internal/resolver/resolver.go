// Package resolver implements a deterministic tie-break between two
// candidates that both claim the same logical entity. The contract is
// generic on purpose: the matcher uses it to settle duplicate receipts
// contending for one transaction, and any other dual-source merge (two
// import feeds producing the same record) can reuse it unchanged.
//
// Resolution is total: every call produces a winner. Indecision is not an
// error, it just falls through to the declared source priority.
package resolver

import (
	"time"
)

// Reason identifies which rule settled the conflict
type Reason string

const (
	// ReasonStrongerSignal means one candidate's score was strictly higher
	ReasonStrongerSignal Reason = "stronger_signal"
	// ReasonNewer means the candidates' timestamps differed by more than
	// the configured gap and the newer one won
	ReasonNewer Reason = "newer"
	// ReasonDefaultPriority means neither signal nor recency decided, and
	// the declared source priority order picked the winner
	ReasonDefaultPriority Reason = "default_priority"
)

// Candidate is one side of a conflict
type Candidate struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Score     float64   `json:"score"`
	Timestamp time.Time `json:"timestamp"`
}

// Resolution reports the winner and the rule that chose it
type Resolution struct {
	Winner Candidate `json:"winner"`
	Loser  Candidate `json:"loser"`
	Reason Reason    `json:"reason"`
}

// Options tunes the tie-break rules
type Options struct {
	// MinTimestampGap is how far apart timestamps must be before recency
	// decides. Below the gap the two are considered contemporaneous. Zero
	// selects the 24 hour default; a negative value removes the band, so any
	// timestamp difference decides.
	MinTimestampGap time.Duration

	// SourcePriority lists sources from most to least trusted. Sources not
	// listed rank below all listed ones; between two unlisted sources the
	// first argument wins.
	SourcePriority []string
}

// DefaultOptions returns the standard tie-break configuration: a 24 hour
// recency gap and no declared source priority.
func DefaultOptions() Options {
	return Options{
		MinTimestampGap: 24 * time.Hour,
	}
}

// Resolve picks a winner between two candidates. Rules apply in order:
// strictly stronger signal, then recency beyond the configured gap, then
// source priority. Always returns a resolution, never an error.
func Resolve(a, b Candidate, opts Options) Resolution {
	if opts.MinTimestampGap == 0 {
		opts.MinTimestampGap = DefaultOptions().MinTimestampGap
	} else if opts.MinTimestampGap < 0 {
		opts.MinTimestampGap = 0
	}

	// Rule 1: stronger signal wins
	if a.Score > b.Score {
		return Resolution{Winner: a, Loser: b, Reason: ReasonStrongerSignal}
	}
	if b.Score > a.Score {
		return Resolution{Winner: b, Loser: a, Reason: ReasonStrongerSignal}
	}

	// Rule 2: recency wins, but only past the gap; close timestamps are
	// treated as simultaneous
	gap := a.Timestamp.Sub(b.Timestamp)
	if gap < 0 {
		gap = -gap
	}
	if gap > opts.MinTimestampGap {
		if a.Timestamp.After(b.Timestamp) {
			return Resolution{Winner: a, Loser: b, Reason: ReasonNewer}
		}
		return Resolution{Winner: b, Loser: a, Reason: ReasonNewer}
	}

	// Rule 3: declared source priority; first argument wins an unranked tie
	if sourceRank(b.Source, opts.SourcePriority) < sourceRank(a.Source, opts.SourcePriority) {
		return Resolution{Winner: b, Loser: a, Reason: ReasonDefaultPriority}
	}

	return Resolution{Winner: a, Loser: b, Reason: ReasonDefaultPriority}
}

// sourceRank returns the priority index of a source, or one past the end
// for sources that were not declared
func sourceRank(source string, priority []string) int {
	for i, s := range priority {
		if s == source {
			return i
		}
	}
	return len(priority)
}
