// Package recurrence classifies a merchant's transaction history into a
// payment cadence and predicts the next occurrence. The match engine uses
// the result as an advisory prior only; it never forces a match.
package recurrence

import (
	"math"
	"sort"
	"time"

	"expense-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

// Frequency is the classified payment cadence for a merchant
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
	// FrequencyUnknown means the history was too short to classify
	FrequencyUnknown Frequency = ""
)

// Mean day-gap thresholds for the piecewise cadence classifier
const (
	dailyMaxGap   = 2.0
	weeklyMaxGap  = 10.0
	monthlyMaxGap = 35.0
)

// Subscription acceptance criteria: gaps must be regular, the amount must
// be stable, and there must be enough history to trust either signal.
const (
	gapRegularityRatio   = 0.25
	amountStabilityRatio = 0.10
	minObservedGaps      = 3
)

// Result describes the detected cadence for one merchant's history
type Result struct {
	IsSubscription  bool            `json:"isSubscription"`
	Frequency       Frequency       `json:"frequency,omitempty"`
	NextPaymentDate time.Time       `json:"nextPaymentDate,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	MeanGapDays     float64         `json:"meanGapDays"`
	GapStdDev       float64         `json:"gapStdDev"`
	Observations    int             `json:"observations"`
}

// Detect computes interval statistics over one merchant's transactions and
// classifies the cadence. Fewer than two transactions yields no frequency
// and no prediction. The input slice is not modified.
func Detect(history []*models.TransactionRecord) Result {
	result := Result{
		Observations: len(history),
		Amount:       decimal.Zero,
	}

	if len(history) < 2 {
		return result
	}

	sorted := make([]*models.TransactionRecord, len(history))
	copy(sorted, history)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].ID < sorted[j].ID
		}
		return sorted[i].Date.Before(sorted[j].Date)
	})

	gaps := make([]float64, 0, len(sorted)-1)
	amounts := make([]float64, 0, len(sorted))
	amountSum := decimal.Zero

	for i, txn := range sorted {
		magnitude := txn.DebitMagnitude()
		amounts = append(amounts, magnitude.InexactFloat64())
		amountSum = amountSum.Add(magnitude)

		if i > 0 {
			gaps = append(gaps, float64(models.DaysBetween(txn.Date, sorted[i-1].Date)))
		}
	}

	meanGap := mean(gaps)
	gapStdDev := stdDev(gaps, meanGap)
	amountMean := mean(amounts)
	amountStdDev := stdDev(amounts, amountMean)

	result.MeanGapDays = meanGap
	result.GapStdDev = gapStdDev
	result.Frequency = classifyFrequency(meanGap)
	result.Amount = amountSum.Div(decimal.NewFromInt(int64(len(sorted)))).Round(2)
	result.NextPaymentDate = nextDate(sorted[len(sorted)-1].Date, result.Frequency)

	result.IsSubscription = len(gaps) >= minObservedGaps &&
		meanGap > 0 &&
		gapStdDev < gapRegularityRatio*meanGap &&
		amountMean > 0 &&
		amountStdDev < amountStabilityRatio*amountMean

	return result
}

// classifyFrequency maps a mean day gap onto a cadence bucket
func classifyFrequency(meanGap float64) Frequency {
	switch {
	case meanGap <= dailyMaxGap:
		return FrequencyDaily
	case meanGap <= weeklyMaxGap:
		return FrequencyWeekly
	case meanGap <= monthlyMaxGap:
		return FrequencyMonthly
	default:
		return FrequencyYearly
	}
}

// nextDate advances the last observed date by one period of the cadence
func nextDate(last time.Time, freq Frequency) time.Time {
	switch freq {
	case FrequencyDaily:
		return last.AddDate(0, 0, 1)
	case FrequencyWeekly:
		return last.AddDate(0, 0, 7)
	case FrequencyMonthly:
		return last.AddDate(0, 1, 0)
	case FrequencyYearly:
		return last.AddDate(1, 0, 0)
	default:
		return time.Time{}
	}
}

// FitsExpectation reports how well a candidate date and amount agree with
// the detected cadence, as a value in [0,1]. Used by the match engine to
// derive a bounded prior boost. Non-subscriptions always fit 0.
func (r Result) FitsExpectation(date time.Time, amount decimal.Decimal) float64 {
	if !r.IsSubscription || r.NextPaymentDate.IsZero() {
		return 0.0
	}

	// Amount must sit inside the subscription's own stability band
	if r.Amount.IsPositive() {
		relDiff := amount.Abs().Sub(r.Amount).Abs().Div(r.Amount).InexactFloat64()
		if relDiff > amountStabilityRatio {
			return 0.0
		}
	}

	// Date proximity to the cadence grid anchored at the predicted
	// occurrence, scaled by cadence length. Using the grid rather than the
	// single next date means an on-pattern payment fits no matter which
	// period it lands in.
	gap := float64(models.DaysBetween(date, r.NextPaymentDate))
	if r.MeanGapDays > 0 {
		residual := math.Mod(gap, r.MeanGapDays)
		if r.MeanGapDays-residual < residual {
			residual = r.MeanGapDays - residual
		}
		gap = residual
	}

	span := r.MeanGapDays * gapRegularityRatio
	if span < 1 {
		span = 1
	}

	if gap > span {
		return 0.0
	}

	return 1.0 - gap/span
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stdDev(values []float64, m float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sumSquares := 0.0
	for _, v := range values {
		d := v - m
		sumSquares += d * d
	}
	return math.Sqrt(sumSquares / float64(len(values)))
}
