package matcher

import (
	"sort"

	"expense-reconciliation-service/internal/models"
	"expense-reconciliation-service/internal/normalizer"
	"expense-reconciliation-service/internal/resolver"

	"github.com/google/uuid"
)

// duplicateDateGapDays is how close two same-merchant, same-amount receipts
// must be before they are treated as the same purchase captured twice
const duplicateDateGapDays = 1

// DuplicateGroup is a cluster of receipts that appear to describe the same
// purchase: same canonical merchant, same amount, dates within a day. One
// receipt is kept as the primary; the rest are held out of matching so a
// double-scanned receipt cannot claim two transactions.
type DuplicateGroup struct {
	// GroupID tags the cluster for reporting and follow-up
	GroupID string `json:"group_id"`

	Primary   *models.ReceiptRecord   `json:"primary"`
	Discarded []*models.ReceiptRecord `json:"discarded"`

	// Reason is the tie-break rule that selected the primary
	Reason resolver.Reason `json:"reason"`
}

// DuplicateDetector finds near-identical receipts before a matching run
type DuplicateDetector struct {
	opts resolver.Options
}

// NewDuplicateDetector creates a detector using the standard tie-break
// options: extraction confidence first, then the fresher capture
func NewDuplicateDetector() *DuplicateDetector {
	return &DuplicateDetector{opts: resolver.DefaultOptions()}
}

// NewDuplicateDetectorWithOptions creates a detector with custom tie-break
// options, e.g. a source priority favoring manually entered receipts
func NewDuplicateDetectorWithOptions(opts resolver.Options) *DuplicateDetector {
	return &DuplicateDetector{opts: opts}
}

// FindDuplicates clusters the given receipts and selects a primary for each
// cluster of two or more. Receipts are not modified; the caller decides what
// to do with the discarded ones. Singleton receipts produce no group.
func (d *DuplicateDetector) FindDuplicates(receipts []*models.ReceiptRecord) []*DuplicateGroup {
	// Bucket by canonical merchant and exact amount
	buckets := make(map[string][]*models.ReceiptRecord)
	var keys []string

	for _, receipt := range receipts {
		if receipt == nil {
			continue
		}
		merchant := receipt.NormalizedMerchant
		if merchant == "" {
			merchant = normalizer.Normalize(receipt.Merchant)
		}
		if merchant == "" {
			continue
		}

		key := merchant + "|" + receipt.Amount.String()
		if _, exists := buckets[key]; !exists {
			keys = append(keys, key)
		}
		buckets[key] = append(buckets[key], receipt)
	}

	sort.Strings(keys)

	var groups []*DuplicateGroup
	for _, key := range keys {
		bucket := buckets[key]
		if len(bucket) < 2 {
			continue
		}

		// Within a bucket, receipts chain into one cluster while each is
		// within a day of the previous
		sort.Slice(bucket, func(i, j int) bool {
			if bucket[i].Date.Equal(bucket[j].Date) {
				return bucket[i].ID < bucket[j].ID
			}
			return bucket[i].Date.Before(bucket[j].Date)
		})

		cluster := []*models.ReceiptRecord{bucket[0]}
		for i := 1; i < len(bucket); i++ {
			if models.DaysBetween(bucket[i].Date, cluster[len(cluster)-1].Date) <= duplicateDateGapDays {
				cluster = append(cluster, bucket[i])
				continue
			}
			if group := d.resolveCluster(cluster); group != nil {
				groups = append(groups, group)
			}
			cluster = []*models.ReceiptRecord{bucket[i]}
		}
		if group := d.resolveCluster(cluster); group != nil {
			groups = append(groups, group)
		}
	}

	return groups
}

// resolveCluster picks the primary of one duplicate cluster by pairwise
// tie-break: the incumbent defends against each challenger in turn
func (d *DuplicateDetector) resolveCluster(cluster []*models.ReceiptRecord) *DuplicateGroup {
	if len(cluster) < 2 {
		return nil
	}

	group := &DuplicateGroup{GroupID: uuid.NewString()}

	primary := cluster[0]
	var lastReason resolver.Reason

	for _, challenger := range cluster[1:] {
		resolution := resolver.Resolve(
			toCandidate(primary),
			toCandidate(challenger),
			d.opts,
		)
		lastReason = resolution.Reason

		if resolution.Winner.ID == challenger.ID {
			group.Discarded = append(group.Discarded, primary)
			primary = challenger
		} else {
			group.Discarded = append(group.Discarded, challenger)
		}
	}

	group.Primary = primary
	group.Reason = lastReason
	return group
}

// toCandidate maps a receipt onto the resolver's generic candidate shape:
// extraction confidence is the signal strength, the receipt date stands in
// for capture time
func toCandidate(receipt *models.ReceiptRecord) resolver.Candidate {
	source := "import"
	if receipt.OCRText != "" || receipt.ExtractionConfidence > 0 {
		source = "ocr"
	}

	return resolver.Candidate{
		ID:        receipt.ID,
		Source:    source,
		Score:     receipt.ExtractionConfidence,
		Timestamp: receipt.Date,
	}
}
