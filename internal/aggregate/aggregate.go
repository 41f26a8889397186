// Package aggregate groups work records under composite keys and folds
// them into per-key totals.
package aggregate

import (
	"iter"

	"github.com/SHUNKURANARI/excel/internal/core"
)

// Buckets is the result of an aggregation, in first-seen key order.
type Buckets = OrderedMap[GroupKey, Bucket]

// Aggregate folds records into one bucket per key. Records are read, never
// modified; the same input order always yields the same result.
func Aggregate(records iter.Seq[core.WorkRecord], key KeyFunc) *Buckets {
	out := NewOrderedMap[GroupKey, Bucket]()
	if records == nil {
		return out
	}
	for r := range records {
		k := key(r)
		b, ok := out.Get(k)
		if !ok {
			b = NewBucket(k, r)
		}
		out.Set(k, Fold(b, r))
	}
	return out
}
