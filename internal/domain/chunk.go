package domain

import (
	"iter"
	"time"
)

// MonthChunk is one calendar-month slice of a custom range. End is the last
// calendar day of Start's month.
type MonthChunk struct {
	Start time.Time
	End   time.Time
}

// MonthChunks yields one chunk per month from `from` up to, but excluding,
// `to`. When from and to are the same month, that single month is yielded.
// The sequence is finite and may be ranged over more than once.
func MonthChunks(from, to YearMonth) iter.Seq[MonthChunk] {
	return func(yield func(MonthChunk) bool) {
		if from == to {
			yield(chunkFor(from))
			return
		}
		for ym := from; ym.Before(to); ym = ym.Next() {
			if !yield(chunkFor(ym)) {
				return
			}
		}
	}
}

func chunkFor(ym YearMonth) MonthChunk {
	return MonthChunk{Start: ym.FirstDay(), End: ym.LastDay()}
}
