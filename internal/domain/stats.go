package domain

import "time"

// RequestStats is derived from the request and message populations. It is
// never written directly; a wrong count is fixed in the underlying data.
type RequestStats struct {
	Total                int64
	Open                 int64
	InProgress           int64
	Completed            int64
	Closed               int64
	CompletionRate       float64
	AvgFirstResponse     time.Duration
	FirstResponseSamples int64
	GeneratedAt          time.Time
}

// CompletionRate computes completed/total, yielding 0 for an empty
// population rather than NaN.
func CompletionRate(completed, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(completed) / float64(total)
}
