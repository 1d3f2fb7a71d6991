package util

import "time"

// Retry configures a bounded, linearly-increasing backoff retry loop.
type Retry struct {
	Tries   int
	Backoff time.Duration
}

// DefaultRetry is the retry policy the RPC Gateway's RetryGetLogs uses. Store
// connection setup uses postgres.DefaultConnectRetry instead.
var DefaultRetry = Retry{Tries: 3, Backoff: time.Second}

// Sleep blocks for the backoff appropriate to attempt i (0-indexed), growing
// linearly with the attempt number.
func (r Retry) Sleep(i int) {
	time.Sleep(r.Backoff * time.Duration(i+1))
}
