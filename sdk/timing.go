package sdk

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// timingSamples collects response times keyed by request id and reports
// them to the backend on a later request. Draining is best effort: a
// sample recorded while a drain is in progress may be sent late or lost.
type timingSamples struct {
	samples sync.Map // request id -> time.Duration
}

func (t *timingSamples) record(requestID string, d time.Duration) {
	if requestID == "" {
		return
	}
	t.samples.Store(requestID, d)
}

// drain removes the current samples and renders them as
// "id:millis,id:millis" in id order. It returns "" when there are none.
func (t *timingSamples) drain() string {
	var parts []string
	t.samples.Range(func(k, v any) bool {
		t.samples.Delete(k)
		parts = append(parts, k.(string)+":"+strconv.FormatInt(v.(time.Duration).Milliseconds(), 10))
		return true
	})
	sort.Strings(parts)
	return strings.Join(parts, ",")
}
