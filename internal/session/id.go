package session

import (
	"fmt"
	"regexp"
	"sync/atomic"
	"time"
)

// idSeq disambiguates sessions created within the same clock second.
// Timestamp-only ids silently collide under rapid creation; the
// monotonic suffix keeps ids unique while staying sortable by creation
// time.
var idSeq atomic.Uint64

// newSessionID returns a timestamp-derived id with a monotonic counter
// suffix, e.g. "20240131T154205-7".
func newSessionID(now time.Time) string {
	return fmt.Sprintf("%s-%d", now.UTC().Format("20060102T150405"), idSeq.Add(1))
}

// nameRe matches strings safe to use as a single path component.
var nameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// validateName rejects owner/feature/session-id values that could
// escape the store root when joined into a path.
func validateName(kind, name string) error {
	if !nameRe.MatchString(name) || len(name) > 128 {
		return fmt.Errorf("%w: %s %q", ErrInvalidName, kind, name)
	}
	return nil
}
