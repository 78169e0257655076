package tasks

import (
	"fmt"
	"marketplace/util"
	"strings"
	"sync"
	"time"
)

// Progress stores the state of the audit task across rounds.
type Progress struct {
	mu        sync.Mutex
	startedAt time.Time
	rounds    util.SafeCounter
	// fingerprint of the listing set seen by the last round.
	fingerprint string
	// alerted is the fingerprint a violation mail was sent for, so that an
	// unchanged broken listing set is mailed once.
	alerted string
}

func newProgress() *Progress {
	return &Progress{startedAt: time.Now()}
}

// update records r and reports whether the listing set changed and whether
// its violations still need to be mailed.
func (p *Progress) update(r *Report) (changed bool, notify bool) {
	p.rounds.Add(1)

	p.mu.Lock()
	defer p.mu.Unlock()

	changed = r.Fingerprint != p.fingerprint
	p.fingerprint = r.Fingerprint

	if len(r.Violations) == 0 {
		p.alerted = ""
		return changed, false
	}

	notify = p.alerted != r.Fingerprint
	p.alerted = r.Fingerprint
	return changed, notify
}

func (p *Progress) summary(r *Report) string {
	return fmt.Sprintf("audit #%d: %d listings, %d violations in %v (uptime %s)",
		p.rounds.Get(), r.Listings, len(r.Violations), r.Elapsed.Round(time.Millisecond), util.Uptime(p.startedAt))
}

func violationMail(r *Report) string {
	lines := make([]string, 0, len(r.Violations)+1)
	lines = append(lines, fmt.Sprintf("%d of %d listings are not backed by their custody:", len(r.Violations), r.Listings))
	for _, v := range r.Violations {
		lines = append(lines, v.String())
	}
	return strings.Join(lines, "\n")
}
