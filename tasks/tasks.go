package tasks

import (
	"context"
	"marketplace/config"
	"marketplace/db"
	"marketplace/log"
	"marketplace/mail"
	"time"
)

// nonceSweepInterval is how often expired request nonces are deleted.
const nonceSweepInterval = 10 * time.Minute

// Run starts the background custody audit and the nonce sweeper.
func Run() {
	go startNonceTask()

	if config.GetAuditInterval() == 0 {
		log.Printf("Custody audit is disabled.")
		return
	}

	go startAuditTask()
}

func startAuditTask() {
	defer mail.AlertIfErr()

	progress := newProgress()

	for {
		// Read every round so that a config reload takes effect.
		interval := config.GetAuditInterval()
		if interval == 0 {
			log.Printf("Custody audit stopped.")
			return
		}

		time.Sleep(interval)
		auditOnce(progress)
	}
}

func auditOnce(progress *Progress) {
	ctx, cancel := context.WithTimeout(context.Background(), config.GetAuditInterval())
	defer cancel()

	r, err := Audit(ctx, config.GetGoroutines())
	if err != nil {
		log.Error.Printf("custody audit failed: %v", err)
		return
	}

	changed, notify := progress.update(r)
	if changed {
		log.Printf("Listing set changed, fingerprint=%s", r.Fingerprint)
	}

	if len(r.Violations) == 0 {
		log.Println(progress.summary(r))
		return
	}

	for _, v := range r.Violations {
		log.Error.Printf("custody violation %s", v)
	}
	log.Error.Println(progress.summary(r))

	if notify {
		mail.SendNotify("Custody violation", violationMail(r))
	}
}

func startNonceTask() {
	defer mail.AlertIfErr()

	for {
		time.Sleep(nonceSweepInterval)
		sweepNonces(time.Now())
	}
}

func sweepNonces(now time.Time) int64 {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := db.PruneNonces(ctx, now)
	if err != nil {
		log.Error.Printf("nonce sweep failed: %v", err)
		return 0
	}

	if n > 0 {
		log.Printf("Pruned %d expired request nonces", n)
	}
	return n
}
