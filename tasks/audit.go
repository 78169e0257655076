package tasks

import (
	"context"
	"encoding/hex"
	"fmt"
	"marketplace/db"
	"marketplace/market"
	"marketplace/pda"
	"marketplace/sale"
	"marketplace/token"
	"marketplace/util"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gammazero/workerpool"
)

// Violation is a listing whose custody does not hold what the record claims.
type Violation struct {
	Mint   string
	Reason string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Mint, v.Reason)
}

// Report is the outcome of one audit round.
type Report struct {
	Listings   int
	Violations []Violation
	// Fingerprint identifies the set of active listings.
	Fingerprint string
	Elapsed     time.Duration
}

// Audit checks the custody of every active listing using workers goroutines.
func Audit(ctx context.Context, workers int) (*Report, error) {
	start := time.Now()

	listings, err := db.GetAllListings(ctx)
	if err != nil {
		return nil, err
	}

	if workers < 1 {
		workers = 1
	}

	var (
		mu         sync.Mutex
		violations []Violation
	)

	programID := market.ProgramID()
	wp := workerpool.New(workers)

	for _, l := range listings {
		l := l
		wp.Submit(func() {
			reason, err := checkCustody(ctx, programID, l)
			if err != nil {
				reason = "cannot load custody: " + err.Error()
			}
			if reason == "" {
				return
			}

			mu.Lock()
			violations = append(violations, Violation{Mint: l.Mint.String(), Reason: reason})
			mu.Unlock()
		})
	}

	wp.StopWait()

	sort.Slice(violations, func(i, j int) bool {
		return violations[i].Mint < violations[j].Mint
	})

	return &Report{
		Listings:    len(listings),
		Violations:  violations,
		Fingerprint: fingerprint(listings),
		Elapsed:     time.Since(start),
	}, nil
}

// checkCustody returns why l is not backed by its custody, or "" if it is.
func checkCustody(ctx context.Context, programID solana.PublicKey, l *sale.Listing) (string, error) {
	if l.Price == 0 {
		return "zero price", nil
	}

	addr, bump, err := pda.Custody(programID, l.Mint)
	if err != nil {
		return "", err
	}
	if !addr.Equals(l.Address) {
		return fmt.Sprintf("custody %s is not derived from the mint, expected %s", l.Address, addr), nil
	}
	if bump != l.Bump {
		return fmt.Sprintf("bump %d is not canonical, expected %d", l.Bump, bump), nil
	}

	ata, err := pda.AssociatedToken(addr, l.Mint)
	if err != nil {
		return "", err
	}
	if !ata.Equals(l.Custody) {
		return fmt.Sprintf("custody account %s, expected %s", l.Custody, ata), nil
	}

	acc, err := db.GetTokenAccount(ctx, ata)
	if token.IsNotFound(err) {
		return "custody account is missing", nil
	}
	if err != nil {
		return "", err
	}

	switch {
	case !acc.Owner.Equals(addr):
		return fmt.Sprintf("custody account owned by %s", acc.Owner), nil
	case !acc.Mint.Equals(l.Mint):
		return fmt.Sprintf("custody account holds mint %s", acc.Mint), nil
	case acc.Amount != 1:
		return fmt.Sprintf("custody account holds %d units", acc.Amount), nil
	}

	return "", nil
}

// fingerprint hashes the listing set in mint order.
func fingerprint(listings []*sale.Listing) string {
	buf := make([]byte, 0, len(listings)*(32+32+20))
	for _, l := range listings {
		buf = append(buf, l.Mint[:]...)
		buf = append(buf, l.Seller[:]...)
		buf = strconv.AppendUint(buf, l.Price, 10)
	}
	return hex.EncodeToString(util.Hash160(buf))
}
