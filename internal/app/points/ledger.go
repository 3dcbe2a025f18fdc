// Package points is the reward ledger: a non-negative balance per member,
// credited for sustainable actions and never debited.
package points

import (
	"fmt"

	"github.com/rewear-collective/rewear/internal/domain"
	"github.com/rewear-collective/rewear/internal/infra/observability"
)

// Reason labels why a credit was issued.
type Reason string

const (
	ReasonListing  Reason = "listing"
	ReasonSwap     Reason = "swap"
	ReasonDonation Reason = "donation"
)

// Store is the persistence the ledger needs. The sqlite store's credit is a
// single additive UPDATE, so concurrent credits to one member always sum.
type Store interface {
	CreditPoints(memberID string, amount int64) error
	GetMember(id string) (*domain.Member, error)
}

// Ledger exposes the points operations.
type Ledger struct {
	store Store
}

// NewLedger creates a Ledger over the given store.
func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// Credit adds amount points to a member's balance. Amount must be positive;
// the ledger has no debit operation.
func (l *Ledger) Credit(memberID string, amount int64, reason Reason) error {
	if amount <= 0 {
		return fmt.Errorf("%w: credit amount must be positive, got %d", domain.ErrPreconditionFailed, amount)
	}
	if err := l.store.CreditPoints(memberID, amount); err != nil {
		return err
	}
	observability.PointsCredited.WithLabelValues(string(reason)).Add(float64(amount))
	return nil
}

// Balance returns a member's current points balance.
func (l *Ledger) Balance(memberID string) (int64, error) {
	m, err := l.store.GetMember(memberID)
	if err != nil {
		return 0, err
	}
	return m.Points, nil
}
