// Package swap implements the swap-request lifecycle: proposal, the owner's
// response, courier selection, shipping hand-off, and the completion that
// settles items and reward points.
//
// The service validates ownership and status preconditions; the store applies
// every transition as a compare-and-set so concurrent requests against the
// same swap cannot double-apply a step.
package swap

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rewear-collective/rewear/internal/app/shipping"
	"github.com/rewear-collective/rewear/internal/domain"
	"github.com/rewear-collective/rewear/internal/infra/observability"
)

// ─── Store Interfaces ───────────────────────────────────────────────────────
// Infrastructure implements these; the service depends on nothing concrete.

// Store owns SwapRequest persistence. Transition methods commit only when the
// row is still in the required status and report domain.ErrInvalidTransition
// otherwise. CompleteSwap applies the request, both items, and both point
// credits as one atomic unit; its bool reports whether side effects ran.
type Store interface {
	InsertSwap(req *domain.SwapRequest) error
	GetSwap(id string) (*domain.SwapRequest, error)
	ListReceived(ownerID string) ([]domain.SwapRequest, error)
	ListSent(requesterID string) ([]domain.SwapRequest, error)
	ListAllSwaps() ([]domain.SwapRequest, error)
	TransitionSwap(id string, from, to domain.SwapStatus) (*domain.SwapRequest, error)
	SelectCourierForSwap(id string, courier domain.CourierSelection, details domain.ShippingDetails) (*domain.SwapRequest, error)
	MarkSwapShipped(id, trackingID string) (*domain.SwapRequest, error)
	CompleteSwap(id string, reward int64) (*domain.SwapRequest, bool, error)
}

// Catalog is the item catalog collaborator. The service reads ownership and
// availability; item status changes happen inside the store's completion.
type Catalog interface {
	GetItem(id string) (*domain.Item, error)
}

// Directory resolves members, used for shipping addresses.
type Directory interface {
	GetMember(id string) (*domain.Member, error)
}

// Service is the swap ledger.
type Service struct {
	store   Store
	catalog Catalog
	members Directory
	quotes  *shipping.Coordinator
}

// NewService creates the swap service.
func NewService(store Store, catalog Catalog, members Directory, quotes *shipping.Coordinator) *Service {
	return &Service{store: store, catalog: catalog, members: members, quotes: quotes}
}

// ─── Operations ─────────────────────────────────────────────────────────────

// Create proposes a swap: the requester offers one of their approved items
// for someone else's approved item. At most one request for the same
// (requester, requested, offered) triple may be active at a time.
func (s *Service) Create(requesterID, requestedItemID, offeredItemID, message string) (*domain.SwapRequest, error) {
	requested, err := s.catalog.GetItem(requestedItemID)
	if err != nil {
		return nil, err
	}
	offered, err := s.catalog.GetItem(offeredItemID)
	if err != nil {
		return nil, err
	}

	if offered.OwnerID != requesterID {
		return nil, fmt.Errorf("%w: you can only offer your own items", domain.ErrPreconditionFailed)
	}
	if requested.OwnerID == requesterID {
		return nil, fmt.Errorf("%w: cannot request your own item", domain.ErrPreconditionFailed)
	}
	if requested.Status != domain.ItemApproved || offered.Status != domain.ItemApproved {
		return nil, fmt.Errorf("%w: both items must be approved for swapping", domain.ErrPreconditionFailed)
	}

	now := time.Now()
	req := &domain.SwapRequest{
		ID:              uuid.New().String(),
		RequesterID:     requesterID,
		RequestedItemID: requestedItemID,
		OfferedItemID:   offeredItemID,
		Status:          domain.SwapPending,
		Message:         message,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.InsertSwap(req); err != nil {
		return nil, err
	}
	observability.SwapsCreated.Inc()
	return req, nil
}

// Respond lets the owner of the requested item accept or reject a pending
// request. On acceptance the shipping coordinator is consulted and its quotes
// returned so the parties can pick a courier; the quotes themselves are not
// persisted.
func (s *Service) Respond(requestID, callerID string, decision domain.SwapStatus) (*domain.SwapRequest, []domain.CourierQuote, error) {
	decision, err := normalizeDecision(decision)
	if err != nil {
		return nil, nil, err
	}

	req, err := s.store.GetSwap(requestID)
	if err != nil {
		return nil, nil, err
	}
	requested, err := s.catalog.GetItem(req.RequestedItemID)
	if err != nil {
		return nil, nil, err
	}
	if requested.OwnerID != callerID {
		return nil, nil, fmt.Errorf("%w: only the item owner may respond", domain.ErrForbidden)
	}

	updated, err := s.store.TransitionSwap(requestID, domain.SwapPending, decision)
	if err != nil {
		return nil, nil, err
	}
	observability.SwapTransitions.WithLabelValues(string(decision)).Inc()

	if decision != domain.SwapAccepted {
		return updated, nil, nil
	}
	// The acceptance is already committed; quotes are advisory and can be
	// recomputed via CourierOptions, so a quoting failure must not turn a
	// persisted transition into an error.
	quotes, _, _, err := s.quoteFor(updated)
	if err != nil {
		return updated, nil, nil
	}
	return updated, quotes, nil
}

// CourierOptions recomputes the quotes for an accepted swap, along with the
// resolved addresses of both parties. Only the two parties may look.
func (s *Service) CourierOptions(requestID, callerID string) ([]domain.CourierQuote, domain.ShippingDetails, error) {
	req, err := s.store.GetSwap(requestID)
	if err != nil {
		return nil, domain.ShippingDetails{}, err
	}
	if err := s.requireParty(req, callerID); err != nil {
		return nil, domain.ShippingDetails{}, err
	}

	quotes, reqAddr, ownAddr, err := s.quoteFor(req)
	if err != nil {
		return nil, domain.ShippingDetails{}, err
	}
	return quotes, domain.ShippingDetails{RequesterAddress: reqAddr, OwnerAddress: ownAddr}, nil
}

// SelectCourier stores the chosen carrier and shipping addresses and moves
// the request from accepted to courier_selected. The carrier must be in the
// catalog; its cost is recomputed server-side rather than trusted from the
// request body.
func (s *Service) SelectCourier(requestID, callerID, carrierName string, details domain.ShippingDetails) (*domain.SwapRequest, error) {
	req, err := s.store.GetSwap(requestID)
	if err != nil {
		return nil, err
	}
	if err := s.requireParty(req, callerID); err != nil {
		return nil, err
	}

	carrier, ok := s.quotes.Find(carrierName)
	if !ok {
		return nil, fmt.Errorf("%w: unknown courier service %q", domain.ErrPreconditionFailed, carrierName)
	}

	// No addresses in the request body means quote from the profiles,
	// the same way CourierOptions does.
	var (
		quotes           []domain.CourierQuote
		reqAddr, ownAddr domain.Address
	)
	if details.RequesterAddress.Empty() && details.OwnerAddress.Empty() {
		quotes, reqAddr, ownAddr, err = s.quoteFor(req)
		if err != nil {
			return nil, err
		}
	} else {
		quotes, reqAddr, ownAddr = s.quotes.Quote(details.RequesterAddress, details.OwnerAddress)
	}

	var chosen domain.CourierQuote
	for _, q := range quotes {
		if q.Name == carrier.Name {
			chosen = q
			break
		}
	}

	updated, err := s.store.SelectCourierForSwap(requestID,
		domain.CourierSelection{
			Name:              chosen.Name,
			Cost:              chosen.TotalCost,
			EstimatedDelivery: chosen.EstimatedDays,
		},
		domain.ShippingDetails{RequesterAddress: reqAddr, OwnerAddress: ownAddr})
	if err != nil {
		return nil, err
	}
	observability.SwapTransitions.WithLabelValues(string(domain.SwapCourierSelected)).Inc()
	return updated, nil
}

// MarkShipped records the carrier's tracking id and moves the request from
// courier_selected to items_shipped.
func (s *Service) MarkShipped(requestID, callerID, trackingID string) (*domain.SwapRequest, error) {
	if trackingID == "" {
		return nil, fmt.Errorf("%w: tracking id required", domain.ErrPreconditionFailed)
	}
	req, err := s.store.GetSwap(requestID)
	if err != nil {
		return nil, err
	}
	if err := s.requireParty(req, callerID); err != nil {
		return nil, err
	}

	updated, err := s.store.MarkSwapShipped(requestID, trackingID)
	if err != nil {
		return nil, err
	}
	observability.SwapTransitions.WithLabelValues(string(domain.SwapItemsShipped)).Inc()
	return updated, nil
}

// Complete settles a shipped swap: the request becomes completed, both items
// become swapped, and both parties earn their reward — atomically. Completing
// an already-completed request reports success without crediting again.
func (s *Service) Complete(requestID, callerID string) (*domain.SwapRequest, error) {
	req, err := s.store.GetSwap(requestID)
	if err != nil {
		return nil, err
	}
	if err := s.requireParty(req, callerID); err != nil {
		return nil, err
	}

	updated, credited, err := s.store.CompleteSwap(requestID, domain.SwapReward)
	if err != nil {
		return nil, err
	}
	if credited {
		observability.SwapTransitions.WithLabelValues(string(domain.SwapCompleted)).Inc()
		observability.PointsCredited.WithLabelValues("swap").Add(float64(2 * domain.SwapReward))
	}
	return updated, nil
}

// Cancel withdraws a request. Only the requester may cancel, and only while
// the swap has not progressed past acceptance; it has no effect on points or
// item availability.
func (s *Service) Cancel(requestID, callerID string) (*domain.SwapRequest, error) {
	req, err := s.store.GetSwap(requestID)
	if err != nil {
		return nil, err
	}
	if req.RequesterID != callerID {
		return nil, fmt.Errorf("%w: only the requester may cancel", domain.ErrForbidden)
	}
	if !domain.CanTransition(req.Status, domain.SwapCancelled) {
		return nil, domain.ErrInvalidTransition
	}

	updated, err := s.store.TransitionSwap(requestID, req.Status, domain.SwapCancelled)
	if err != nil {
		return nil, err
	}
	observability.SwapTransitions.WithLabelValues(string(domain.SwapCancelled)).Inc()
	return updated, nil
}

// Get returns a swap request visible to one of its parties.
func (s *Service) Get(requestID, callerID string) (*domain.SwapRequest, error) {
	req, err := s.store.GetSwap(requestID)
	if err != nil {
		return nil, err
	}
	if err := s.requireParty(req, callerID); err != nil {
		return nil, err
	}
	return req, nil
}

// Received lists requests targeting the caller's items.
func (s *Service) Received(callerID string) ([]domain.SwapRequest, error) {
	return s.store.ListReceived(callerID)
}

// Sent lists requests the caller has made.
func (s *Service) Sent(callerID string) ([]domain.SwapRequest, error) {
	return s.store.ListSent(callerID)
}

// All lists every swap request (admin surface).
func (s *Service) All() ([]domain.SwapRequest, error) {
	return s.store.ListAllSwaps()
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// normalizeDecision maps a response decision to its canonical status. The
// web client historically sent "declined"; the ledger stores "rejected".
func normalizeDecision(decision domain.SwapStatus) (domain.SwapStatus, error) {
	switch decision {
	case domain.SwapAccepted, domain.SwapRejected:
		return decision, nil
	case "declined":
		return domain.SwapRejected, nil
	}
	return "", fmt.Errorf("%w: decision must be accepted or rejected", domain.ErrPreconditionFailed)
}

// requireParty permits only the requester or the requested item's owner.
func (s *Service) requireParty(req *domain.SwapRequest, callerID string) error {
	if req.RequesterID == callerID {
		return nil
	}
	requested, err := s.catalog.GetItem(req.RequestedItemID)
	if err != nil {
		return err
	}
	if requested.OwnerID == callerID {
		return nil
	}
	return fmt.Errorf("%w: not a party to this swap", domain.ErrForbidden)
}

// quoteFor resolves both parties' profile addresses and asks the coordinator
// for quotes. Each produced quote feeds the cost histogram.
func (s *Service) quoteFor(req *domain.SwapRequest) ([]domain.CourierQuote, domain.Address, domain.Address, error) {
	requester, err := s.members.GetMember(req.RequesterID)
	if err != nil {
		return nil, domain.Address{}, domain.Address{}, err
	}
	requested, err := s.catalog.GetItem(req.RequestedItemID)
	if err != nil {
		return nil, domain.Address{}, domain.Address{}, err
	}
	owner, err := s.members.GetMember(requested.OwnerID)
	if err != nil {
		return nil, domain.Address{}, domain.Address{}, err
	}

	quotes, reqAddr, ownAddr := s.quotes.Quote(requester.Address, owner.Address)
	for _, q := range quotes {
		observability.CourierQuoteCost.Observe(q.TotalCost)
	}
	return quotes, reqAddr, ownAddr, nil
}
