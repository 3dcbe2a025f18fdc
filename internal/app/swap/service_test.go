package swap

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rewear-collective/rewear/internal/app/shipping"
	"github.com/rewear-collective/rewear/internal/domain"
	"github.com/rewear-collective/rewear/internal/infra/sqlite"
)

// fixture is two members with one approved item each.
type fixture struct {
	svc       *Service
	db        *sqlite.DB
	requester *domain.Member
	owner     *domain.Member
	requested *domain.Item // owned by owner
	offered   *domain.Item // owned by requester
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		db:        db,
		svc:       NewService(db, db, db, shipping.New()),
		requester: addMember(t, db, "bala"),
		owner:     addMember(t, db, "asha"),
	}
	f.requested = addItem(t, db, f.owner.ID, domain.ItemApproved)
	f.offered = addItem(t, db, f.requester.ID, domain.ItemApproved)
	return f
}

func addMember(t *testing.T, db *sqlite.DB, name string) *domain.Member {
	t.Helper()
	m := &domain.Member{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     name + "@example.com",
		Address:   domain.Address{City: "Bhubaneswar", State: "Odisha", ZipCode: "751001"},
		CreatedAt: time.Now(),
	}
	if err := db.CreateMember(m); err != nil {
		t.Fatalf("create member: %v", err)
	}
	return m
}

func addItem(t *testing.T, db *sqlite.DB, ownerID string, status domain.ItemStatus) *domain.Item {
	t.Helper()
	it := &domain.Item{
		ID:         uuid.New().String(),
		OwnerID:    ownerID,
		Title:      "kurta",
		Status:     status,
		PointValue: 10,
		CreatedAt:  time.Now(),
	}
	if err := db.CreateItem(it); err != nil {
		t.Fatalf("create item: %v", err)
	}
	return it
}

func (f *fixture) create(t *testing.T) *domain.SwapRequest {
	t.Helper()
	req, err := f.svc.Create(f.requester.ID, f.requested.ID, f.offered.ID, "interested!")
	if err != nil {
		t.Fatalf("create swap: %v", err)
	}
	return req
}

// ─── Create ─────────────────────────────────────────────────────────────────

func TestCreate(t *testing.T) {
	f := setup(t)
	req := f.create(t)

	if req.Status != domain.SwapPending {
		t.Errorf("Status = %s, want pending", req.Status)
	}
	if req.ID == "" {
		t.Error("expected generated id")
	}
	if req.Message != "interested!" {
		t.Errorf("Message = %q", req.Message)
	}
}

func TestCreate_MissingItem(t *testing.T) {
	f := setup(t)
	if _, err := f.svc.Create(f.requester.ID, "missing", f.offered.ID, ""); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing requested item: err = %v, want ErrNotFound", err)
	}
	if _, err := f.svc.Create(f.requester.ID, f.requested.ID, "missing", ""); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing offered item: err = %v, want ErrNotFound", err)
	}
}

func TestCreate_OwnershipInvariants(t *testing.T) {
	f := setup(t)

	// Offering someone else's item.
	notMine := addItem(t, f.db, f.owner.ID, domain.ItemApproved)
	if _, err := f.svc.Create(f.requester.ID, f.requested.ID, notMine.ID, ""); !errors.Is(err, domain.ErrPreconditionFailed) {
		t.Errorf("offered not owned: err = %v, want ErrPreconditionFailed", err)
	}

	// Requesting one's own item.
	mine := addItem(t, f.db, f.requester.ID, domain.ItemApproved)
	if _, err := f.svc.Create(f.requester.ID, mine.ID, f.offered.ID, ""); !errors.Is(err, domain.ErrPreconditionFailed) {
		t.Errorf("requested own item: err = %v, want ErrPreconditionFailed", err)
	}
}

func TestCreate_RequiresApprovedItems(t *testing.T) {
	f := setup(t)

	pendingItem := addItem(t, f.db, f.owner.ID, domain.ItemPending)
	if _, err := f.svc.Create(f.requester.ID, pendingItem.ID, f.offered.ID, ""); !errors.Is(err, domain.ErrPreconditionFailed) {
		t.Errorf("pending requested item: err = %v, want ErrPreconditionFailed", err)
	}

	swappedOffer := addItem(t, f.db, f.requester.ID, domain.ItemSwapped)
	if _, err := f.svc.Create(f.requester.ID, f.requested.ID, swappedOffer.ID, ""); !errors.Is(err, domain.ErrPreconditionFailed) {
		t.Errorf("swapped offered item: err = %v, want ErrPreconditionFailed", err)
	}
}

func TestCreate_DuplicateActive(t *testing.T) {
	f := setup(t)
	f.create(t)

	if _, err := f.svc.Create(f.requester.ID, f.requested.ID, f.offered.ID, "again"); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}

func TestCreate_AfterTerminalSucceeds(t *testing.T) {
	f := setup(t)
	req := f.create(t)

	if _, _, err := f.svc.Respond(req.ID, f.owner.ID, domain.SwapRejected); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := f.svc.Create(f.requester.ID, f.requested.ID, f.offered.ID, "second try"); err != nil {
		t.Errorf("re-create after rejection: %v", err)
	}
}

// ─── Respond ────────────────────────────────────────────────────────────────

func TestRespond_AcceptReturnsQuotes(t *testing.T) {
	f := setup(t)
	req := f.create(t)

	updated, quotes, err := f.svc.Respond(req.ID, f.owner.ID, domain.SwapAccepted)
	if err != nil {
		t.Fatalf("Respond() error: %v", err)
	}
	if updated.Status != domain.SwapAccepted {
		t.Errorf("Status = %s, want accepted", updated.Status)
	}
	if len(quotes) == 0 {
		t.Error("expected courier quotes on acceptance")
	}
}

func TestRespond_RejectReturnsNoQuotes(t *testing.T) {
	f := setup(t)
	req := f.create(t)

	updated, quotes, err := f.svc.Respond(req.ID, f.owner.ID, domain.SwapRejected)
	if err != nil {
		t.Fatalf("Respond() error: %v", err)
	}
	if updated.Status != domain.SwapRejected {
		t.Errorf("Status = %s, want rejected", updated.Status)
	}
	if quotes != nil {
		t.Error("rejection should not produce quotes")
	}
}

// The web client's legacy "declined" value is stored as rejected.
func TestRespond_DeclinedNormalizedToRejected(t *testing.T) {
	f := setup(t)
	req := f.create(t)

	updated, _, err := f.svc.Respond(req.ID, f.owner.ID, "declined")
	if err != nil {
		t.Fatalf("Respond() error: %v", err)
	}
	if updated.Status != domain.SwapRejected {
		t.Errorf("Status = %s, want rejected", updated.Status)
	}
}

// failingDirectory cannot resolve any member, so quoting always fails.
type failingDirectory struct{}

func (failingDirectory) GetMember(id string) (*domain.Member, error) {
	return nil, domain.ErrNotFound
}

// A quoting failure after the acceptance has committed must not surface as
// an error: the caller gets the accepted request with no quotes and can
// recover them through CourierOptions.
func TestRespond_AcceptSurvivesQuoteFailure(t *testing.T) {
	f := setup(t)
	req := f.create(t)

	svc := NewService(f.db, f.db, failingDirectory{}, shipping.New())
	updated, quotes, err := svc.Respond(req.ID, f.owner.ID, domain.SwapAccepted)
	if err != nil {
		t.Fatalf("Respond() error: %v", err)
	}
	if updated.Status != domain.SwapAccepted {
		t.Errorf("Status = %s, want accepted", updated.Status)
	}
	if quotes != nil {
		t.Error("expected no quotes when addresses cannot be resolved")
	}

	got, err := f.db.GetSwap(req.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.SwapAccepted {
		t.Errorf("persisted status = %s, want accepted", got.Status)
	}
}

func TestRespond_OnlyOwner(t *testing.T) {
	f := setup(t)
	req := f.create(t)

	for _, caller := range []string{f.requester.ID, addMember(t, f.db, "chand").ID} {
		if _, _, err := f.svc.Respond(req.ID, caller, domain.SwapAccepted); !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("caller %s: err = %v, want ErrForbidden", caller, err)
		}
	}
}

func TestRespond_InvalidDecision(t *testing.T) {
	f := setup(t)
	req := f.create(t)

	if _, _, err := f.svc.Respond(req.ID, f.owner.ID, "completed"); !errors.Is(err, domain.ErrPreconditionFailed) {
		t.Errorf("err = %v, want ErrPreconditionFailed", err)
	}
}

func TestRespond_RequiresPending(t *testing.T) {
	f := setup(t)
	req := f.create(t)

	if _, _, err := f.svc.Respond(req.ID, f.owner.ID, domain.SwapAccepted); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, _, err := f.svc.Respond(req.ID, f.owner.ID, domain.SwapAccepted); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("second respond: err = %v, want ErrInvalidTransition", err)
	}
}

// ─── Lifecycle ──────────────────────────────────────────────────────────────

// The §8 walk: the only path to completed, with side effects checked.
func TestFullLifecycle(t *testing.T) {
	f := setup(t)
	req := f.create(t)

	if _, _, err := f.svc.Respond(req.ID, f.owner.ID, domain.SwapAccepted); err != nil {
		t.Fatalf("respond: %v", err)
	}

	updated, err := f.svc.SelectCourier(req.ID, f.owner.ID, "DTDC", domain.ShippingDetails{
		RequesterAddress: f.requester.Address,
		OwnerAddress:     f.owner.Address,
	})
	if err != nil {
		t.Fatalf("select courier: %v", err)
	}
	if updated.Status != domain.SwapCourierSelected {
		t.Errorf("Status = %s, want courier_selected", updated.Status)
	}
	if updated.Courier == nil || updated.Courier.Name != "DTDC" {
		t.Errorf("Courier = %+v, want DTDC", updated.Courier)
	}

	updated, err = f.svc.MarkShipped(req.ID, f.requester.ID, "TRK1")
	if err != nil {
		t.Fatalf("mark shipped: %v", err)
	}
	if updated.Status != domain.SwapItemsShipped {
		t.Errorf("Status = %s, want items_shipped", updated.Status)
	}

	updated, err = f.svc.Complete(req.ID, f.owner.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if updated.Status != domain.SwapCompleted {
		t.Errorf("Status = %s, want completed", updated.Status)
	}

	for _, itemID := range []string{f.requested.ID, f.offered.ID} {
		it, _ := f.db.GetItem(itemID)
		if it.Status != domain.ItemSwapped {
			t.Errorf("item %s = %s, want swapped", itemID, it.Status)
		}
	}
	for _, m := range []*domain.Member{f.requester, f.owner} {
		got, _ := f.db.GetMember(m.ID)
		if got.Points != domain.SwapReward {
			t.Errorf("%s points = %d, want %d", m.Name, got.Points, domain.SwapReward)
		}
	}
}

func TestComplete_SkippingStepsFails(t *testing.T) {
	f := setup(t)
	req := f.create(t)

	// Straight from pending.
	if _, err := f.svc.Complete(req.ID, f.owner.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("complete from pending: err = %v, want ErrInvalidTransition", err)
	}

	// From accepted, without courier/shipping.
	if _, _, err := f.svc.Respond(req.ID, f.owner.ID, domain.SwapAccepted); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Complete(req.ID, f.owner.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("complete from accepted: err = %v, want ErrInvalidTransition", err)
	}
	if _, err := f.svc.MarkShipped(req.ID, f.requester.ID, "TRK1"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("ship before courier: err = %v, want ErrInvalidTransition", err)
	}
}

func TestComplete_Idempotent(t *testing.T) {
	f := setup(t)
	req := f.create(t)
	f.advanceToShipped(t, req.ID)

	if _, err := f.svc.Complete(req.ID, f.owner.ID); err != nil {
		t.Fatalf("first complete: %v", err)
	}
	updated, err := f.svc.Complete(req.ID, f.owner.ID)
	if err != nil {
		t.Fatalf("second complete: %v", err)
	}
	if updated.Status != domain.SwapCompleted {
		t.Errorf("Status = %s, want completed", updated.Status)
	}

	got, _ := f.db.GetMember(f.requester.ID)
	if got.Points != domain.SwapReward {
		t.Errorf("points = %d, want %d (credited exactly once)", got.Points, domain.SwapReward)
	}
}

func (f *fixture) advanceToShipped(t *testing.T, requestID string) {
	t.Helper()
	if _, _, err := f.svc.Respond(requestID, f.owner.ID, domain.SwapAccepted); err != nil {
		t.Fatalf("respond: %v", err)
	}
	if _, err := f.svc.SelectCourier(requestID, f.owner.ID, "India Post", domain.ShippingDetails{}); err != nil {
		t.Fatalf("select courier: %v", err)
	}
	if _, err := f.svc.MarkShipped(requestID, f.requester.ID, "TRK1"); err != nil {
		t.Fatalf("mark shipped: %v", err)
	}
}

// ─── Courier Options / Selection ────────────────────────────────────────────

func TestCourierOptions(t *testing.T) {
	f := setup(t)
	req := f.create(t)

	quotes, details, err := f.svc.CourierOptions(req.ID, f.requester.ID)
	if err != nil {
		t.Fatalf("CourierOptions() error: %v", err)
	}
	if len(quotes) == 0 {
		t.Fatal("expected quotes")
	}
	if details.RequesterAddress.City == "" || details.OwnerAddress.City == "" {
		t.Errorf("addresses not resolved: %+v", details)
	}

	if _, _, err := f.svc.CourierOptions(req.ID, addMember(t, f.db, "dev").ID); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("outsider: err = %v, want ErrForbidden", err)
	}
}

func TestSelectCourier_UnknownCarrier(t *testing.T) {
	f := setup(t)
	req := f.create(t)
	if _, _, err := f.svc.Respond(req.ID, f.owner.ID, domain.SwapAccepted); err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.SelectCourier(req.ID, f.owner.ID, "Carrier Pigeon", domain.ShippingDetails{}); !errors.Is(err, domain.ErrPreconditionFailed) {
		t.Errorf("err = %v, want ErrPreconditionFailed", err)
	}
}

// Carrier names resolve through the catalog case-insensitively and the
// stored selection carries the catalog's canonical name.
func TestSelectCourier_CarrierNameCaseInsensitive(t *testing.T) {
	f := setup(t)
	req := f.create(t)
	if _, _, err := f.svc.Respond(req.ID, f.owner.ID, domain.SwapAccepted); err != nil {
		t.Fatal(err)
	}

	updated, err := f.svc.SelectCourier(req.ID, f.owner.ID, "dtdc", domain.ShippingDetails{})
	if err != nil {
		t.Fatalf("SelectCourier() error: %v", err)
	}
	if updated.Courier == nil || updated.Courier.Name != "DTDC" {
		t.Errorf("Courier = %+v, want canonical name DTDC", updated.Courier)
	}
}

func TestSelectCourier_RequiresAccepted(t *testing.T) {
	f := setup(t)
	req := f.create(t)

	if _, err := f.svc.SelectCourier(req.ID, f.owner.ID, "DTDC", domain.ShippingDetails{}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestMarkShipped_RequiresTracking(t *testing.T) {
	f := setup(t)
	req := f.create(t)

	if _, err := f.svc.MarkShipped(req.ID, f.requester.ID, ""); !errors.Is(err, domain.ErrPreconditionFailed) {
		t.Errorf("err = %v, want ErrPreconditionFailed", err)
	}
}

// ─── Cancel ─────────────────────────────────────────────────────────────────

func TestCancel(t *testing.T) {
	f := setup(t)
	req := f.create(t)

	updated, err := f.svc.Cancel(req.ID, f.requester.ID)
	if err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}
	if updated.Status != domain.SwapCancelled {
		t.Errorf("Status = %s, want cancelled", updated.Status)
	}

	// No side effects on points or items.
	for _, m := range []*domain.Member{f.requester, f.owner} {
		got, _ := f.db.GetMember(m.ID)
		if got.Points != 0 {
			t.Errorf("%s points = %d, want 0", m.Name, got.Points)
		}
	}
	it, _ := f.db.GetItem(f.requested.ID)
	if it.Status != domain.ItemApproved {
		t.Errorf("item status = %s, want approved", it.Status)
	}
}

func TestCancel_OnlyRequester(t *testing.T) {
	f := setup(t)
	req := f.create(t)

	if _, err := f.svc.Cancel(req.ID, f.owner.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("err = %v, want ErrForbidden", err)
	}
}

func TestCancel_NotAfterCourierSelected(t *testing.T) {
	f := setup(t)
	req := f.create(t)

	if _, _, err := f.svc.Respond(req.ID, f.owner.ID, domain.SwapAccepted); err != nil {
		t.Fatal(err)
	}

	// Still allowed from accepted.
	if _, err := f.svc.Cancel(req.ID, f.requester.ID); err != nil {
		t.Fatalf("cancel from accepted: %v", err)
	}

	// Fresh request advanced to courier_selected: no longer cancellable.
	req2 := f.create(t)
	if _, _, err := f.svc.Respond(req2.ID, f.owner.ID, domain.SwapAccepted); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.SelectCourier(req2.ID, f.owner.ID, "DTDC", domain.ShippingDetails{}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Cancel(req2.ID, f.requester.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("err = %v, want ErrInvalidTransition", err)
	}
}

// ─── Listing ────────────────────────────────────────────────────────────────

func TestReceivedAndSent(t *testing.T) {
	f := setup(t)
	f.create(t)

	received, err := f.svc.Received(f.owner.ID)
	if err != nil {
		t.Fatalf("Received() error: %v", err)
	}
	if len(received) != 1 {
		t.Errorf("received = %d, want 1", len(received))
	}

	sent, err := f.svc.Sent(f.requester.ID)
	if err != nil {
		t.Fatalf("Sent() error: %v", err)
	}
	if len(sent) != 1 {
		t.Errorf("sent = %d, want 1", len(sent))
	}
}
