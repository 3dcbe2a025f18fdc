// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of clean architecture — it depends on nothing.
package domain

import "time"

// ─── Member Types ───────────────────────────────────────────────────────────

// Member is a participant of the exchange community.
type Member struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Points    int64     `json:"points"`
	IsAdmin   bool      `json:"is_admin"`
	Address   Address   `json:"address"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Address is a postal address used for shipping quotes.
type Address struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	ZipCode string `json:"zip_code,omitempty"`
	Country string `json:"country,omitempty"`
}

// Empty reports whether the address carries no usable locality at all.
func (a Address) Empty() bool {
	return a.City == "" && a.State == "" && a.ZipCode == ""
}

// ─── Points Rewards ─────────────────────────────────────────────────────────
// Reward amounts for sustainable actions. Points are only ever credited.

const (
	ListingReward  int64 = 5  // listing a garment
	SwapReward     int64 = 10 // each party of a completed swap
	DonationReward int64 = 15 // donation approved by a partner NGO
)

// ─── Item Types ─────────────────────────────────────────────────────────────

// ItemStatus is the availability status of a listed garment.
type ItemStatus string

const (
	ItemPending  ItemStatus = "pending"  // listed, awaiting admin approval
	ItemApproved ItemStatus = "approved" // visible and swappable
	ItemSwapped  ItemStatus = "swapped"  // handed off through a completed swap
	ItemRedeemed ItemStatus = "redeemed" // claimed with points
)

// ValidItemStatus reports whether s is a known item status.
func ValidItemStatus(s ItemStatus) bool {
	switch s {
	case ItemPending, ItemApproved, ItemSwapped, ItemRedeemed:
		return true
	}
	return false
}

// Item is a listed garment in the catalog.
type Item struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Size        string     `json:"size,omitempty"`
	Category    string     `json:"category,omitempty"`
	Status      ItemStatus `json:"status"`
	PointValue  int64      `json:"point_value"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ─── Swap Request Types ─────────────────────────────────────────────────────

// SwapStatus is the lifecycle status of a swap request.
type SwapStatus string

const (
	SwapPending         SwapStatus = "pending"
	SwapAccepted        SwapStatus = "accepted"
	SwapRejected        SwapStatus = "rejected"
	SwapCourierSelected SwapStatus = "courier_selected"
	SwapItemsShipped    SwapStatus = "items_shipped"
	SwapCompleted       SwapStatus = "completed"
	SwapCancelled       SwapStatus = "cancelled"
)

// Terminal reports whether no further transition is defined from s.
func (s SwapStatus) Terminal() bool {
	switch s {
	case SwapRejected, SwapCompleted, SwapCancelled:
		return true
	}
	return false
}

// swapTransitions is the single source of truth for the lifecycle graph.
// Cancellation is restricted to the pre-shipping states: once a courier
// is booked the exchange is in flight and must run to completion.
var swapTransitions = map[SwapStatus][]SwapStatus{
	SwapPending:         {SwapAccepted, SwapRejected, SwapCancelled},
	SwapAccepted:        {SwapCourierSelected, SwapCancelled},
	SwapCourierSelected: {SwapItemsShipped},
	SwapItemsShipped:    {SwapCompleted},
}

// CanTransition reports whether the lifecycle graph permits from → to.
func CanTransition(from, to SwapStatus) bool {
	for _, next := range swapTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CourierSelection is the quote a party chose for the exchange, plus the
// tracking id assigned once the parcels are handed to the carrier.
type CourierSelection struct {
	Name              string  `json:"name"`
	Cost              float64 `json:"cost"`
	EstimatedDelivery string  `json:"estimated_delivery"`
	TrackingID        string  `json:"tracking_id,omitempty"`
}

// ShippingDetails holds both parties' addresses for a swap in transit.
type ShippingDetails struct {
	RequesterAddress Address `json:"requester_address"`
	OwnerAddress     Address `json:"owner_address"`
}

// SwapRequest is a proposed two-party exchange of listed items.
type SwapRequest struct {
	ID              string            `json:"id"`
	RequesterID     string            `json:"requester_id"`
	RequestedItemID string            `json:"requested_item_id"`
	OfferedItemID   string            `json:"offered_item_id"`
	Status          SwapStatus        `json:"status"`
	Message         string            `json:"message,omitempty"`
	Courier         *CourierSelection `json:"courier,omitempty"`
	Shipping        *ShippingDetails  `json:"shipping,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// ─── Courier Quote Types ────────────────────────────────────────────────────

// Carrier is an entry in the fixed carrier catalog.
type Carrier struct {
	Name          string  `json:"name"`
	BaseCost      float64 `json:"base_cost"`
	CostPerKm     float64 `json:"cost_per_km"`
	EstimatedDays string  `json:"estimated_days"`
}

// CourierQuote is a carrier's estimate for shipping between two addresses.
// Quotes are ephemeral; only the selection a party makes is persisted.
type CourierQuote struct {
	Carrier
	TotalCost  float64 `json:"total_cost"`
	DistanceKm float64 `json:"distance_km"`
}
