package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rewear-collective/rewear/internal/domain"
)

// ─── Swap Lifecycle Handlers ────────────────────────────────────────────────
//
// POST  /api/swaps/request              — propose a swap
// GET   /api/swaps/received             — requests for the caller's items
// GET   /api/swaps/sent                 — requests the caller made
// GET   /api/swaps/{id}                 — one request (parties only)
// PATCH /api/swaps/{id}/respond         — owner accepts or rejects
// GET   /api/swaps/{id}/courier-options — ranked quotes + addresses
// PATCH /api/swaps/{id}/select-courier  — pick a carrier, store addresses
// PATCH /api/swaps/{id}/ship            — record tracking id
// PATCH /api/swaps/{id}/complete        — settle items and points
// PATCH /api/swaps/{id}/cancel          — requester withdraws

// handleCreateSwap proposes a new swap request.
func (s *Server) handleCreateSwap(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RequestedItemID string `json:"requested_item_id"`
		OfferedItemID   string `json:"offered_item_id"`
		Message         string `json:"message"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if body.RequestedItemID == "" || body.OfferedItemID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "requested_item_id and offered_item_id are required")
		return
	}

	req, err := s.swaps.Create(caller(r).MemberID, body.RequestedItemID, body.OfferedItemID, body.Message)
	if err != nil {
		swapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// handleReceived lists requests targeting the caller's items.
func (s *Server) handleReceived(w http.ResponseWriter, r *http.Request) {
	reqs, err := s.swaps.Received(caller(r).MemberID)
	if err != nil {
		swapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"requests": emptyIfNil(reqs)})
}

// handleSent lists requests the caller has made.
func (s *Server) handleSent(w http.ResponseWriter, r *http.Request) {
	reqs, err := s.swaps.Sent(caller(r).MemberID)
	if err != nil {
		swapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"requests": emptyIfNil(reqs)})
}

// handleGetSwap returns one request to either party.
func (s *Server) handleGetSwap(w http.ResponseWriter, r *http.Request) {
	req, err := s.swaps.Get(chi.URLParam(r, "id"), caller(r).MemberID)
	if err != nil {
		swapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// handleRespond lets the requested item's owner accept or reject.
// Acceptance carries the courier quotes in the response.
func (s *Server) handleRespond(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	req, quotes, err := s.swaps.Respond(chi.URLParam(r, "id"), caller(r).MemberID, domain.SwapStatus(body.Status))
	if err != nil {
		swapError(w, err)
		return
	}
	resp := map[string]interface{}{"request": req}
	if quotes != nil {
		resp["courier_options"] = quotes
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCourierOptions returns ranked quotes plus both resolved addresses.
func (s *Server) handleCourierOptions(w http.ResponseWriter, r *http.Request) {
	quotes, details, err := s.swaps.CourierOptions(chi.URLParam(r, "id"), caller(r).MemberID)
	if err != nil {
		swapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"courier_options": quotes,
		"addresses": map[string]interface{}{
			"requester": details.RequesterAddress,
			"owner":     details.OwnerAddress,
		},
	})
}

// handleSelectCourier stores the chosen carrier and shipping addresses.
func (s *Server) handleSelectCourier(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CourierService  string                 `json:"courier_service"`
		ShippingDetails domain.ShippingDetails `json:"shipping_details"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if body.CourierService == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "courier_service is required")
		return
	}

	req, err := s.swaps.SelectCourier(chi.URLParam(r, "id"), caller(r).MemberID, body.CourierService, body.ShippingDetails)
	if err != nil {
		swapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// handleMarkShipped records the tracking id.
func (s *Server) handleMarkShipped(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TrackingID string `json:"tracking_id"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	req, err := s.swaps.MarkShipped(chi.URLParam(r, "id"), caller(r).MemberID, body.TrackingID)
	if err != nil {
		swapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// handleComplete settles the swap. Safe to retry: a repeat completion
// returns the completed request without crediting again.
func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	req, err := s.swaps.Complete(chi.URLParam(r, "id"), caller(r).MemberID)
	if err != nil {
		swapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// handleCancel withdraws a not-yet-shipping request.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	req, err := s.swaps.Cancel(chi.URLParam(r, "id"), caller(r).MemberID)
	if err != nil {
		swapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// handleAdminSwaps lists every swap request for the staff dashboard.
func (s *Server) handleAdminSwaps(w http.ResponseWriter, r *http.Request) {
	reqs, err := s.swaps.All()
	if err != nil {
		swapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"requests": emptyIfNil(reqs)})
}

func emptyIfNil(reqs []domain.SwapRequest) []domain.SwapRequest {
	if reqs == nil {
		return []domain.SwapRequest{}
	}
	return reqs
}
