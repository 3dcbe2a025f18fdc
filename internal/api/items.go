package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rewear-collective/rewear/internal/app/points"
	"github.com/rewear-collective/rewear/internal/domain"
)

// ─── Item Catalog Handlers ──────────────────────────────────────────────────
// Catalog plumbing around the swap core: members list garments, staff
// approve them, and the swap engine reads ownership and availability.

// handleListItems returns the approved catalog.
// GET /api/items
func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListItemsByStatus(domain.ItemApproved)
	if err != nil {
		domainError(w, err)
		return
	}
	if items == nil {
		items = []domain.Item{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// handleGetItem returns one item.
// GET /api/items/{id}
func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.store.GetItem(chi.URLParam(r, "id"))
	if err != nil {
		domainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// handleCreateItem lists a garment. It enters the catalog as pending until
// staff approve it; listing itself earns the member points.
// POST /api/items
func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Size        string `json:"size"`
		Category    string `json:"category"`
		PointValue  int64  `json:"point_value"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if body.Title == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "title is required")
		return
	}
	if body.PointValue <= 0 {
		body.PointValue = 10
	}

	item := &domain.Item{
		ID:          uuid.New().String(),
		OwnerID:     caller(r).MemberID,
		Title:       body.Title,
		Description: body.Description,
		Size:        body.Size,
		Category:    body.Category,
		Status:      domain.ItemPending,
		PointValue:  body.PointValue,
		CreatedAt:   time.Now(),
	}
	if err := s.store.CreateItem(item); err != nil {
		domainError(w, err)
		return
	}
	if err := s.ledger.Credit(item.OwnerID, domain.ListingReward, points.ReasonListing); err != nil {
		domainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// handleProfile returns the caller's member record with current balance.
// GET /api/me
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	member, err := s.store.GetMember(caller(r).MemberID)
	if err != nil {
		domainError(w, err)
		return
	}
	items, err := s.store.ListItemsByOwner(member.ID)
	if err != nil {
		domainError(w, err)
		return
	}
	if items == nil {
		items = []domain.Item{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"member": member,
		"items":  items,
	})
}

// handleAdminPendingItems lists items awaiting approval.
// GET /api/admin/items
func (s *Server) handleAdminPendingItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListItemsByStatus(domain.ItemPending)
	if err != nil {
		domainError(w, err)
		return
	}
	if items == nil {
		items = []domain.Item{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// handleAdminItemStatus moves an item between availability statuses.
// PATCH /api/admin/items/{id}
func (s *Server) handleAdminItemStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	status := domain.ItemStatus(body.Status)
	if !domain.ValidItemStatus(status) {
		writeError(w, http.StatusBadRequest, "bad_request", "unknown item status")
		return
	}

	if err := s.store.SetItemStatus(chi.URLParam(r, "id"), status); err != nil {
		domainError(w, err)
		return
	}
	item, err := s.store.GetItem(chi.URLParam(r, "id"))
	if err != nil {
		domainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}
