// Swap ledger operations. Every status change is a compare-and-set: the
// UPDATE carries the required current status in its WHERE clause, so a
// concurrent request that got there first makes ours a zero-row update
// instead of a double-applied transition.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rewear-collective/rewear/internal/domain"
)

const swapColumns = `id, requester_id, requested_item_id, offered_item_id, status,
	message, courier_json, shipping_json, tracking_id, created_at, updated_at`

// InsertSwap creates a new swap request in pending status. It fails with
// domain.ErrConflict if an equivalent request (same requester and item pair)
// is still in a non-terminal status. Check and insert share one transaction
// so two simultaneous creates cannot both slip past the duplicate check.
func (d *DB) InsertSwap(req *domain.SwapRequest) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("insert swap: %w", err)
	}
	defer tx.Rollback()

	var active int
	err = tx.QueryRow(`
		SELECT COUNT(*) FROM swap_requests
		WHERE requester_id = ? AND requested_item_id = ? AND offered_item_id = ?
		  AND status IN ('pending', 'accepted', 'courier_selected', 'items_shipped')
	`, req.RequesterID, req.RequestedItemID, req.OfferedItemID).Scan(&active)
	if err != nil {
		return fmt.Errorf("insert swap: %w", err)
	}
	if active > 0 {
		return domain.ErrConflict
	}

	_, err = tx.Exec(`
		INSERT INTO swap_requests (id, requester_id, requested_item_id, offered_item_id, status, message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, req.ID, req.RequesterID, req.RequestedItemID, req.OfferedItemID,
		string(req.Status), req.Message,
		req.CreatedAt.UTC().Format(time.RFC3339), req.UpdatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert swap: %w", err)
	}
	return tx.Commit()
}

// GetSwap retrieves a swap request by id.
func (d *DB) GetSwap(id string) (*domain.SwapRequest, error) {
	return scanSwap(d.db.QueryRow(`SELECT `+swapColumns+` FROM swap_requests WHERE id = ?`, id))
}

// ListReceived returns all requests targeting items the member owns,
// newest first.
func (d *DB) ListReceived(ownerID string) ([]domain.SwapRequest, error) {
	return d.querySwaps(`
		SELECT `+swapColumns+` FROM swap_requests
		WHERE requested_item_id IN (SELECT id FROM items WHERE owner_id = ?)
		ORDER BY created_at DESC
	`, ownerID)
}

// ListSent returns all requests the member has made, newest first.
func (d *DB) ListSent(requesterID string) ([]domain.SwapRequest, error) {
	return d.querySwaps(`
		SELECT `+swapColumns+` FROM swap_requests
		WHERE requester_id = ? ORDER BY created_at DESC
	`, requesterID)
}

// ListAllSwaps returns every swap request, newest first.
func (d *DB) ListAllSwaps() ([]domain.SwapRequest, error) {
	return d.querySwaps(`SELECT ` + swapColumns + ` FROM swap_requests ORDER BY created_at DESC`)
}

// TransitionSwap moves a request from → to and returns the updated record.
// A zero-row update means the request either vanished (ErrNotFound) or is
// no longer in the expected status (ErrInvalidTransition).
func (d *DB) TransitionSwap(id string, from, to domain.SwapStatus) (*domain.SwapRequest, error) {
	res, err := d.db.Exec(`
		UPDATE swap_requests SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, string(to), now(), id, string(from))
	if err != nil {
		return nil, fmt.Errorf("transition swap: %w", err)
	}
	return d.afterConditionalUpdate(id, res)
}

// SelectCourierForSwap stores the chosen quote and shipping addresses and
// advances accepted → courier_selected in a single conditional update.
func (d *DB) SelectCourierForSwap(id string, courier domain.CourierSelection, shipping domain.ShippingDetails) (*domain.SwapRequest, error) {
	courierJSON, err := json.Marshal(courier)
	if err != nil {
		return nil, fmt.Errorf("select courier: %w", err)
	}
	shippingJSON, err := json.Marshal(shipping)
	if err != nil {
		return nil, fmt.Errorf("select courier: %w", err)
	}

	res, err := d.db.Exec(`
		UPDATE swap_requests
		SET status = ?, courier_json = ?, shipping_json = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, string(domain.SwapCourierSelected), string(courierJSON), string(shippingJSON), now(),
		id, string(domain.SwapAccepted))
	if err != nil {
		return nil, fmt.Errorf("select courier: %w", err)
	}
	return d.afterConditionalUpdate(id, res)
}

// MarkSwapShipped records the tracking id and advances
// courier_selected → items_shipped.
func (d *DB) MarkSwapShipped(id, trackingID string) (*domain.SwapRequest, error) {
	res, err := d.db.Exec(`
		UPDATE swap_requests SET status = ?, tracking_id = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, string(domain.SwapItemsShipped), trackingID, now(),
		id, string(domain.SwapCourierSelected))
	if err != nil {
		return nil, fmt.Errorf("mark shipped: %w", err)
	}
	return d.afterConditionalUpdate(id, res)
}

// CompleteSwap advances items_shipped → completed, marks both items as
// swapped, and credits both parties — all inside one transaction, so a
// crash or a concurrent completion can never leave points credited with
// an item still approved. The bool reports whether side effects were
// applied: a request already completed is an idempotent no-op.
func (d *DB) CompleteSwap(id string, reward int64) (*domain.SwapRequest, bool, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return nil, false, fmt.Errorf("complete swap: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		UPDATE swap_requests SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, string(domain.SwapCompleted), now(), id, string(domain.SwapItemsShipped))
	if err != nil {
		return nil, false, fmt.Errorf("complete swap: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("complete swap: %w", err)
	}

	if n == 0 {
		// Lost the race or called out of order. Completed is fine (idempotent),
		// anything else is an illegal transition.
		req, err := scanSwap(tx.QueryRow(`SELECT `+swapColumns+` FROM swap_requests WHERE id = ?`, id))
		if err != nil {
			return nil, false, err
		}
		if req.Status == domain.SwapCompleted {
			return req, false, tx.Commit()
		}
		return nil, false, domain.ErrInvalidTransition
	}

	req, err := scanSwap(tx.QueryRow(`SELECT `+swapColumns+` FROM swap_requests WHERE id = ?`, id))
	if err != nil {
		return nil, false, err
	}

	var ownerID string
	err = tx.QueryRow(`SELECT owner_id FROM items WHERE id = ?`, req.RequestedItemID).Scan(&ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, domain.ErrNotFound
	}
	if err != nil {
		return nil, false, fmt.Errorf("complete swap: %w", err)
	}

	for _, itemID := range []string{req.RequestedItemID, req.OfferedItemID} {
		if _, err := tx.Exec(`UPDATE items SET status = ? WHERE id = ?`,
			string(domain.ItemSwapped), itemID); err != nil {
			return nil, false, fmt.Errorf("complete swap: %w", err)
		}
	}
	for _, memberID := range []string{req.RequesterID, ownerID} {
		if _, err := tx.Exec(`UPDATE members SET points = points + ? WHERE id = ?`,
			reward, memberID); err != nil {
			return nil, false, fmt.Errorf("complete swap: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("complete swap: %w", err)
	}
	return req, true, nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// afterConditionalUpdate resolves a zero-row CAS update into the correct
// sentinel, or reloads the row after a successful one.
func (d *DB) afterConditionalUpdate(id string, res sql.Result) (*domain.SwapRequest, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("swap update: %w", err)
	}
	if n == 0 {
		if _, err := d.GetSwap(id); err != nil {
			return nil, err // ErrNotFound
		}
		return nil, domain.ErrInvalidTransition
	}
	return d.GetSwap(id)
}

func (d *DB) querySwaps(query string, args ...any) ([]domain.SwapRequest, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list swaps: %w", err)
	}
	defer rows.Close()

	var out []domain.SwapRequest
	for rows.Next() {
		req, err := scanSwap(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *req)
	}
	return out, rows.Err()
}

func scanSwap(row rowScanner) (*domain.SwapRequest, error) {
	var (
		req                  domain.SwapRequest
		status               string
		courierJSON          sql.NullString
		shippingJSON         sql.NullString
		trackingID           string
		createdAt, updatedAt string
	)
	err := row.Scan(&req.ID, &req.RequesterID, &req.RequestedItemID, &req.OfferedItemID,
		&status, &req.Message, &courierJSON, &shippingJSON, &trackingID, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan swap: %w", err)
	}

	req.Status = domain.SwapStatus(status)
	req.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	req.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	if courierJSON.Valid && courierJSON.String != "" {
		var c domain.CourierSelection
		if err := json.Unmarshal([]byte(courierJSON.String), &c); err != nil {
			return nil, fmt.Errorf("scan swap courier: %w", err)
		}
		c.TrackingID = trackingID
		req.Courier = &c
	}
	if shippingJSON.Valid && shippingJSON.String != "" {
		var s domain.ShippingDetails
		if err := json.Unmarshal([]byte(shippingJSON.String), &s); err != nil {
			return nil, fmt.Errorf("scan swap shipping: %w", err)
		}
		req.Shipping = &s
	}
	return &req, nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
