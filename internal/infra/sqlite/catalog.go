// Member and item catalog operations, including the points sub-ledger.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rewear-collective/rewear/internal/domain"
)

// ─── Member Operations ──────────────────────────────────────────────────────

// CreateMember inserts a new member.
func (d *DB) CreateMember(m *domain.Member) error {
	isAdmin := 0
	if m.IsAdmin {
		isAdmin = 1
	}
	_, err := d.db.Exec(`
		INSERT INTO members (id, name, email, points, is_admin, street, city, state, zip_code, country, phone, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.Name, m.Email, m.Points, isAdmin,
		m.Address.Street, m.Address.City, m.Address.State, m.Address.ZipCode, m.Address.Country,
		m.Phone, m.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("create member: %w", err)
	}
	return nil
}

// GetMember retrieves a member by id.
func (d *DB) GetMember(id string) (*domain.Member, error) {
	var (
		m         domain.Member
		isAdmin   int
		createdAt string
	)
	err := d.db.QueryRow(`
		SELECT id, name, email, points, is_admin, street, city, state, zip_code, country, phone, created_at
		FROM members WHERE id = ?
	`, id).Scan(&m.ID, &m.Name, &m.Email, &m.Points, &isAdmin,
		&m.Address.Street, &m.Address.City, &m.Address.State, &m.Address.ZipCode, &m.Address.Country,
		&m.Phone, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	m.IsAdmin = isAdmin == 1
	m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &m, nil
}

// CreditPoints adds amount to a member's balance. The additive UPDATE is
// commutative, so concurrent credits to the same member cannot lose updates.
func (d *DB) CreditPoints(memberID string, amount int64) error {
	res, err := d.db.Exec(`
		UPDATE members SET points = points + ? WHERE id = ?
	`, amount, memberID)
	if err != nil {
		return fmt.Errorf("credit points: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("credit points: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ─── Item Operations ────────────────────────────────────────────────────────

// CreateItem inserts a new catalog item.
func (d *DB) CreateItem(it *domain.Item) error {
	_, err := d.db.Exec(`
		INSERT INTO items (id, owner_id, title, description, size, category, status, point_value, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, it.ID, it.OwnerID, it.Title, it.Description, it.Size, it.Category,
		string(it.Status), it.PointValue, it.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("create item: %w", err)
	}
	return nil
}

// GetItem retrieves an item by id.
func (d *DB) GetItem(id string) (*domain.Item, error) {
	it, err := scanItem(d.db.QueryRow(`
		SELECT id, owner_id, title, description, size, category, status, point_value, created_at
		FROM items WHERE id = ?
	`, id))
	if err != nil {
		return nil, err
	}
	return it, nil
}

// SetItemStatus updates an item's availability status.
func (d *DB) SetItemStatus(id string, status domain.ItemStatus) error {
	res, err := d.db.Exec(`UPDATE items SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("set item status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListItemsByOwner returns all items belonging to a member, newest first.
func (d *DB) ListItemsByOwner(ownerID string) ([]domain.Item, error) {
	return d.queryItems(`
		SELECT id, owner_id, title, description, size, category, status, point_value, created_at
		FROM items WHERE owner_id = ? ORDER BY created_at DESC
	`, ownerID)
}

// ListItemsByStatus returns all items in the given status, newest first.
func (d *DB) ListItemsByStatus(status domain.ItemStatus) ([]domain.Item, error) {
	return d.queryItems(`
		SELECT id, owner_id, title, description, size, category, status, point_value, created_at
		FROM items WHERE status = ? ORDER BY created_at DESC
	`, string(status))
}

func (d *DB) queryItems(query string, args ...any) ([]domain.Item, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var out []domain.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *it)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*domain.Item, error) {
	var (
		it        domain.Item
		status    string
		createdAt string
	)
	err := row.Scan(&it.ID, &it.OwnerID, &it.Title, &it.Description, &it.Size,
		&it.Category, &status, &it.PointValue, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan item: %w", err)
	}
	it.Status = domain.ItemStatus(status)
	it.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &it, nil
}
