package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/erazemk/izposoja/internal/daterange"
	"github.com/erazemk/izposoja/internal/model"
)

// ErrOverlap is returned when a write would overlap an active booking on the same item.
var ErrOverlap = errors.New("booking overlaps an active booking")

// OverlapError carries the active bookings a write collided with.
type OverlapError struct {
	Conflicts []model.Booking
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("%s (%d conflicts)", ErrOverlap.Error(), len(e.Conflicts))
}

func (e *OverlapError) Unwrap() error { return ErrOverlap }

// overlapTriggerMessage is raised by the bookings overlap triggers.
const overlapTriggerMessage = "booking overlaps an active booking"

const bookingColumns = `b.id, b.owner_id, b.item_id, b.customer_name, b.customer_mobile,
	b.start_date, b.end_date, b.rent_price, b.discount, b.status, b.created_at, b.updated_at,
	i.name, i.photo_url`

const bookingFrom = ` FROM bookings b LEFT JOIN items i ON i.id = b.item_id`

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// FindConflicts returns the active bookings on itemID whose dates intersect rng,
// skipping excludeID when it is positive.
func FindConflicts(ctx context.Context, db *sql.DB, itemID int64, rng daterange.Range, excludeID int64) ([]model.Booking, error) {
	return findConflicts(ctx, db, itemID, rng, excludeID)
}

func findConflicts(ctx context.Context, q queryer, itemID int64, rng daterange.Range, excludeID int64) ([]model.Booking, error) {
	query := `SELECT ` + bookingColumns + bookingFrom + `
		WHERE b.item_id = ? AND b.status = ?
		  AND b.start_date <= ? AND b.end_date >= ?`
	args := []any{itemID, model.BookingStatusActive, rng.End, rng.Start}
	if excludeID > 0 {
		query += ` AND b.id <> ?`
		args = append(args, excludeID)
	}
	query += ` ORDER BY b.start_date, b.id`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("finding conflicting bookings: %w", err)
	}
	return scanBookings(rows)
}

// CreateBooking re-checks availability and inserts the booking in a single
// transaction. Returns *OverlapError, and writes nothing, if an active booking
// on the same item intersects the new dates.
func CreateBooking(ctx context.Context, db *sql.DB, b *model.Booking) (*model.Booking, error) {
	if b.ItemID == nil {
		return nil, fmt.Errorf("booking has no item")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if b.Status == model.BookingStatusActive {
		conflicts, err := findConflicts(ctx, tx, *b.ItemID, b.Range(), 0)
		if err != nil {
			return nil, err
		}
		if len(conflicts) > 0 {
			return nil, &OverlapError{Conflicts: conflicts}
		}
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (owner_id, item_id, customer_name, customer_mobile,
		                       start_date, end_date, rent_price, discount, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.OwnerID, *b.ItemID, b.CustomerName, b.CustomerMobile,
		b.StartDate, b.EndDate, b.RentPrice.String(), b.Discount.String(), b.Status,
	)
	if err != nil {
		if isOverlapViolation(err) {
			return nil, overlapError(ctx, tx, *b.ItemID, b.Range(), 0)
		}
		return nil, fmt.Errorf("inserting booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting booking id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing booking: %w", err)
	}

	return GetBooking(ctx, db, b.OwnerID, id)
}

// UpdateBooking rewrites an active booking's item, customer, dates and price,
// re-checking availability against every other active booking on that item in
// the same transaction. Returns false if no owned active booking matched.
func UpdateBooking(ctx context.Context, db *sql.DB, b *model.Booking) (bool, error) {
	if b.ItemID == nil {
		return false, fmt.Errorf("booking has no item")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	conflicts, err := findConflicts(ctx, tx, *b.ItemID, b.Range(), b.ID)
	if err != nil {
		return false, err
	}
	if len(conflicts) > 0 {
		return false, &OverlapError{Conflicts: conflicts}
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE bookings
		 SET item_id = ?, customer_name = ?, customer_mobile = ?, start_date = ?, end_date = ?,
		     rent_price = ?, discount = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND owner_id = ? AND status = ?`,
		*b.ItemID, b.CustomerName, b.CustomerMobile, b.StartDate, b.EndDate,
		b.RentPrice.String(), b.Discount.String(),
		b.ID, b.OwnerID, model.BookingStatusActive,
	)
	if err != nil {
		if isOverlapViolation(err) {
			return false, overlapError(ctx, tx, *b.ItemID, b.Range(), b.ID)
		}
		return false, fmt.Errorf("updating booking: %w", err)
	}
	ok, err := affected(result)
	if err != nil || !ok {
		return ok, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing booking update: %w", err)
	}
	return true, nil
}

// overlapError loads the bookings an overlap trigger rejected a write for.
func overlapError(ctx context.Context, q queryer, itemID int64, rng daterange.Range, excludeID int64) error {
	conflicts, err := findConflicts(ctx, q, itemID, rng, excludeID)
	if err != nil {
		return err
	}
	return &OverlapError{Conflicts: conflicts}
}

// TransitionBooking moves an owned booking from one status to another.
// Returns false if no booking with that id, owner and current status matched.
func TransitionBooking(ctx context.Context, db *sql.DB, ownerID, id int64, from, to string) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE bookings SET status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND owner_id = ? AND status = ?`,
		to, id, ownerID, from,
	)
	if err != nil {
		if isOverlapViolation(err) {
			b, gerr := GetBooking(ctx, db, ownerID, id)
			if gerr != nil {
				return false, gerr
			}
			if b == nil || b.ItemID == nil {
				return false, &OverlapError{}
			}
			return false, overlapError(ctx, db, *b.ItemID, b.Range(), id)
		}
		return false, fmt.Errorf("updating booking status: %w", err)
	}
	return affected(result)
}

// DeleteBooking hard-deletes an owned booking. Returns false if nothing matched.
func DeleteBooking(ctx context.Context, db *sql.DB, ownerID, id int64) (bool, error) {
	result, err := db.ExecContext(ctx,
		`DELETE FROM bookings WHERE id = ? AND owner_id = ?`, id, ownerID,
	)
	if err != nil {
		return false, fmt.Errorf("deleting booking: %w", err)
	}
	return affected(result)
}

// GetBooking returns an owned booking by ID with its item joined, or nil.
func GetBooking(ctx context.Context, db *sql.DB, ownerID, id int64) (*model.Booking, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+bookingFrom+` WHERE b.id = ? AND b.owner_id = ?`, id, ownerID,
	)
	b, err := scanBooking(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting booking: %w", err)
	}
	return b, nil
}

// ListBookings returns an owner's bookings. The default order is newest first;
// the upcoming view and per-item listings are ordered by start date.
func ListBookings(ctx context.Context, db *sql.DB, ownerID int64, filter model.BookingFilter) ([]model.Booking, error) {
	var where []string
	args := []any{ownerID}
	where = append(where, `b.owner_id = ?`)

	status := filter.Status
	if filter.View == model.BookingViewUpcoming {
		status = model.BookingStatusActive
		where = append(where, `b.end_date >= ?`)
		args = append(args, filter.Today)
	}
	if status != "" && status != "all" {
		where = append(where, `b.status = ?`)
		args = append(args, status)
	}
	if filter.ItemID > 0 {
		where = append(where, `b.item_id = ?`)
		args = append(args, filter.ItemID)
	}

	query := `SELECT ` + bookingColumns + bookingFrom + ` WHERE ` + strings.Join(where, " AND ")
	if filter.View == model.BookingViewUpcoming || filter.ItemID > 0 {
		query += ` ORDER BY b.start_date ASC, b.id ASC`
	} else {
		query += ` ORDER BY b.created_at DESC, b.id DESC`
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing bookings: %w", err)
	}
	return scanBookings(rows)
}

func scanBookings(rows *sql.Rows) ([]model.Booking, error) {
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func scanBooking(row rowScanner) (*model.Booking, error) {
	b := &model.Booking{}
	var itemID sql.NullInt64
	var itemName, itemPhoto sql.NullString
	if err := row.Scan(&b.ID, &b.OwnerID, &itemID, &b.CustomerName, &b.CustomerMobile,
		&b.StartDate, &b.EndDate, &b.RentPrice, &b.Discount, &b.Status, &b.CreatedAt, &b.UpdatedAt,
		&itemName, &itemPhoto); err != nil {
		return nil, err
	}
	if itemID.Valid {
		id := itemID.Int64
		b.ItemID = &id
	}
	if itemName.Valid {
		b.Item = &model.ItemRef{Name: itemName.String, PhotoURL: itemPhoto.String}
	}
	return b, nil
}

func isOverlapViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), overlapTriggerMessage)
}
