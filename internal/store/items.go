package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/erazemk/izposoja/internal/model"
)

// ErrItemInUse is returned when deleting an item that still has active bookings.
var ErrItemInUse = errors.New("item has active bookings")

// ItemInUseError carries the active bookings that block an item deletion.
type ItemInUseError struct {
	Bookings []model.Booking
}

func (e *ItemInUseError) Error() string {
	return fmt.Sprintf("cannot delete item: %d active bookings", len(e.Bookings))
}

func (e *ItemInUseError) Unwrap() error { return ErrItemInUse }

const itemColumns = `id, owner_id, name, description, rent_price, rent_type, photo_url, created_at, updated_at`

// CreateItem creates a new item owned by ownerID.
func CreateItem(ctx context.Context, db *sql.DB, ownerID int64, item *model.Item) (*model.Item, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO items (owner_id, name, description, rent_price, rent_type, photo_url)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ownerID, item.Name, item.Description, item.RentPrice.String(), item.RentType, nullString(item.PhotoURL),
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, db, ownerID, id)
}

// GetItem returns an item by ID, or nil if it doesn't exist or belongs to another owner.
func GetItem(ctx context.Context, db *sql.DB, ownerID, id int64) (*model.Item, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ? AND owner_id = ?`, id, ownerID,
	)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns an owner's items, filtered and sorted.
func ListItems(ctx context.Context, db *sql.DB, ownerID int64, filter model.ItemFilter) ([]model.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE owner_id = ?`
	args := []any{ownerID}

	if s := strings.TrimSpace(filter.Search); s != "" {
		query += ` AND lower(name) LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(strings.ToLower(s))+"%")
	}

	// rent_price is decimal text; CAST gives numeric comparison.
	switch filter.PriceBand {
	case model.PriceBandLow:
		query += ` AND CAST(rent_price AS REAL) < ?`
		args = append(args, model.PriceBandLowMax.InexactFloat64())
	case model.PriceBandMedium:
		query += ` AND CAST(rent_price AS REAL) >= ? AND CAST(rent_price AS REAL) <= ?`
		args = append(args, model.PriceBandLowMax.InexactFloat64(), model.PriceBandHighMin.InexactFloat64())
	case model.PriceBandHigh:
		query += ` AND CAST(rent_price AS REAL) > ?`
		args = append(args, model.PriceBandHighMin.InexactFloat64())
	}

	switch filter.Sort {
	case model.ItemSortOldest:
		query += ` ORDER BY created_at ASC, id ASC`
	case model.ItemSortPriceLow:
		query += ` ORDER BY CAST(rent_price AS REAL) ASC, id ASC`
	case model.ItemSortPriceHigh:
		query += ` ORDER BY CAST(rent_price AS REAL) DESC, id DESC`
	case model.ItemSortName:
		query += ` ORDER BY name COLLATE NOCASE ASC, id ASC`
	default:
		query += ` ORDER BY created_at DESC, id DESC`
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// UpdateItem updates an item's metadata. Returns false if no owned item matched.
func UpdateItem(ctx context.Context, db *sql.DB, ownerID int64, item *model.Item) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET name = ?, description = ?, rent_price = ?, rent_type = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND owner_id = ?`,
		item.Name, item.Description, item.RentPrice.String(), item.RentType, item.ID, ownerID,
	)
	if err != nil {
		return false, fmt.Errorf("updating item: %w", err)
	}
	return affected(result)
}

// SetItemPhoto sets an item's photo reference. Returns false if no owned item matched.
func SetItemPhoto(ctx context.Context, db *sql.DB, ownerID, id int64, photoURL string) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET photo_url = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND owner_id = ?`,
		nullString(photoURL), id, ownerID,
	)
	if err != nil {
		return false, fmt.Errorf("setting item photo: %w", err)
	}
	return affected(result)
}

// DeleteItem deletes an item. Fails with *ItemInUseError while the item has
// active bookings; historical bookings keep their rows with item_id NULL.
// Returns false if no owned item matched.
func DeleteItem(ctx context.Context, db *sql.DB, ownerID, id int64) (bool, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT `+bookingColumns+`
		 FROM bookings b LEFT JOIN items i ON i.id = b.item_id
		 WHERE b.item_id = ? AND b.owner_id = ? AND b.status = ?
		 ORDER BY b.start_date`,
		id, ownerID, model.BookingStatusActive,
	)
	if err != nil {
		return false, fmt.Errorf("checking item bookings: %w", err)
	}
	active, err := scanBookings(rows)
	if err != nil {
		return false, err
	}
	if len(active) > 0 {
		return false, &ItemInUseError{Bookings: active}
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM items WHERE id = ? AND owner_id = ?`, id, ownerID,
	)
	if err != nil {
		return false, fmt.Errorf("deleting item: %w", err)
	}
	ok, err := affected(result)
	if err != nil || !ok {
		return ok, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing item deletion: %w", err)
	}
	return true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*model.Item, error) {
	item := &model.Item{}
	var description, photoURL sql.NullString
	var price decimal.Decimal
	if err := row.Scan(&item.ID, &item.OwnerID, &item.Name, &description, &price, &item.RentType,
		&photoURL, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}
	item.Description = description.String
	item.PhotoURL = photoURL.String
	item.RentPrice = price
	return item, nil
}

func affected(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading affected rows: %w", err)
	}
	return n > 0, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
