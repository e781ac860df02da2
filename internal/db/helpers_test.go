package db

import (
	"database/sql"
	"testing"
)

type testingDB struct {
	*sql.DB
}

func (d *testingDB) tryBook(item int64, start, end, status string) error {
	_, err := d.Exec(`INSERT INTO bookings (owner_id, item_id, customer_name, customer_mobile, start_date, end_date, rent_price, status)
		VALUES (1, ?, 'Ana', '0123456789', ?, ?, '100', ?)`, item, start, end, status)
	return err
}

func (d *testingDB) book(t *testing.T, item int64, start, end, status string) int64 {
	t.Helper()
	res := MustExec(t, d.DB, `INSERT INTO bookings (owner_id, item_id, customer_name, customer_mobile, start_date, end_date, rent_price, status)
		VALUES (1, ?, 'Ana', '0123456789', ?, ?, '100', ?)`, item, start, end, status)
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatal(err)
	}
	return id
}
