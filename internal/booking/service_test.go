package booking

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/izposoja/internal/daterange"
	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/events"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (r *recorder) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recorder) Close() error { return nil }

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	db    *sql.DB
	svc   *Service
	rec   *recorder
	owner int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database := db.NewTestDB(t)
	u, err := store.CreateUser(context.Background(), database, "alice", "hash", model.RoleUser)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	rec := &recorder{}
	return &fixture{
		db:  database,
		rec: rec,
		svc: &Service{
			DB:     database,
			Events: rec,
			Now:    func() time.Time { return time.Date(2024, 3, 3, 12, 0, 0, 0, time.UTC) },
		},
		owner: u.ID,
	}
}

func (f *fixture) item(t *testing.T, price, rentType string) *model.Item {
	t.Helper()
	item, err := store.CreateItem(context.Background(), f.db, f.owner, &model.Item{
		Name:      "Camera",
		RentPrice: decimal.RequireFromString(price),
		RentType:  rentType,
	})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	return item
}

func request(itemID int64, start, end string, discount int64) Request {
	return Request{
		ItemID:         itemID,
		CustomerName:   "Ravi Kumar",
		CustomerMobile: "9876543210",
		StartDate:      daterange.MustParse(start),
		EndDate:        daterange.MustParse(end),
		Discount:       decimal.NewFromInt(discount),
	}
}

func mustRange(t *testing.T, start, end string) daterange.Range {
	t.Helper()
	rng, err := daterange.ParseRange(start, end)
	if err != nil {
		t.Fatal(err)
	}
	return rng
}

func TestCreateStoresFinalPrice(t *testing.T) {
	f := newFixture(t)
	item := f.item(t, "500", model.RentTypePerDay)

	b, err := f.svc.Create(context.Background(), f.owner, request(item.ID, "2024-03-01", "2024-03-05", 200))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !b.RentPrice.Equal(decimal.NewFromInt(2300)) {
		t.Errorf("expected rent price 2300, got %s", b.RentPrice)
	}
	if !b.Discount.Equal(decimal.NewFromInt(200)) {
		t.Errorf("expected discount 200, got %s", b.Discount)
	}
	if b.Status != model.BookingStatusActive {
		t.Errorf("expected active status, got %q", b.Status)
	}

	stored, _ := store.GetBooking(context.Background(), f.db, f.owner, b.ID)
	if !stored.RentPrice.Equal(decimal.NewFromInt(2300)) {
		t.Errorf("expected persisted rent price 2300, got %s", stored.RentPrice)
	}

	if got := f.rec.types(); len(got) != 1 || got[0] != events.BookingCreated {
		t.Errorf("expected one created event, got %v", got)
	}
}

func TestCreateConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.item(t, "500", model.RentTypePerDay)

	existing, err := f.svc.Create(ctx, f.owner, request(item.ID, "2024-03-01", "2024-03-05", 0))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	avail := f.svc.CheckAvailability(ctx, f.owner, item.ID, mustRange(t, "2024-03-04", "2024-03-06"), 0)
	if avail.Err != nil {
		t.Fatalf("CheckAvailability: %v", avail.Err)
	}
	if avail.Available {
		t.Fatal("expected item to be unavailable")
	}
	if len(avail.Conflicts) != 1 || avail.Conflicts[0].ID != existing.ID {
		t.Fatalf("expected conflict with %d, got %+v", existing.ID, avail.Conflicts)
	}

	_, err = f.svc.Create(ctx, f.owner, request(item.ID, "2024-03-04", "2024-03-06", 0))
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if len(conflict.Conflicts) != 1 || conflict.Conflicts[0].ID != existing.ID {
		t.Errorf("expected conflict with %d, got %+v", existing.ID, conflict.Conflicts)
	}

	all, _ := f.svc.List(ctx, f.owner, model.BookingFilter{})
	if len(all) != 1 {
		t.Errorf("expected nothing written on conflict, got %d bookings", len(all))
	}
}

func TestUpdateExcludesSelf(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.item(t, "100", model.RentTypePerDay)

	b, err := f.svc.Create(ctx, f.owner, request(item.ID, "2024-03-01", "2024-03-05", 0))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	avail := f.svc.CheckAvailability(ctx, f.owner, item.ID, mustRange(t, "2024-03-01", "2024-03-06"), b.ID)
	if !avail.Available || avail.Err != nil {
		t.Fatalf("expected own booking not to conflict, got %+v", avail)
	}

	updated, err := f.svc.Update(ctx, f.owner, b.ID, request(item.ID, "2024-03-01", "2024-03-06", 0))
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.EndDate.String() != "2024-03-06" {
		t.Errorf("expected end date 2024-03-06, got %s", updated.EndDate)
	}
	if !updated.RentPrice.Equal(decimal.NewFromInt(600)) {
		t.Errorf("expected recomputed price 600, got %s", updated.RentPrice)
	}
}

func TestUpdateConflictsWithOthers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.item(t, "100", model.RentTypePerDay)

	f.svc.Create(ctx, f.owner, request(item.ID, "2024-03-01", "2024-03-05", 0))
	b, _ := f.svc.Create(ctx, f.owner, request(item.ID, "2024-03-10", "2024-03-12", 0))

	_, err := f.svc.Update(ctx, f.owner, b.ID, request(item.ID, "2024-03-05", "2024-03-12", 0))
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if len(conflict.Conflicts) == 0 {
		t.Error("expected the conflicting bookings to be reported")
	}
}

func TestUpdateMovesToAnotherItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cheap := f.item(t, "100", model.RentTypePerDay)
	dear := f.item(t, "1000", model.RentTypePerDay)

	b, err := f.svc.Create(ctx, f.owner, request(cheap.ID, "2024-03-01", "2024-03-02", 0))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	moved, err := f.svc.Update(ctx, f.owner, b.ID, request(dear.ID, "2024-03-01", "2024-03-02", 0))
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if moved.ItemID == nil || *moved.ItemID != dear.ID {
		t.Fatalf("expected booking on item %d, got %v", dear.ID, moved.ItemID)
	}
	if !moved.RentPrice.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("expected price 2000 at the new item's rate, got %s", moved.RentPrice)
	}

	// The old item is free again, the new one is taken.
	if avail := f.svc.CheckAvailability(ctx, f.owner, cheap.ID, mustRange(t, "2024-03-01", "2024-03-02"), 0); !avail.Available {
		t.Errorf("expected old item to be free, got %+v", avail)
	}
	if avail := f.svc.CheckAvailability(ctx, f.owner, dear.ID, mustRange(t, "2024-03-01", "2024-03-02"), 0); avail.Available {
		t.Error("expected new item to be booked")
	}
}

func TestUpdateMoveConflictsOnNewItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.item(t, "100", model.RentTypePerDay)
	second := f.item(t, "100", model.RentTypePerDay)

	blocking, err := f.svc.Create(ctx, f.owner, request(second.ID, "2024-03-01", "2024-03-05", 0))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	b, err := f.svc.Create(ctx, f.owner, request(first.ID, "2024-03-03", "2024-03-04", 0))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = f.svc.Update(ctx, f.owner, b.ID, request(second.ID, "2024-03-03", "2024-03-04", 0))
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if len(conflict.Conflicts) != 1 || conflict.Conflicts[0].ID != blocking.ID {
		t.Errorf("expected conflict with %d, got %+v", blocking.ID, conflict.Conflicts)
	}

	unchanged, _ := f.svc.Get(ctx, f.owner, b.ID)
	if unchanged.ItemID == nil || *unchanged.ItemID != first.ID {
		t.Errorf("expected rejected move to leave booking on item %d, got %v", first.ID, unchanged.ItemID)
	}
}

func TestSubCentDiscountRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.item(t, "100", model.RentTypePerDay)

	for _, d := range []string{"-0.004", "300.004"} {
		req := request(item.ID, "2024-03-01", "2024-03-03", 0)
		req.Discount = decimal.RequireFromString(d)
		_, err := f.svc.Create(ctx, f.owner, req)
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Field != "discount" {
			t.Errorf("discount %s: expected discount ValidationError, got %v", d, err)
		}
	}

	all, _ := f.svc.List(ctx, f.owner, model.BookingFilter{})
	if len(all) != 0 {
		t.Errorf("expected no writes, got %d bookings", len(all))
	}
}

func TestValidationOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.item(t, "100", model.RentTypePerDay)

	tests := []struct {
		name  string
		mut   func(*Request)
		field string
	}{
		{"missing name", func(r *Request) { r.CustomerName = "  " }, "customer_name"},
		{"missing mobile", func(r *Request) { r.CustomerMobile = "" }, "customer_mobile"},
		{"short mobile", func(r *Request) { r.CustomerMobile = "12345" }, "customer_mobile"},
		{"non-digit mobile", func(r *Request) { r.CustomerMobile = "98765abcde" }, "customer_mobile"},
		{"missing start", func(r *Request) { r.StartDate = daterange.Date{} }, "start_date"},
		{"inverted range", func(r *Request) { r.EndDate = daterange.MustParse("2024-02-28") }, "end_date"},
		{"negative discount", func(r *Request) { r.Discount = decimal.NewFromInt(-1) }, "discount"},
		{"discount over subtotal", func(r *Request) { r.Discount = decimal.NewFromInt(301) }, "discount"},
		// Range is checked before the discount.
		{"inverted range and bad discount", func(r *Request) {
			r.EndDate = daterange.MustParse("2024-02-28")
			r.Discount = decimal.NewFromInt(-1)
		}, "end_date"},
		{"missing item", func(r *Request) { r.ItemID = 0 }, "item_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := request(item.ID, "2024-03-01", "2024-03-03", 0)
			tt.mut(&req)
			_, err := f.svc.Create(ctx, f.owner, req)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("expected field %q, got %q (%s)", tt.field, verr.Field, verr.Message)
			}
		})
	}

	all, _ := f.svc.List(ctx, f.owner, model.BookingFilter{})
	if len(all) != 0 {
		t.Errorf("expected no writes after validation failures, got %d", len(all))
	}
}

func TestDiscountEqualToSubtotal(t *testing.T) {
	f := newFixture(t)
	item := f.item(t, "100", model.RentTypePerDay)

	b, err := f.svc.Create(context.Background(), f.owner, request(item.ID, "2024-01-01", "2024-01-03", 300))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !b.RentPrice.IsZero() {
		t.Errorf("expected final price 0, got %s", b.RentPrice)
	}
}

func TestCreateForeignItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.item(t, "100", model.RentTypePerDay)

	other, _ := store.CreateUser(ctx, f.db, "bob", "hash", model.RoleUser)
	_, err := f.svc.Create(ctx, other.ID, request(item.ID, "2024-01-01", "2024-01-03", 0))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for another owner's item, got %v", err)
	}

	avail := f.svc.CheckAvailability(ctx, other.ID, item.ID, mustRange(t, "2024-01-01", "2024-01-03"), 0)
	if avail.Available || !errors.Is(avail.Err, ErrNotFound) {
		t.Errorf("expected unavailable with ErrNotFound, got %+v", avail)
	}
}

func TestTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.item(t, "100", model.RentTypePerDay)

	b, _ := f.svc.Create(ctx, f.owner, request(item.ID, "2024-03-01", "2024-03-05", 0))

	done, err := f.svc.Complete(ctx, f.owner, b.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if done.Status != model.BookingStatusCompleted {
		t.Errorf("expected completed, got %q", done.Status)
	}

	if _, err := f.svc.Cancel(ctx, f.owner, b.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition cancelling a completed booking, got %v", err)
	}
	if _, err := f.svc.Update(ctx, f.owner, b.ID, request(item.ID, "2024-03-01", "2024-03-02", 0)); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition editing a completed booking, got %v", err)
	}

	// Completed bookings no longer block their dates.
	c, err := f.svc.Create(ctx, f.owner, request(item.ID, "2024-03-01", "2024-03-05", 0))
	if err != nil {
		t.Fatalf("Create over completed dates: %v", err)
	}
	cancelled, err := f.svc.Cancel(ctx, f.owner, c.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != model.BookingStatusCancelled {
		t.Errorf("expected cancelled, got %q", cancelled.Status)
	}

	if err := f.svc.Delete(ctx, f.owner, c.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := f.svc.Delete(ctx, f.owner, c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}
	if _, err := f.svc.Complete(ctx, f.owner, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound completing a missing booking, got %v", err)
	}

	want := []string{
		events.BookingCreated, events.BookingCompleted,
		events.BookingCreated, events.BookingCancelled, events.BookingDeleted,
	}
	got := f.rec.types()
	if len(got) != len(want) {
		t.Fatalf("expected events %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected events %v, got %v", want, got)
		}
	}
}

func TestPublishFailureKeepsWrite(t *testing.T) {
	f := newFixture(t)
	f.rec.err = errors.New("broker down")
	item := f.item(t, "100", model.RentTypePerDay)

	b, err := f.svc.Create(context.Background(), f.owner, request(item.ID, "2024-03-01", "2024-03-05", 0))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got, _ := store.GetBooking(context.Background(), f.db, f.owner, b.ID); got == nil {
		t.Error("expected booking to persist despite publish failure")
	}
}

func TestListUpcomingDefaultsToToday(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.item(t, "100", model.RentTypePerDay)

	f.svc.Create(ctx, f.owner, request(item.ID, "2024-03-01", "2024-03-02", 0))
	current, _ := f.svc.Create(ctx, f.owner, request(item.ID, "2024-03-03", "2024-03-04", 0))

	upcoming, err := f.svc.List(ctx, f.owner, model.BookingFilter{View: model.BookingViewUpcoming})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(upcoming) != 1 || upcoming[0].ID != current.ID {
		t.Errorf("expected only booking %d, got %+v", current.ID, upcoming)
	}

	var verr *ValidationError
	if _, err := f.svc.List(ctx, f.owner, model.BookingFilter{Status: "bogus"}); !errors.As(err, &verr) {
		t.Errorf("expected ValidationError for unknown status, got %v", err)
	}
}

func TestAvailabilityFailsSafe(t *testing.T) {
	f := newFixture(t)
	item := f.item(t, "100", model.RentTypePerDay)
	f.db.Close()

	avail := f.svc.CheckAvailability(context.Background(), f.owner, item.ID, mustRange(t, "2024-03-01", "2024-03-02"), 0)
	if avail.Available {
		t.Fatal("expected unavailable when the query fails")
	}
	if avail.Err == nil {
		t.Error("expected an error reason")
	}
}

func TestQuote(t *testing.T) {
	f := newFixture(t)
	item := f.item(t, "750", model.RentTypePerBooking)

	q, err := f.svc.Quote(context.Background(), f.owner, item.ID, mustRange(t, "2024-03-01", "2024-03-10"), decimal.NewFromInt(50))
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if !q.Subtotal.Equal(decimal.NewFromInt(750)) || !q.Final.Equal(decimal.NewFromInt(700)) {
		t.Errorf("unexpected quote %+v", q)
	}
}
