package auth

import (
	"context"
	"sync"
	"time"
)

// Session is the authenticated identity attached to a request.
type Session struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	TokenID   string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionFromClaims builds a session from validated token claims.
func SessionFromClaims(c *Claims) Session {
	s := Session{
		UserID:   c.UserID,
		Username: c.Username,
		Role:     c.Role,
		TokenID:  c.ID,
	}
	if c.ExpiresAt != nil {
		s.ExpiresAt = c.ExpiresAt.Time
	}
	return s
}

type sessionKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom returns the session stored in ctx, if any.
func SessionFrom(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}

// Session event kinds.
const (
	SessionStarted  = "session.started"
	SessionEnded    = "session.ended"
	PasswordChanged = "session.password_changed"
)

// Event is a change to a user's session state.
type Event struct {
	Kind    string
	Session Session
	At      time.Time
}

// Broker fans session events out to subscribers. Publishing never blocks:
// a subscriber whose buffer is full misses the event.
type Broker struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	buffer int
	closed bool
}

// NewBroker returns a broker whose subscriptions buffer up to buffer events.
func NewBroker(buffer int) *Broker {
	if buffer < 1 {
		buffer = 1
	}
	return &Broker{subs: make(map[*Subscription]struct{}), buffer: buffer}
}

// Subscription receives events until it or its broker is closed.
type Subscription struct {
	broker *Broker
	ch     chan Event
	once   sync.Once
}

// Subscribe starts a subscription. Callers must Close it when done.
// Subscribing to a closed broker returns an already closed subscription.
func (b *Broker) Subscribe() *Subscription {
	s := &Subscription{broker: b, ch: make(chan Event, b.buffer)}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		s.once.Do(func() { close(s.ch) })
		return s
	}
	b.subs[s] = struct{}{}
	return s
}

// Publish delivers e to every subscriber with room for it. It returns the
// number of subscribers that missed the event.
func (b *Broker) Publish(e Event) int {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0
	}
	dropped := 0
	for s := range b.subs {
		select {
		case s.ch <- e:
		default:
			dropped++
		}
	}
	return dropped
}

// Close ends every subscription. Later publishes are discarded.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for s := range b.subs {
		delete(b.subs, s)
		s.once.Do(func() { close(s.ch) })
	}
}

// Events is closed when the subscription ends.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Close stops delivery. It is safe to call more than once.
func (s *Subscription) Close() {
	b := s.broker
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, s)
	s.once.Do(func() { close(s.ch) })
}
