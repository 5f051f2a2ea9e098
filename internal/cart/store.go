package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pizza/internal/delivery"
	"github.com/noah-isme/backend-pizza/internal/money"
	"github.com/noah-isme/backend-pizza/internal/obs"
)

// ErrNegativeFee is returned when a delivery fee below zero is set.
var ErrNegativeFee = errors.New("cart: delivery fee must not be negative")

// Listener receives cart notifications. After every notifying mutation all
// listeners get OnLines, then all listeners get OnTotal. Either callback may
// be nil.
type Listener struct {
	OnLines func(lines []Line)
	OnTotal func(total money.Money)
}

// Snapshot is a consistent copy of the cart with its derived totals.
type Snapshot struct {
	Lines           []Line            `json:"lines"`
	DeliveryAddress *delivery.Address `json:"deliveryAddress"`
	DeliveryFee     money.Money       `json:"deliveryFee"`
	Subtotal        money.Money       `json:"subtotal"`
	Total           money.Money       `json:"total"`
	ItemCount       int               `json:"itemCount"`
}

// state is the persisted shape of a cart.
type state struct {
	Lines           []Line            `json:"lines"`
	DeliveryAddress *delivery.Address `json:"deliveryAddress"`
	DeliveryFee     money.Money       `json:"deliveryFee"`
}

type effect int

const (
	// effectNone leaves storage and listeners untouched.
	effectNone effect = iota
	effectPersist
	effectNotify
)

type mutation struct {
	ctx   context.Context
	op    string
	apply func(*state) effect
}

type subscription struct {
	id       uint64
	listener Listener
}

// Config configures a Store.
type Config struct {
	Storage Storage
	// Key is the storage key holding this cart, see cache.KeyCart.
	Key    string
	Logger zerolog.Logger
	// NewID generates line ids. Defaults to uuid.NewString.
	NewID func() string
}

// Store owns one cart. All methods are safe for concurrent use. A mutation
// issued while listeners are being notified, from a callback or from another
// goroutine, is queued and applied by the notifying goroutine once the current
// round has finished. Callers that need read-your-writes across goroutines
// serialise through Registry.
type Store struct {
	mu       sync.Mutex
	state    state
	storage  Storage
	key      string
	logger   zerolog.Logger
	newID    func() string
	subs     []subscription
	nextSub  uint64
	pending  []mutation
	draining bool
	closed   bool
}

// Open restores the cart stored under cfg.Key. A missing blob yields an empty
// cart. A blob that cannot be decoded or breaks a line invariant is discarded
// and logged; Open never fails.
func Open(ctx context.Context, cfg Config) *Store {
	s := &Store{
		storage: cfg.Storage,
		key:     cfg.Key,
		logger:  cfg.Logger,
		newID:   cfg.NewID,
		state:   state{DeliveryFee: money.Zero},
	}
	if s.storage == nil {
		s.storage = NewMemoryStorage()
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	s.restore(ctx)
	return s
}

func (s *Store) restore(ctx context.Context) {
	blob, err := s.storage.Load(ctx, s.key)
	if errors.Is(err, ErrNoState) {
		return
	}
	if err == nil {
		var st state
		if err = json.Unmarshal(blob, &st); err == nil {
			err = validateState(st)
		}
		if err == nil {
			s.state = st
			return
		}
	}
	obs.ObserveCartRestoreFailure()
	s.logger.Warn().Err(err).Str("key", s.key).Msg("cart_restore_failed")
}

func validateState(st state) error {
	if st.DeliveryFee.IsNegative() {
		return ErrNegativeFee
	}
	seen := make(map[string]struct{}, len(st.Lines))
	for _, l := range st.Lines {
		if err := l.check(); err != nil {
			return err
		}
		if _, dup := seen[l.ID]; dup {
			return fmt.Errorf("%w: duplicate id %s", ErrInvalidLine, l.ID)
		}
		seen[l.ID] = struct{}{}
	}
	return nil
}

// Subscribe registers l and immediately replays the current lines and total
// to it. The returned func unsubscribes.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subscription{id: id, listener: l})
	lines := cloneLines(s.state.Lines)
	total := totalOf(s.state)
	s.mu.Unlock()

	sub := []subscription{{id: id, listener: l}}
	s.publish(sub, lines, total)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, existing := range s.subs {
				if existing.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Add appends line, or merges it into an existing line with the same kind,
// item and size. Custom pizzas always append. A line without an id, or whose
// id is already taken, gets a fresh one.
func (s *Store) Add(ctx context.Context, line Line) error {
	line = line.clone()
	if line.ID == "" {
		line.ID = s.newID()
	}
	if err := line.check(); err != nil {
		return err
	}
	s.submit(ctx, "add", func(st *state) effect {
		if key := line.mergeKey(); key != "" {
			for i, existing := range st.Lines {
				if existing.mergeKey() == key {
					st.Lines[i] = existing.withQuantity(existing.Quantity + line.Quantity)
					return effectNotify
				}
			}
		}
		if hasLine(st.Lines, line.ID) {
			line.ID = s.newID()
		}
		st.Lines = append(st.Lines, line)
		return effectNotify
	})
	return nil
}

// UpdateQuantity sets the quantity of line id. A quantity ≤ 0 removes the
// line. Unknown ids are ignored.
func (s *Store) UpdateQuantity(ctx context.Context, id string, quantity int) {
	if quantity <= 0 {
		s.Remove(ctx, id)
		return
	}
	s.submit(ctx, "update_quantity", func(st *state) effect {
		for i, l := range st.Lines {
			if l.ID == id {
				st.Lines[i] = l.withQuantity(quantity)
				return effectNotify
			}
		}
		return effectNone
	})
}

// Remove deletes line id. Unknown ids are ignored.
func (s *Store) Remove(ctx context.Context, id string) {
	s.submit(ctx, "remove", func(st *state) effect {
		for i, l := range st.Lines {
			if l.ID == id {
				st.Lines = append(st.Lines[:i:i], st.Lines[i+1:]...)
				return effectNotify
			}
		}
		return effectNone
	})
}

// Clear empties the cart together with its delivery address and fee.
func (s *Store) Clear(ctx context.Context) {
	s.submit(ctx, "clear", func(st *state) effect {
		*st = state{DeliveryFee: money.Zero}
		return effectNotify
	})
}

// SetDeliveryAddress replaces the delivery address. It is persisted but does
// not notify since the address has no price impact. nil clears it.
func (s *Store) SetDeliveryAddress(ctx context.Context, addr *delivery.Address) {
	var cp *delivery.Address
	if addr != nil {
		v := *addr
		cp = &v
	}
	s.submit(ctx, "set_delivery_address", func(st *state) effect {
		st.DeliveryAddress = cp
		return effectPersist
	})
}

// SetDeliveryFee replaces the delivery fee and republishes the total.
func (s *Store) SetDeliveryFee(ctx context.Context, fee money.Money) error {
	if fee.IsNegative() {
		return ErrNegativeFee
	}
	s.submit(ctx, "set_delivery_fee", func(st *state) effect {
		st.DeliveryFee = fee
		return effectNotify
	})
	return nil
}

// Close drops every listener and rejects further mutations.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.subs = nil
	s.pending = nil
}

// Lines returns a copy of the lines in insertion order.
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneLines(s.state.Lines)
}

// DeliveryAddress returns the current delivery address, if any.
func (s *Store) DeliveryAddress() (delivery.Address, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.DeliveryAddress == nil {
		return delivery.Address{}, false
	}
	return *s.state.DeliveryAddress, true
}

// DeliveryFee returns the current delivery fee.
func (s *Store) DeliveryFee() money.Money {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.DeliveryFee
}

// Subtotal is the sum of line subtotals.
func (s *Store) Subtotal() money.Money {
	s.mu.Lock()
	defer s.mu.Unlock()
	return subtotalOf(s.state.Lines)
}

// Total is Subtotal plus the delivery fee.
func (s *Store) Total() money.Money {
	s.mu.Lock()
	defer s.mu.Unlock()
	return totalOf(s.state)
}

// TotalItemCount sums line quantities.
func (s *Store) TotalItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return countOf(s.state.Lines, func(Line) bool { return true })
}

// IsEmpty reports whether the cart has no lines.
func (s *Store) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.Lines) == 0
}

// FindLine returns the first line matching pred.
func (s *Store) FindLine(pred func(Line) bool) (Line, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.state.Lines {
		if pred(l) {
			return l.clone(), true
		}
	}
	return Line{}, false
}

// ItemCountByKind sums the quantities of lines of kind.
func (s *Store) ItemCountByKind(kind Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return countOf(s.state.Lines, func(l Line) bool { return l.Kind == kind })
}

// IsInCart reports whether any line carries the catalog item itemID.
func (s *Store) IsInCart(itemID string) bool {
	return s.ItemQuantity(itemID) > 0
}

// ItemQuantity sums the quantities of lines carrying catalog item itemID,
// across sizes.
func (s *Store) ItemQuantity(itemID string) int {
	if itemID == "" {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return countOf(s.state.Lines, func(l Line) bool { return l.ItemID() == itemID })
}

// Snapshot returns a consistent copy of the cart and its totals.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Lines:       cloneLines(s.state.Lines),
		DeliveryFee: s.state.DeliveryFee,
		Subtotal:    subtotalOf(s.state.Lines),
		Total:       totalOf(s.state),
		ItemCount:   countOf(s.state.Lines, func(Line) bool { return true }),
	}
	if s.state.DeliveryAddress != nil {
		addr := *s.state.DeliveryAddress
		snap.DeliveryAddress = &addr
	}
	return snap
}

// submit queues m and, unless a drain is already running on the call stack
// or another goroutine, applies queued mutations one at a time. Listeners run
// without the lock held so they can read the store.
func (s *Store) submit(ctx context.Context, op string, apply func(*state) effect) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.pending = append(s.pending, mutation{ctx: ctx, op: op, apply: apply})
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	defer func() {
		s.draining = false
		s.pending = nil
		s.mu.Unlock()
	}()

	for len(s.pending) > 0 && !s.closed {
		m := s.pending[0]
		s.pending = s.pending[1:]

		eff := m.apply(&s.state)
		if eff == effectNone {
			continue
		}
		s.assertInvariants()
		obs.ObserveCartMutation(m.op)
		s.persistLocked(m.ctx)
		if eff != effectNotify {
			continue
		}

		lines := cloneLines(s.state.Lines)
		total := totalOf(s.state)
		subs := append([]subscription(nil), s.subs...)
		s.mu.Unlock()
		s.publish(subs, lines, total)
		s.mu.Lock()
	}
}

func (s *Store) persistLocked(ctx context.Context) {
	blob, err := json.Marshal(s.state)
	if err == nil {
		err = s.storage.Save(ctx, s.key, blob)
	}
	if err != nil {
		// The in-memory cart stays authoritative; the next mutation rewrites
		// the whole blob.
		obs.ObserveCartPersistFailure()
		s.logger.Error().Err(err).Str("key", s.key).Msg("cart_persist_failed")
	}
}

func (s *Store) publish(subs []subscription, lines []Line, total money.Money) {
	for _, sub := range subs {
		if sub.listener.OnLines != nil {
			s.call(func() { sub.listener.OnLines(cloneLines(lines)) })
		}
	}
	for _, sub := range subs {
		if sub.listener.OnTotal != nil {
			s.call(func() { sub.listener.OnTotal(total) })
		}
	}
}

func (s *Store) call(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Str("key", s.key).Msg("cart_listener_panic")
		}
	}()
	fn()
}

func (s *Store) assertInvariants() {
	if err := validateState(s.state); err != nil {
		panic(fmt.Sprintf("cart invariant violated: %v", err))
	}
}

func subtotalOf(lines []Line) money.Money {
	sum := money.Zero
	for _, l := range lines {
		sum = sum.Add(l.Subtotal)
	}
	return sum
}

func totalOf(st state) money.Money {
	return subtotalOf(st.Lines).Add(st.DeliveryFee)
}

func countOf(lines []Line, match func(Line) bool) int {
	n := 0
	for _, l := range lines {
		if match(l) {
			n += l.Quantity
		}
	}
	return n
}

func hasLine(lines []Line, id string) bool {
	for _, l := range lines {
		if l.ID == id {
			return true
		}
	}
	return false
}

func cloneLines(lines []Line) []Line {
	out := make([]Line, len(lines))
	for i, l := range lines {
		out[i] = l.clone()
	}
	return out
}
