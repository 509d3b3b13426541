// Package calculations keeps the saved calculations and the reusable price book.
package calculations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Simplici0/sweetcost/internal/log"
	"github.com/Simplici0/sweetcost/internal/pricing"
)

// Keys under which the collections are persisted.
const (
	KeyCalculations = "calculations"
	KeyPrices       = "prices"
)

const defaultMarkupPercent = 100.0

// ErrNotFound is returned when an edited calculation no longer exists.
var ErrNotFound = errors.New("calculation not found")

// KV is the persistence port. Put must replace all given keys atomically.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, values map[string][]byte) error
}

// Store owns the ordered list of saved calculations and the price book.
// Every mutation is persisted before it becomes visible.
type Store struct {
	mu            sync.Mutex
	kv            KV
	now           func() time.Time
	newID         func() string
	defaultMarkup float64

	calculations []CalculationResult
	prices       pricing.Prices
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides how new calculation ids are generated.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// WithDefaultMarkup sets the markup new drafts start with.
func WithDefaultMarkup(percent float64) Option {
	return func(s *Store) { s.defaultMarkup = percent }
}

// Open loads both collections from kv.
func Open(ctx context.Context, kv KV, opts ...Option) (*Store, error) {
	s := &Store{
		kv:            kv,
		now:           time.Now,
		newID:         uuid.NewString,
		defaultMarkup: defaultMarkupPercent,
		calculations:  []CalculationResult{},
		prices:        pricing.Prices{},
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load(ctx context.Context) error {
	raw, ok, err := s.kv.Get(ctx, KeyCalculations)
	if err != nil {
		return fmt.Errorf("load calculations: %w", err)
	}
	if ok {
		if err := json.Unmarshal(raw, &s.calculations); err != nil {
			return fmt.Errorf("decode calculations: %w", err)
		}
		if s.calculations == nil {
			s.calculations = []CalculationResult{}
		}
	}

	raw, ok, err = s.kv.Get(ctx, KeyPrices)
	if err != nil {
		return fmt.Errorf("load prices: %w", err)
	}
	if ok {
		if err := json.Unmarshal(raw, &s.prices); err != nil {
			return fmt.Errorf("decode prices: %w", err)
		}
		if s.prices == nil {
			s.prices = pricing.Prices{}
		}
	}

	for _, c := range s.calculations {
		if !Consistent(c) {
			log.Warn(ctx, "stored calculation does not match recomputation", "id", c.ID)
		}
	}
	log.Debug(ctx, "calculations loaded", "count", len(s.calculations), "prices", len(s.prices))
	return nil
}

// List returns the saved calculations in insertion order.
func (s *Store) List() []CalculationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.calculations)
}

// Get returns the calculation with id.
func (s *Store) Get(id string) (CalculationResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(id); i >= 0 {
		return clone(s.calculations[i]), true
	}
	return CalculationResult{}, false
}

// Prices returns a copy of the price book.
func (s *Store) Prices() pricing.Prices {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prices.Clone()
}

// NewDraft starts an empty calculation priced from the price book.
func (s *Store) NewDraft() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Draft{
		Recipe:        pricing.Recipe{Ingredients: []pricing.Ingredient{}},
		Prices:        s.prices.Clone(),
		Labor:         pricing.Labor{Workers: 1},
		MarkupPercent: s.defaultMarkup,
	}
}

// Edit loads a saved calculation back into a draft. The snapshot prices take
// precedence over the current price book.
func (s *Store) Edit(id string) (Draft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return Draft{}, false
	}
	c := clone(s.calculations[i])

	prices := s.prices.Clone()
	for name, rec := range c.Prices {
		prices[name] = rec
	}
	return Draft{
		EditingID:     c.ID,
		Recipe:        c.Recipe,
		Prices:        prices,
		Labor:         c.Labor,
		Output:        c.Output,
		MarkupPercent: c.MarkupPercent,
	}, true
}

// Save validates and prices the draft, then appends it as a new calculation or,
// when EditingID is set, replaces that calculation in place keeping its id.
// The draft's prices are merged into the price book.
func (s *Store) Save(ctx context.Context, d Draft) (CalculationResult, error) {
	if err := pricing.Validate(d.Input()).Err(); err != nil {
		return CalculationResult{}, fmt.Errorf("validate draft: %w", err)
	}
	result, err := pricing.Calculate(d.Input())
	if err != nil {
		return CalculationResult{}, fmt.Errorf("calculate draft: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	calc := CalculationResult{
		Recipe:    d.Recipe.Clone(),
		Prices:    d.Prices.For(d.Recipe),
		Labor:     d.Labor,
		Output:    d.Output,
		CreatedAt: now,
		UpdatedAt: now,
	}.withTotals(result.Totals)

	next := cloneAll(s.calculations)
	if d.EditingID != "" {
		i := s.indexOf(d.EditingID)
		if i < 0 {
			return CalculationResult{}, fmt.Errorf("save calculation %s: %w", d.EditingID, ErrNotFound)
		}
		calc.ID = d.EditingID
		calc.CreatedAt = s.calculations[i].CreatedAt
		next[i] = calc
	} else {
		calc.ID = s.uniqueID()
		next = append(next, calc)
	}

	prices := s.prices.Clone()
	for name, rec := range d.Prices {
		prices[name] = rec.Clone()
	}

	if err := s.persist(ctx, next, prices); err != nil {
		return CalculationResult{}, err
	}
	log.Info(ctx, "calculation saved", "id", calc.ID, "recipe", calc.Recipe.Name, "edited", d.EditingID != "")
	return clone(calc), nil
}

// Delete removes the calculation with id. Unknown ids are a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil
	}

	next := make([]CalculationResult, 0, len(s.calculations)-1)
	next = append(next, s.calculations[:i]...)
	next = append(next, s.calculations[i+1:]...)

	if err := s.persist(ctx, next, s.prices); err != nil {
		return err
	}
	log.Info(ctx, "calculation deleted", "id", id)
	return nil
}

// SetPrice applies patch to the price book entry for name and validates the
// result before storing it. A missing entry starts from the default record of
// an ingredient named name in the patch's unit.
func (s *Store) SetPrice(ctx context.Context, name string, patch pricing.PricePatch) (pricing.PriceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.prices[name]
	if !ok {
		ing := pricing.Ingredient{Name: name}
		if patch.PriceUnit != nil {
			ing.Unit = *patch.PriceUnit
		}
		current = pricing.DefaultPriceRecord(ing)
	}
	rec := patch.Apply(current)
	if err := pricing.ValidatePriceRecord(name, rec).Err(); err != nil {
		return pricing.PriceRecord{}, fmt.Errorf("validate price %s: %w", name, err)
	}
	if err := s.persist(ctx, s.calculations, s.prices.With(name, rec)); err != nil {
		return pricing.PriceRecord{}, err
	}
	return rec.Clone(), nil
}

// PutPrices adds or replaces several price book entries at once.
func (s *Store) PutPrices(ctx context.Context, records pricing.Prices) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prices := s.prices.Clone()
	for name, rec := range records {
		prices[name] = rec.Clone()
	}
	return s.persist(ctx, s.calculations, prices)
}

// DeletePrice removes a price book entry. Saved snapshots are not affected.
func (s *Store) DeletePrice(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.prices[name]; !ok {
		return nil
	}
	prices := s.prices.Clone()
	delete(prices, name)
	return s.persist(ctx, s.calculations, prices)
}

// persist writes both collections and, once that succeeded, makes them current.
// Callers hold s.mu.
func (s *Store) persist(ctx context.Context, calcs []CalculationResult, prices pricing.Prices) error {
	rawCalcs, err := json.Marshal(calcs)
	if err != nil {
		return fmt.Errorf("encode calculations: %w", err)
	}
	rawPrices, err := json.Marshal(prices)
	if err != nil {
		return fmt.Errorf("encode prices: %w", err)
	}

	if err := s.kv.Put(ctx, map[string][]byte{
		KeyCalculations: rawCalcs,
		KeyPrices:       rawPrices,
	}); err != nil {
		return fmt.Errorf("persist calculations: %w", err)
	}

	s.calculations = calcs
	s.prices = prices
	log.Debug(ctx, "calculations persisted", "count", len(calcs), "prices", len(prices))
	return nil
}

func (s *Store) indexOf(id string) int {
	for i, c := range s.calculations {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) uniqueID() string {
	for {
		id := s.newID()
		if s.indexOf(id) < 0 {
			return id
		}
	}
}

func clone(c CalculationResult) CalculationResult {
	c.Recipe = c.Recipe.Clone()
	c.Prices = c.Prices.Clone()
	return c
}

func cloneAll(calcs []CalculationResult) []CalculationResult {
	out := make([]CalculationResult, len(calcs))
	for i, c := range calcs {
		out[i] = clone(c)
	}
	return out
}
