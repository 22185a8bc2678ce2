// Package memory implements the repository ports on process memory. It backs
// STORAGE=memory deployments and the use case tests, and follows the same
// version-checked write rules as the Postgres adapters.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/jmaisinchop/app-renattos/internal/domain/apperror"
	"github.com/jmaisinchop/app-renattos/internal/domain/model"
	"github.com/jmaisinchop/app-renattos/pkg/events"
)

// Store holds every table. The typed repositories below share one Store so
// that a sale write, its ledger rows, and its outbox rows land together.
type Store struct {
	mu       sync.RWMutex
	sales    map[string]model.SaleState
	ledger   map[string][]model.LedgerEntry
	txIDs    map[string]struct{}
	rates    map[string]model.RateFactor
	clients  map[string]model.ClientSnapshot
	products map[string]model.Product
	outbox   []events.OutboxEntry
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		sales:    make(map[string]model.SaleState),
		ledger:   make(map[string][]model.LedgerEntry),
		txIDs:    make(map[string]struct{}),
		rates:    make(map[string]model.RateFactor),
		clients:  make(map[string]model.ClientSnapshot),
		products: make(map[string]model.Product),
	}
}

// PutClient inserts or replaces a client registry record.
func (s *Store) PutClient(c model.ClientSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.ID] = c
}

// PutProduct inserts or replaces a catalog record.
func (s *Store) PutProduct(p model.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

// appendOutbox must be called with mu held.
func (s *Store) appendOutbox(evts []events.DomainEvent) error {
	entries, err := events.NewOutboxEntries(evts)
	if err != nil {
		return apperror.ErrPersistence.WithError(err)
	}
	s.outbox = append(s.outbox, entries...)
	return nil
}

// ---------------------------------------------------------------------------
// Outbox
// ---------------------------------------------------------------------------

// FetchUnpublished returns up to batchSize entries not yet marked published,
// oldest first.
func (s *Store) FetchUnpublished(_ context.Context, batchSize int) ([]events.OutboxEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]events.OutboxEntry, 0, batchSize)
	for _, e := range s.outbox {
		if e.PublishedAt != nil {
			continue
		}
		out = append(out, e)
		if len(out) == batchSize {
			break
		}
	}
	return out, nil
}

// MarkPublished stamps the given entries as published.
func (s *Store) MarkPublished(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for i := range s.outbox {
		if slices.Contains(ids, s.outbox[i].ID) {
			s.outbox[i].PublishedAt = &now
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Clients and products
// ---------------------------------------------------------------------------

// ClientDirectory reads client records from a Store.
type ClientDirectory struct{ store *Store }

func NewClientDirectory(store *Store) *ClientDirectory { return &ClientDirectory{store: store} }

func (d *ClientDirectory) FindByID(_ context.Context, id string) (model.ClientSnapshot, error) {
	d.store.mu.RLock()
	defer d.store.mu.RUnlock()
	c, ok := d.store.clients[id]
	if !ok {
		return model.ClientSnapshot{}, apperror.ErrNotFound.Withf("client %s not found", id)
	}
	return c, nil
}

// ProductCatalog reads product records from a Store.
type ProductCatalog struct{ store *Store }

func NewProductCatalog(store *Store) *ProductCatalog { return &ProductCatalog{store: store} }

// FindByIDs returns the products that exist among ids. Missing ids are skipped.
func (c *ProductCatalog) FindByIDs(_ context.Context, ids []string) ([]model.Product, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	out := make([]model.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := c.store.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Rate table
// ---------------------------------------------------------------------------

// RateFactorRepository stores the rate table in a Store.
type RateFactorRepository struct{ store *Store }

func NewRateFactorRepository(store *Store) *RateFactorRepository {
	return &RateFactorRepository{store: store}
}

func (r *RateFactorRepository) Save(_ context.Context, rf model.RateFactor) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for id, other := range r.store.rates {
		if id != rf.ID() && other.TenorMonths() == rf.TenorMonths() {
			return apperror.ErrValidation.Withf("a rate factor for %d months already exists", rf.TenorMonths())
		}
	}
	version := 1
	createdAt := rf.CreatedAt()
	if current, ok := r.store.rates[rf.ID()]; ok {
		version = current.Version() + 1
		createdAt = current.CreatedAt()
	}
	if err := r.store.appendOutbox(rf.DomainEvents()); err != nil {
		return err
	}
	r.store.rates[rf.ID()] = model.ReconstructRateFactor(
		rf.ID(), rf.TenorMonths(), rf.TermFactor(), rf.RateFactor(), rf.LastInstallmentFree(),
		version, createdAt, rf.UpdatedAt(),
	)
	return nil
}

func (r *RateFactorRepository) Delete(_ context.Context, rf model.RateFactor) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.rates[rf.ID()]; !ok {
		return apperror.ErrNotFound.Withf("rate factor %s not found", rf.ID())
	}
	if err := r.store.appendOutbox(rf.DomainEvents()); err != nil {
		return err
	}
	delete(r.store.rates, rf.ID())
	return nil
}

func (r *RateFactorRepository) FindByID(_ context.Context, id string) (model.RateFactor, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	rf, ok := r.store.rates[id]
	if !ok {
		return model.RateFactor{}, apperror.ErrNotFound.Withf("rate factor %s not found", id)
	}
	return rf, nil
}

func (r *RateFactorRepository) FindByTenor(_ context.Context, tenorMonths int) (model.RateFactor, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, rf := range r.store.rates {
		if rf.TenorMonths() == tenorMonths {
			return rf, nil
		}
	}
	return model.RateFactor{}, apperror.ErrNotFound.Withf("no rate factor for %d months", tenorMonths)
}

func (r *RateFactorRepository) List(_ context.Context) ([]model.RateFactor, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]model.RateFactor, 0, len(r.store.rates))
	for _, rf := range r.store.rates {
		out = append(out, rf)
	}
	slices.SortFunc(out, func(a, b model.RateFactor) int { return cmp.Compare(a.TenorMonths(), b.TenorMonths()) })
	return out, nil
}
