// Package memstore provides an in-memory store.Store. It reproduces the
// transactional semantics of the postgres store: InTx serializes writers
// and restores a snapshot when the callback fails, so rollback-on-error
// behaves the same in tests as in production.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/creditojus/creditojus/internal/domain/offer"
	"github.com/creditojus/creditojus/internal/domain/process"
	"github.com/creditojus/creditojus/internal/domain/transaction"
	"github.com/creditojus/creditojus/internal/store"
)

type data struct {
	processes    map[uuid.UUID]*process.Process
	offers       map[uuid.UUID]*offer.Offer
	transactions map[uuid.UUID]*transaction.Transaction
	nextID       int64
}

// Store is an in-memory store.Store implementation.
type Store struct {
	mu     sync.Mutex
	d      *data
	inTx   bool
	parent *Store
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{d: &data{
		processes:    make(map[uuid.UUID]*process.Process),
		offers:       make(map[uuid.UUID]*offer.Offer),
		transactions: make(map[uuid.UUID]*transaction.Transaction),
	}}
}

func (s *Store) lock() {
	if !s.inTx {
		s.mu.Lock()
	}
}

func (s *Store) unlock() {
	if !s.inTx {
		s.mu.Unlock()
	}
}

func (s *Store) Processes() process.Repository         { return processRepo{s} }
func (s *Store) Offers() offer.Repository              { return offerRepo{s} }
func (s *Store) Transactions() transaction.Repository  { return transactionRepo{s} }

// InTx serializes the callback against all other access and restores the
// pre-transaction snapshot when fn returns an error.
func (s *Store) InTx(ctx context.Context, fn func(tx store.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.d.clone()
	tx := &Store{d: s.d, inTx: true, parent: s}
	if err := fn(tx); err != nil {
		*s.d = *snapshot
		return err
	}
	return nil
}

func (d *data) clone() *data {
	c := &data{
		processes:    make(map[uuid.UUID]*process.Process, len(d.processes)),
		offers:       make(map[uuid.UUID]*offer.Offer, len(d.offers)),
		transactions: make(map[uuid.UUID]*transaction.Transaction, len(d.transactions)),
		nextID:       d.nextID,
	}
	for k, v := range d.processes {
		c.processes[k] = cloneProcess(v)
	}
	for k, v := range d.offers {
		c.offers[k] = cloneOffer(v)
	}
	for k, v := range d.transactions {
		c.transactions[k] = cloneTransaction(v)
	}
	return c
}

func cloneProcess(p *process.Process) *process.Process {
	c := *p
	c.StatusHistory = append([]process.StatusChange(nil), p.StatusHistory...)
	if p.AcceptedOfferID != nil {
		id := *p.AcceptedOfferID
		c.AcceptedOfferID = &id
	}
	return &c
}

func cloneOffer(o *offer.Offer) *offer.Offer {
	c := *o
	c.StatusHistory = append([]offer.StatusChange(nil), o.StatusHistory...)
	c.NegotiationHistory = append([]offer.NegotiationEntry(nil), o.NegotiationHistory...)
	if o.UpdatedAt != nil {
		ts := *o.UpdatedAt
		c.UpdatedAt = &ts
	}
	return &c
}

func cloneTransaction(t *transaction.Transaction) *transaction.Transaction {
	c := *t
	c.StatusHistory = append([]transaction.StatusChange(nil), t.StatusHistory...)
	c.Documents = append([]transaction.Document(nil), t.Documents...)
	for _, src := range []struct {
		from *time.Time
		to   **time.Time
	}{
		{t.PaymentDate, &c.PaymentDate},
		{t.CompletionDate, &c.CompletionDate},
		{t.CancellationDate, &c.CancellationDate},
	} {
		if src.from != nil {
			ts := *src.from
			*src.to = &ts
		}
	}
	return &c
}

type processRepo struct{ s *Store }

func (r processRepo) Create(ctx context.Context, p *process.Process) error {
	r.s.lock()
	defer r.s.unlock()
	r.s.d.nextID++
	p.ID = r.s.d.nextID
	r.s.d.processes[p.ProcessID] = cloneProcess(p)
	return nil
}

func (r processRepo) GetByID(ctx context.Context, processID uuid.UUID) (*process.Process, error) {
	r.s.lock()
	defer r.s.unlock()
	p, ok := r.s.d.processes[processID]
	if !ok {
		return nil, nil
	}
	return cloneProcess(p), nil
}

func (r processRepo) GetForUpdate(ctx context.Context, processID uuid.UUID) (*process.Process, error) {
	return r.GetByID(ctx, processID)
}

func (r processRepo) Update(ctx context.Context, p *process.Process) error {
	r.s.lock()
	defer r.s.unlock()
	r.s.d.processes[p.ProcessID] = cloneProcess(p)
	return nil
}

type offerRepo struct{ s *Store }

func (r offerRepo) Create(ctx context.Context, o *offer.Offer) error {
	r.s.lock()
	defer r.s.unlock()
	r.s.d.nextID++
	o.ID = r.s.d.nextID
	r.s.d.offers[o.OfferID] = cloneOffer(o)
	return nil
}

func (r offerRepo) GetByID(ctx context.Context, offerID uuid.UUID) (*offer.Offer, error) {
	r.s.lock()
	defer r.s.unlock()
	o, ok := r.s.d.offers[offerID]
	if !ok {
		return nil, nil
	}
	return cloneOffer(o), nil
}

func (r offerRepo) list(match func(*offer.Offer) bool) []*offer.Offer {
	var out []*offer.Offer
	for _, o := range r.s.d.offers {
		if match(o) {
			out = append(out, cloneOffer(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func page(offers []*offer.Offer, limit, offset int) []*offer.Offer {
	if offset >= len(offers) {
		return nil
	}
	offers = offers[offset:]
	if limit > 0 && limit < len(offers) {
		offers = offers[:limit]
	}
	return offers
}

func matchFilter(o *offer.Offer, f offer.Filter) bool {
	if f.Status != nil && o.Status != *f.Status {
		return false
	}
	if f.ProcessID != nil && o.ProcessID != *f.ProcessID {
		return false
	}
	return true
}

func (r offerRepo) ListBySeller(ctx context.Context, sellerID uuid.UUID, filter offer.Filter, limit, offset int) ([]*offer.Offer, error) {
	r.s.lock()
	defer r.s.unlock()
	return page(r.list(func(o *offer.Offer) bool {
		return o.SellerID == sellerID && matchFilter(o, filter)
	}), limit, offset), nil
}

func (r offerRepo) ListByBuyer(ctx context.Context, buyerID uuid.UUID, filter offer.Filter, limit, offset int) ([]*offer.Offer, error) {
	r.s.lock()
	defer r.s.unlock()
	return page(r.list(func(o *offer.Offer) bool {
		return o.BuyerID == buyerID && matchFilter(o, filter)
	}), limit, offset), nil
}

func (r offerRepo) ListActiveByProcess(ctx context.Context, processID uuid.UUID) ([]*offer.Offer, error) {
	r.s.lock()
	defer r.s.unlock()
	return r.list(func(o *offer.Offer) bool {
		return o.ProcessID == processID && o.Active()
	}), nil
}

func (r offerRepo) CountActiveByProcess(ctx context.Context, processID uuid.UUID) (int, error) {
	offers, err := r.ListActiveByProcess(ctx, processID)
	if err != nil {
		return 0, err
	}
	return len(offers), nil
}

func (r offerRepo) ExistsActiveForBuyer(ctx context.Context, processID, buyerID uuid.UUID) (bool, error) {
	r.s.lock()
	defer r.s.unlock()
	for _, o := range r.s.d.offers {
		if o.ProcessID == processID && o.BuyerID == buyerID && o.Active() {
			return true, nil
		}
	}
	return false, nil
}

func (r offerRepo) Update(ctx context.Context, o *offer.Offer) error {
	r.s.lock()
	defer r.s.unlock()
	r.s.d.offers[o.OfferID] = cloneOffer(o)
	return nil
}

type transactionRepo struct{ s *Store }

func (r transactionRepo) Create(ctx context.Context, t *transaction.Transaction) error {
	r.s.lock()
	defer r.s.unlock()
	r.s.d.nextID++
	t.ID = r.s.d.nextID
	r.s.d.transactions[t.TransactionID] = cloneTransaction(t)
	return nil
}

func (r transactionRepo) GetByID(ctx context.Context, transactionID uuid.UUID) (*transaction.Transaction, error) {
	r.s.lock()
	defer r.s.unlock()
	t, ok := r.s.d.transactions[transactionID]
	if !ok {
		return nil, nil
	}
	return cloneTransaction(t), nil
}

func (r transactionRepo) GetByOfferID(ctx context.Context, offerID uuid.UUID) (*transaction.Transaction, error) {
	r.s.lock()
	defer r.s.unlock()
	for _, t := range r.s.d.transactions {
		if t.OfferID == offerID {
			return cloneTransaction(t), nil
		}
	}
	return nil, nil
}

func (r transactionRepo) ListByParty(ctx context.Context, userID uuid.UUID, status *transaction.Status, limit, offset int) ([]*transaction.Transaction, error) {
	r.s.lock()
	defer r.s.unlock()
	var out []*transaction.Transaction
	for _, t := range r.s.d.transactions {
		if !t.IsParty(userID) {
			continue
		}
		if status != nil && t.Status != *status {
			continue
		}
		out = append(out, cloneTransaction(t))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r transactionRepo) Update(ctx context.Context, t *transaction.Transaction) error {
	r.s.lock()
	defer r.s.unlock()
	r.s.d.transactions[t.TransactionID] = cloneTransaction(t)
	return nil
}
