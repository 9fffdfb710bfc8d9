package service_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/todaysales-settlement/internal/domain/sale"
	"github.com/todaysales-settlement/internal/domain/settlement"
	"github.com/todaysales-settlement/internal/domain/shared"
)

// memStore keeps settlements and sales in memory with the constraints of the real
// schema: one settlement per date, unique order numbers, append-only claims and a
// foreign key from sales to settlements.
type memStore struct {
	mu          sync.Mutex
	txMu        sync.Mutex
	settlements map[int64]settlement.Settlement
	sales       map[int64]sale.Sale
	nextID      int64

	failOn         map[string]error
	claimsUntilErr int
	hideExisting   bool
}

func newMemStore() *memStore {
	return &memStore{
		settlements: make(map[int64]settlement.Settlement),
		sales:       make(map[int64]sale.Sale),
		failOn:      make(map[string]error),
	}
}

func (m *memStore) fail(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failOn, op)
		return
	}
	m.failOn[op] = err
}

type memSnapshot struct {
	settlements map[int64]settlement.Settlement
	sales       map[int64]sale.Sale
}

func (m *memStore) snapshot() memSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := memSnapshot{
		settlements: make(map[int64]settlement.Settlement, len(m.settlements)),
		sales:       make(map[int64]sale.Sale, len(m.sales)),
	}
	for id, s := range m.settlements {
		snap.settlements[id] = *cloneSettlement(&s)
	}
	for id, s := range m.sales {
		snap.sales[id] = *cloneSale(&s)
	}
	return snap
}

func (m *memStore) restore(snap memSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settlements = snap.settlements
	m.sales = snap.sales
}

// ExecuteTx serializes transactions and discards their writes on error.
func (m *memStore) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	snap := m.snapshot()
	if err := fn(nil); err != nil {
		m.restore(snap)
		return err
	}
	if err := ctx.Err(); err != nil {
		m.restore(snap)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func cloneSettlement(s *settlement.Settlement) *settlement.Settlement {
	c := *s
	if s.CompletedAt != nil {
		at := *s.CompletedAt
		c.CompletedAt = &at
	}
	c.SaleIDs = append([]int64(nil), s.SaleIDs...)
	return &c
}

func cloneSale(s *sale.Sale) *sale.Sale {
	c := *s
	if s.SettlementID != nil {
		id := *s.SettlementID
		c.SettlementID = &id
	}
	return &c
}

// seedSale stores a sale directly, bypassing the service.
func (m *memStore) seedSale(s *sale.Sale) *sale.Sale {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	s.ID = m.nextID
	m.sales[s.ID] = *cloneSale(s)
	return s
}

// seedSettlement stores a settlement directly, bypassing the service.
func (m *memStore) seedSettlement(s *settlement.Settlement) *settlement.Settlement {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	s.ID = m.nextID
	m.settlements[s.ID] = *cloneSettlement(s)
	return s
}

func (m *memStore) saleByID(id int64) sale.Sale {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sales[id]
}

func (m *memStore) settlementsOn(day time.Time) []settlement.Settlement {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []settlement.Settlement
	for _, s := range m.settlements {
		if settlement.Day(s.SettlementDate).Equal(settlement.Day(day)) {
			out = append(out, s)
		}
	}
	return out
}

type memSettlements struct {
	store *memStore
}

func (r *memSettlements) WithTx(pgx.Tx) settlement.Repository {
	return r
}

func (r *memSettlements) Create(_ context.Context, s *settlement.Settlement) error {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failOn["settlement.Create"]; err != nil {
		return err
	}
	for _, existing := range m.settlements {
		if settlement.Day(existing.SettlementDate).Equal(settlement.Day(s.SettlementDate)) {
			return settlement.ErrDuplicateSettlement{Date: s.SettlementDate}
		}
	}
	m.nextID++
	s.ID = m.nextID
	m.settlements[s.ID] = *cloneSettlement(s)
	return nil
}

func (r *memSettlements) ExistsByDate(_ context.Context, date time.Time) (bool, error) {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failOn["settlement.ExistsByDate"]; err != nil {
		return false, err
	}
	if m.hideExisting {
		return false, nil
	}
	for _, s := range m.settlements {
		if settlement.Day(s.SettlementDate).Equal(settlement.Day(date)) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memSettlements) withSales(s settlement.Settlement) *settlement.Settlement {
	c := cloneSettlement(&s)
	c.SaleIDs = nil
	for _, sl := range r.store.sales {
		if sl.SettlementID != nil && *sl.SettlementID == s.ID {
			c.SaleIDs = append(c.SaleIDs, sl.ID)
		}
	}
	sort.Slice(c.SaleIDs, func(i, j int) bool { return c.SaleIDs[i] < c.SaleIDs[j] })
	return c
}

func (r *memSettlements) GetByID(_ context.Context, id int64) (*settlement.Settlement, error) {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.settlements[id]
	if !ok {
		return nil, settlement.ErrSettlementNotFound{ID: id}
	}
	return r.withSales(s), nil
}

func (r *memSettlements) GetByDate(_ context.Context, date time.Time) (*settlement.Settlement, error) {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failOn["settlement.GetByDate"]; err != nil {
		return nil, err
	}
	for _, s := range m.settlements {
		if settlement.Day(s.SettlementDate).Equal(settlement.Day(date)) {
			return r.withSales(s), nil
		}
	}
	return nil, settlement.ErrSettlementNotFound{Date: settlement.Day(date)}
}

func (r *memSettlements) LockByID(ctx context.Context, id int64) (*settlement.Settlement, error) {
	s, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.SaleIDs = nil
	return s, nil
}

func (r *memSettlements) Update(_ context.Context, s *settlement.Settlement) error {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failOn["settlement.Update"]; err != nil {
		return err
	}
	if _, ok := m.settlements[s.ID]; !ok {
		return settlement.ErrSettlementNotFound{ID: s.ID}
	}
	m.settlements[s.ID] = *cloneSettlement(s)
	return nil
}

func (r *memSettlements) Delete(_ context.Context, id int64) error {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.settlements[id]; !ok {
		return settlement.ErrSettlementNotFound{ID: id}
	}
	for _, sl := range m.sales {
		if sl.SettlementID != nil && *sl.SettlementID == id {
			return fmt.Errorf("foreign key violation: sale %d references settlement %d", sl.ID, id)
		}
	}
	delete(m.settlements, id)
	return nil
}

func (r *memSettlements) ListByDateRange(_ context.Context, from, to time.Time) ([]*settlement.Settlement, error) {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*settlement.Settlement
	for _, s := range m.settlements {
		d := settlement.Day(s.SettlementDate)
		if !d.Before(settlement.Day(from)) && !d.After(settlement.Day(to)) {
			out = append(out, cloneSettlement(&s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SettlementDate.Before(out[j].SettlementDate) })
	return out, nil
}

type memSales struct {
	store *memStore
}

func (r *memSales) WithTx(pgx.Tx) sale.Repository {
	return r
}

func (r *memSales) Create(_ context.Context, s *sale.Sale) error {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failOn["sale.Create"]; err != nil {
		return err
	}
	for _, existing := range m.sales {
		if existing.OrderNumber == s.OrderNumber {
			return sale.ErrDuplicateOrderNumber{OrderNumber: s.OrderNumber}
		}
	}
	m.nextID++
	s.ID = m.nextID
	m.sales[s.ID] = *cloneSale(s)
	return nil
}

func (r *memSales) GetByID(_ context.Context, id int64) (*sale.Sale, error) {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sales[id]
	if !ok {
		return nil, sale.ErrSaleNotFound{ID: id}
	}
	return cloneSale(&s), nil
}

func (r *memSales) FindUnsettled(_ context.Context, start, end time.Time) ([]*sale.Sale, error) {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*sale.Sale
	for _, s := range m.sales {
		if s.Unsettled() && !s.TransactionTime.Before(start) && s.TransactionTime.Before(end) {
			out = append(out, cloneSale(&s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memSales) LockUnsettled(ctx context.Context, start, end time.Time) ([]*sale.Sale, error) {
	r.store.mu.Lock()
	err := r.store.failOn["sale.LockUnsettled"]
	r.store.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return r.FindUnsettled(ctx, start, end)
}

func (r *memSales) Claim(_ context.Context, s *sale.Sale) error {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failOn["sale.Claim"]; err != nil {
		if m.claimsUntilErr <= 0 {
			return err
		}
		m.claimsUntilErr--
	}
	stored, ok := m.sales[s.ID]
	if !ok {
		return sale.ErrSaleNotFound{ID: s.ID}
	}
	if !stored.Unsettled() {
		return sale.ErrSaleAlreadyClaimed{SaleID: s.ID}
	}
	if s.SettlementID == nil {
		return fmt.Errorf("sale %d has no settlement", s.ID)
	}
	m.sales[s.ID] = *cloneSale(s)
	return nil
}

func (r *memSales) ReleaseBySettlement(_ context.Context, settlementID int64) (int64, error) {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	var released int64
	for id, s := range m.sales {
		if s.SettlementID != nil && *s.SettlementID == settlementID {
			s.SettlementID = nil
			s.Settled = false
			m.sales[id] = s
			released++
		}
	}
	return released, nil
}

func (r *memSales) FindBySettlement(_ context.Context, settlementID int64) ([]*sale.Sale, error) {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*sale.Sale
	for _, s := range m.sales {
		if s.SettlementID != nil && *s.SettlementID == settlementID {
			out = append(out, cloneSale(&s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type published struct {
	routingKey string
	event      shared.Event
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, _ string, routingKey string, event shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, published{routingKey: routingKey, event: event})
	return nil
}

func (p *fakePublisher) byType(eventType string) []shared.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []shared.Event
	for _, e := range p.events {
		if e.event.Meta().EventType == eventType {
			out = append(out, e.event)
		}
	}
	return out
}
