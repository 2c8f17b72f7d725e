package checkout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/shopkeeper/internal/checkout/helpers"
	"github.com/angelmondragon/shopkeeper/internal/discount"
	"github.com/angelmondragon/shopkeeper/internal/product"
	"github.com/angelmondragon/shopkeeper/internal/sales"
	pkgerrors "github.com/angelmondragon/shopkeeper/pkg/errors"
	"github.com/angelmondragon/shopkeeper/pkg/logger"
	"github.com/angelmondragon/shopkeeper/pkg/metrics"
)

type salesStore interface {
	LoadSales(ctx context.Context, catalog []*product.Product) ([]*sales.Sale, error)
	SaveSales(ctx context.Context, history []*sales.Sale) error
}

// inventory is the slice of catalog.Service the sales side depends on.
type inventory interface {
	FindByID(id int) (*product.Product, bool)
	Snapshot() []*product.Product
	ReplaceAll(ctx context.Context, entries []*product.Product) error
	LoadErr() error
}

type idSource interface {
	NextSaleID(ctx context.Context) (int, error)
}

// Manager opens and processes sales and reports over the sale history.
type Manager struct {
	store     salesStore
	inventory inventory
	ids       idSource
	logg      *logger.Logger
	metrics   *metrics.SalesMetrics
	now       func() time.Time

	mu      sync.RWMutex
	history []*sales.Sale
	loadErr error
}

// NewManager loads the sale history against the current catalog. A history
// that cannot be read is served empty and processing is refused.
func NewManager(
	ctx context.Context,
	store salesStore,
	inv inventory,
	ids idSource,
	logg *logger.Logger,
	m *metrics.SalesMetrics,
	now func() time.Time,
) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("sales store required")
	}
	if inv == nil {
		return nil, fmt.Errorf("inventory required")
	}
	if ids == nil {
		return nil, fmt.Errorf("id source required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if now == nil {
		now = time.Now
	}
	mgr := &Manager{
		store:     store,
		inventory: inv,
		ids:       ids,
		logg:      logg,
		metrics:   m,
		now:       now,
	}
	history, err := store.LoadSales(ctx, inv.Snapshot())
	if err != nil {
		mgr.loadErr = err
		logg.Warn(logg.WithOperation(ctx, "sales.load"), "sales history unavailable, serving empty history")
	}
	if history == nil {
		history = []*sales.Sale{}
	}
	mgr.history = history
	return mgr, nil
}

// OpenSale starts an empty sale dated today with the next sale id.
func (m *Manager) OpenSale(ctx context.Context, policy discount.Policy) (*sales.Sale, error) {
	id, err := m.ids.NextSaleID(ctx)
	if err != nil {
		return nil, err
	}
	return sales.New(id, m.now(), policy)
}

// AddItem adds qty units of the catalog entry with productID to s. It reports
// false when the catalog has no such entry.
func (m *Manager) AddItem(s *sales.Sale, productID, qty int) (bool, error) {
	if s == nil {
		return false, pkgerrors.Validation("sale", "sale is required")
	}
	p, ok := m.inventory.FindByID(productID)
	if !ok {
		return false, nil
	}
	if err := s.AddLineItem(p, qty); err != nil {
		return false, err
	}
	return true, nil
}

// ProcessSale finalizes s. Stock for every line item is taken from working
// copies of the catalog, the sale is upserted into the history, and sales then
// catalog are written. Memory is only updated once both writes succeed; if the
// catalog write fails the previous history is written back.
func (m *Manager) ProcessSale(ctx context.Context, s *sales.Sale) (sales.Receipt, error) {
	ctx = m.logg.WithOperation(ctx, "sales.process")
	receipt, err := m.process(ctx, s)
	if err != nil {
		code := pkgerrors.CodeInternal
		if typed := pkgerrors.As(err); typed != nil {
			code = typed.Code()
		}
		m.metrics.IncRejected(string(code))
		return sales.Receipt{}, err
	}
	m.metrics.ObserveProcessed(receipt.Total)
	return receipt, nil
}

func (m *Manager) process(ctx context.Context, s *sales.Sale) (sales.Receipt, error) {
	if err := helpers.ValidateSale(s); err != nil {
		return sales.Receipt{}, err
	}
	ctx = m.logg.WithSaleID(ctx, s.ID())

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loadErr != nil {
		return sales.Receipt{}, pkgerrors.Wrap(pkgerrors.CodeDependency, m.loadErr, "sales history was not loaded; refusing to overwrite it")
	}
	if err := m.inventory.LoadErr(); err != nil {
		return sales.Receipt{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "catalog was not loaded; refusing to overwrite it")
	}

	working := m.inventory.Snapshot()
	if err := helpers.ApplyDecrements(working, s.QuantityByProduct()); err != nil {
		m.logg.Warn(ctx, "sale rejected")
		return sales.Receipt{}, err
	}

	finalized := s.Clone()
	if err := finalized.Finalize(); err != nil {
		return sales.Receipt{}, err
	}
	next := upsert(m.history, finalized)

	if err := m.store.SaveSales(ctx, next); err != nil {
		return sales.Receipt{}, err
	}
	if err := m.inventory.ReplaceAll(ctx, working); err != nil {
		if restoreErr := m.store.SaveSales(ctx, m.history); restoreErr != nil {
			m.logg.Error(ctx, "failed to restore sales history after catalog save failure", restoreErr)
		}
		return sales.Receipt{}, err
	}

	m.history = next
	if err := s.Finalize(); err != nil {
		return sales.Receipt{}, err
	}
	m.logg.Info(m.logg.WithField(ctx, "total", s.TotalAmount().String()), "sale processed")
	return s.Receipt(), nil
}

// upsert returns a copy of history with s replacing the sale of the same id,
// or appended when no sale matches.
func upsert(history []*sales.Sale, s *sales.Sale) []*sales.Sale {
	out := make([]*sales.Sale, 0, len(history)+1)
	replaced := false
	for _, existing := range history {
		if existing.ID() == s.ID() {
			out = append(out, s)
			replaced = true
			continue
		}
		out = append(out, existing)
	}
	if !replaced {
		out = append(out, s)
	}
	return out
}

// ListSales returns copies of every processed sale in history order.
func (m *Manager) ListSales() []*sales.Sale {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*sales.Sale, len(m.history))
	for i, s := range m.history {
		out[i] = s.Clone()
	}
	return out
}

func (m *Manager) FindSale(id int) (*sales.Sale, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.history {
		if s.ID() == id {
			return s.Clone(), true
		}
	}
	return nil, false
}

// LoadErr reports why the sale history could not be loaded, if it could not.
func (m *Manager) LoadErr() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadErr
}
