package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/shopkeeper/internal/discount"
	"github.com/angelmondragon/shopkeeper/internal/product"
	"github.com/angelmondragon/shopkeeper/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopkeeper/pkg/errors"
	"github.com/angelmondragon/shopkeeper/pkg/logger"
)

type catalogStore interface {
	LoadCatalog(ctx context.Context) ([]*product.Product, error)
	SaveCatalog(ctx context.Context, entries []*product.Product) error
}

type idSource interface {
	NextProductID(ctx context.Context) (int, error)
}

// Options tunes time-dependent behavior.
type Options struct {
	NearExpiryDays int
	Now            func() time.Time
}

// Service owns the in-memory catalog. Every mutation works on a copy, saves
// the whole copy, and only then replaces the in-memory catalog.
type Service struct {
	store   catalogStore
	ids     idSource
	logg    *logger.Logger
	now     func() time.Time
	nearDay int

	mu      sync.RWMutex
	entries []*product.Product
	loadErr error
}

// NewService loads the catalog. When storage cannot be read the service
// serves an empty catalog and refuses mutations so the stored file is not
// overwritten with nothing.
func NewService(ctx context.Context, store catalogStore, ids idSource, logg *logger.Logger, opts Options) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("catalog store required")
	}
	if ids == nil {
		return nil, fmt.Errorf("id source required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NearExpiryDays <= 0 {
		opts.NearExpiryDays = product.DefaultNearExpiryDays
	}
	s := &Service{
		store:   store,
		ids:     ids,
		logg:    logg,
		now:     opts.Now,
		nearDay: opts.NearExpiryDays,
	}
	entries, err := store.LoadCatalog(ctx)
	if err != nil {
		s.loadErr = err
		logg.Warn(logg.WithOperation(ctx, "catalog.load"), "catalog unavailable, serving empty catalog")
	}
	s.entries = entries
	return s, nil
}

// AddProduct validates input and appends a new entry with the next free id.
func (s *Service) AddProduct(ctx context.Context, input AddProductInput) (*product.Product, error) {
	ctx = s.logg.WithOperation(ctx, "catalog.add")
	if err := validateInput(input); err != nil {
		return nil, err
	}
	params := product.Params{
		Name:              input.Name,
		Category:          input.Category,
		UnitPrice:         input.UnitPrice,
		StockQuantity:     input.StockQuantity,
		LowStockThreshold: input.LowStockThreshold,
		Kind:              input.Kind,
		ExpiryDate:        input.ExpiryDate,
		WarrantyMonths:    input.WarrantyMonths,
		Discount:          activeOrNone(input.Discount),
	}
	today := s.now()
	if err := product.CheckNew(params, today); err != nil {
		return nil, err
	}
	id, err := s.ids.NextProductID(ctx)
	if err != nil {
		return nil, err
	}
	params.ID = id
	created, err := product.New(params, today)
	if err != nil {
		return nil, err
	}

	err = s.mutate(ctx, func(entries []*product.Product) ([]*product.Product, error) {
		return append(entries, created), nil
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithProductID(ctx, id), "product added")
	return created.Clone(), nil
}

// RemoveProduct deletes the entry with id. It reports false when no entry matches.
func (s *Service) RemoveProduct(ctx context.Context, id int) (bool, error) {
	ctx = s.logg.WithProductID(s.logg.WithOperation(ctx, "catalog.remove"), id)
	found := false
	err := s.mutate(ctx, func(entries []*product.Product) ([]*product.Product, error) {
		kept := entries[:0]
		for _, p := range entries {
			if p.ID() == id {
				found = true
				continue
			}
			kept = append(kept, p)
		}
		if !found {
			return nil, errNotFound
		}
		return kept, nil
	})
	if err == errNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.logg.Info(ctx, "product removed")
	return true, nil
}

// IncreaseStock adds n units to the entry with id.
func (s *Service) IncreaseStock(ctx context.Context, id, n int) (bool, error) {
	return s.update(ctx, "catalog.increase_stock", id, func(p *product.Product) error {
		if !p.IncreaseStock(n) {
			return pkgerrors.Validation("quantity", "quantity must be greater than 0")
		}
		return nil
	})
}

// DecreaseStock removes n units from the entry with id.
func (s *Service) DecreaseStock(ctx context.Context, id, n int) (bool, error) {
	return s.update(ctx, "catalog.decrease_stock", id, func(p *product.Product) error {
		if n <= 0 {
			return pkgerrors.Validation("quantity", "quantity must be greater than 0")
		}
		if !p.DecreaseStock(n) {
			return insufficientStock(p, n)
		}
		return nil
	})
}

// UpdateStock sets the stock of the entry with id to qty.
func (s *Service) UpdateStock(ctx context.Context, id, qty int) (bool, error) {
	return s.update(ctx, "catalog.update_stock", id, func(p *product.Product) error {
		return p.SetStockQuantity(qty)
	})
}

// SetDiscountPolicy attaches policy to the entry with id.
func (s *Service) SetDiscountPolicy(ctx context.Context, id int, policy discount.Policy) (bool, error) {
	return s.update(ctx, "catalog.set_discount", id, func(p *product.Product) error {
		p.SetDiscountPolicy(policy)
		return nil
	})
}

// UpdateProduct applies every non-nil field of input to the entry with id.
func (s *Service) UpdateProduct(ctx context.Context, id int, input UpdateProductInput) (*product.Product, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	var updated *product.Product
	found, err := s.update(ctx, "catalog.update", id, func(p *product.Product) error {
		if err := applyUpdate(p, input, s.now()); err != nil {
			return err
		}
		updated = p.Clone()
		return nil
	})
	if err != nil || !found {
		return nil, err
	}
	return updated, nil
}

func applyUpdate(p *product.Product, input UpdateProductInput, today time.Time) error {
	if input.Name != nil {
		if err := p.Rename(*input.Name); err != nil {
			return err
		}
	}
	if input.Category != nil {
		if err := p.SetCategory(*input.Category); err != nil {
			return err
		}
	}
	if input.UnitPrice != nil {
		if err := p.SetUnitPrice(*input.UnitPrice); err != nil {
			return err
		}
	}
	if input.LowStockThreshold != nil {
		if err := p.SetLowStockThreshold(*input.LowStockThreshold); err != nil {
			return err
		}
	}
	if input.ExpiryDate != nil {
		if err := p.SetExpiryDate(*input.ExpiryDate, today); err != nil {
			return err
		}
	}
	if input.WarrantyMonths != nil {
		if err := p.SetWarrantyMonths(*input.WarrantyMonths); err != nil {
			return err
		}
	}
	return nil
}

// FindByID returns a copy of the entry with id.
func (s *Service) FindByID(id int) (*product.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.entries {
		if p.ID() == id {
			return p.Clone(), true
		}
	}
	return nil, false
}

// FindByName returns the first entry whose name contains query, ignoring case.
func (s *Service) FindByName(query string) (*product.Product, bool) {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.entries {
		if strings.Contains(strings.ToLower(p.Name()), needle) {
			return p.Clone(), true
		}
	}
	return nil, false
}

// ListProducts returns copies of every entry in catalog order.
func (s *Service) ListProducts() []*product.Product {
	return s.filter(func(*product.Product) bool { return true })
}

func (s *Service) ListByCategory(category enums.ProductCategory) []*product.Product {
	return s.filter(func(p *product.Product) bool { return p.Category() == category })
}

func (s *Service) ListLowStock() []*product.Product {
	return s.filter((*product.Product).IsLowStock)
}

func (s *Service) ListExpired() []*product.Product {
	today := s.now()
	return s.filter(func(p *product.Product) bool { return p.IsExpired(today) })
}

func (s *Service) ListNearExpiry() []*product.Product {
	today := s.now()
	return s.filter(func(p *product.Product) bool { return p.IsNearExpiry(today, s.nearDay) })
}

// Snapshot is ListProducts under the name the sales side uses when it needs a
// working copy to stage stock changes on.
func (s *Service) Snapshot() []*product.Product {
	return s.ListProducts()
}

// ReplaceAll saves entries as the whole catalog and adopts them on success.
func (s *Service) ReplaceAll(ctx context.Context, entries []*product.Product) error {
	next := cloneAll(entries)
	return s.mutate(ctx, func([]*product.Product) ([]*product.Product, error) {
		return next, nil
	})
}

// LoadErr reports why the catalog could not be loaded, if it could not.
func (s *Service) LoadErr() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}

func (s *Service) filter(keep func(*product.Product) bool) []*product.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*product.Product{}
	for _, p := range s.entries {
		if keep(p) {
			out = append(out, p.Clone())
		}
	}
	return out
}

func (s *Service) update(ctx context.Context, operation string, id int, fn func(*product.Product) error) (bool, error) {
	ctx = s.logg.WithProductID(s.logg.WithOperation(ctx, operation), id)
	err := s.mutate(ctx, func(entries []*product.Product) ([]*product.Product, error) {
		for _, p := range entries {
			if p.ID() == id {
				return entries, fn(p)
			}
		}
		return nil, errNotFound
	})
	if err == errNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.logg.Info(ctx, "product updated")
	return true, nil
}

var errNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "product not found")

func (s *Service) mutate(ctx context.Context, fn func([]*product.Product) ([]*product.Product, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, s.loadErr, "catalog was not loaded; refusing to overwrite it")
	}
	next, err := fn(cloneAll(s.entries))
	if err != nil {
		return err
	}
	if err := s.store.SaveCatalog(ctx, next); err != nil {
		return err
	}
	s.entries = next
	return nil
}

func cloneAll(entries []*product.Product) []*product.Product {
	out := make([]*product.Product, len(entries))
	for i, p := range entries {
		out[i] = p.Clone()
	}
	return out
}

func activeOrNone(policy discount.Policy) discount.Policy {
	if !policy.IsActive() {
		return discount.None()
	}
	return policy
}

func insufficientStock(p *product.Product, requested int) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "product quantity is not enough").
		WithDetails(map[string]any{"product_id": p.ID(), "requested": requested, "available": p.StockQuantity()})
}
