package recordstore

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/shopkeeper/internal/product"
	"github.com/angelmondragon/shopkeeper/internal/sales"
	"github.com/angelmondragon/shopkeeper/pkg/db"
	"github.com/angelmondragon/shopkeeper/pkg/db/models"
	"github.com/angelmondragon/shopkeeper/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopkeeper/pkg/errors"
	"github.com/angelmondragon/shopkeeper/pkg/logger"
	"github.com/angelmondragon/shopkeeper/pkg/metrics"
	"github.com/angelmondragon/shopkeeper/pkg/types"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

// SQLiteStore keeps the same collections in an embedded database. Saves
// replace table contents inside one transaction.
type SQLiteStore struct {
	client   *db.Client
	logg     *logger.Logger
	metrics  *metrics.StoreMetrics
	counters *Counters
}

func NewSQLiteStore(client *db.Client, logg *logger.Logger, m *metrics.StoreMetrics) (*SQLiteStore, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	s := &SQLiteStore{client: client, logg: logg, metrics: m}
	s.counters = newCounters(s.scanMaxIDs)
	return s, nil
}

func (s *SQLiteStore) Counters() *Counters { return s.counters }

func (s *SQLiteStore) Close() error { return s.client.Close() }

func (s *SQLiteStore) LoadCatalog(ctx context.Context) ([]*product.Product, error) {
	defer observe(s.metrics, "load_catalog", time.Now())

	var rows []models.Product
	if err := s.client.DB().WithContext(ctx).Order("position").Find(&rows).Error; err != nil {
		s.logg.Error(ctx, "failed to load catalog", err)
		return []*product.Product{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load catalog")
	}

	entries := make([]*product.Product, 0, len(rows))
	var skipped error
	for i, row := range rows {
		p, err := productFromRow(row)
		if err != nil {
			skipped = multierr.Append(skipped, &SkipError{Record: i + 1, Err: err})
			continue
		}
		entries = append(entries, p)
		s.counters.ObserveProductID(p.ID())
	}
	_ = reportSkipped(ctx, s.logg, s.metrics, kindCatalog, skipped)
	return entries, nil
}

func (s *SQLiteStore) SaveCatalog(ctx context.Context, entries []*product.Product) error {
	defer observe(s.metrics, "save_catalog", time.Now())

	rows := make([]models.Product, 0, len(entries))
	for i, p := range entries {
		if err := checkName(p.Name()); err != nil {
			s.metrics.IncSaveFailure(kindCatalog)
			return err
		}
		rows = append(rows, productToRow(p, i))
	}

	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM products").Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		s.metrics.IncSaveFailure(kindCatalog)
		s.logg.Error(ctx, "failed to save catalog", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save catalog")
	}
	return nil
}

func (s *SQLiteStore) LoadSales(ctx context.Context, catalog []*product.Product) ([]*sales.Sale, error) {
	defer observe(s.metrics, "load_sales", time.Now())

	var rows []models.Sale
	err := s.client.DB().WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("position") }).
		Order("id").
		Find(&rows).Error
	if err != nil {
		s.logg.Error(ctx, "failed to load sales", err)
		return []*sales.Sale{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sales")
	}

	byID := make(map[int]*product.Product, len(catalog))
	for _, p := range catalog {
		byID[p.ID()] = p
	}

	history := make([]*sales.Sale, 0, len(rows))
	var skipped error
	for i, row := range rows {
		sale, err := saleFromRow(row, byID)
		if err != nil {
			skipped = multierr.Append(skipped, &SkipError{Record: i + 1, Err: err})
			continue
		}
		history = append(history, sale)
		s.counters.ObserveSaleID(sale.ID())
	}
	_ = reportSkipped(ctx, s.logg, s.metrics, kindSales, skipped)
	return history, nil
}

func (s *SQLiteStore) SaveSales(ctx context.Context, history []*sales.Sale) error {
	defer observe(s.metrics, "save_sales", time.Now())

	rows := make([]models.Sale, 0, len(history))
	for _, sale := range history {
		rows = append(rows, saleToRow(sale))
	}

	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM sale_items").Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM sales").Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		s.metrics.IncSaveFailure(kindSales)
		s.logg.Error(ctx, "failed to save sales", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save sales")
	}
	return nil
}

func (s *SQLiteStore) scanMaxIDs(ctx context.Context) (int, int, error) {
	var maxProduct, maxSale int
	conn := s.client.DB().WithContext(ctx)
	if err := conn.Raw("SELECT COALESCE(MAX(id), 0) FROM products").Scan(&maxProduct).Error; err != nil {
		return 0, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "scan catalog ids")
	}
	if err := conn.Raw("SELECT COALESCE(MAX(id), 0) FROM sales").Scan(&maxSale).Error; err != nil {
		return 0, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "scan sale ids")
	}
	return maxProduct, maxSale, nil
}

func productToRow(p *product.Product, position int) models.Product {
	discountType, discountParams := EncodePolicy(p.DiscountPolicy())
	row := models.Product{
		ID:                p.ID(),
		Position:          position,
		Name:              p.Name(),
		Category:          p.Category(),
		UnitPrice:         p.UnitPrice(),
		StockQuantity:     p.StockQuantity(),
		LowStockThreshold: p.LowStockThreshold(),
		Kind:              p.Kind(),
		DiscountType:      discountType,
		DiscountParams:    discountParams,
	}
	if expiry, ok := p.ExpiryDate(); ok {
		formatted := types.FormatDate(expiry)
		row.ExpiryDate = &formatted
	}
	if months, ok := p.WarrantyMonths(); ok {
		row.WarrantyMonths = &months
	}
	return row
}

func productFromRow(row models.Product) (*product.Product, error) {
	policy, err := DecodePolicy(row.DiscountType, row.DiscountParams)
	if err != nil {
		return nil, err
	}
	params := product.Params{
		ID:                row.ID,
		Name:              row.Name,
		Category:          row.Category,
		UnitPrice:         row.UnitPrice,
		StockQuantity:     row.StockQuantity,
		LowStockThreshold: row.LowStockThreshold,
		Kind:              row.Kind,
		Discount:          policy,
	}
	switch row.Kind {
	case enums.ProductKindPerishable:
		if row.ExpiryDate == nil {
			return nil, fmt.Errorf("perishable product %d has no expiry date", row.ID)
		}
		if params.ExpiryDate, err = types.ParseDate(*row.ExpiryDate); err != nil {
			return nil, err
		}
	case enums.ProductKindNonPerishable:
		if row.WarrantyMonths != nil {
			params.WarrantyMonths = *row.WarrantyMonths
		}
	}
	return product.Restore(params)
}

func saleToRow(sale *sales.Sale) models.Sale {
	items := sale.Items()
	row := models.Sale{
		ID:             sale.ID(),
		SaleDate:       types.FormatDate(sale.Date()),
		Subtotal:       sale.Subtotal(),
		DiscountAmount: sale.DiscountAmount(),
		TotalAmount:    sale.TotalAmount(),
		Items:          make([]models.SaleItem, 0, len(items)),
	}
	for i, item := range items {
		row.Items = append(row.Items, models.SaleItem{
			SaleID:    sale.ID(),
			Position:  i,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}
	return row
}

func saleFromRow(row models.Sale, catalog map[int]*product.Product) (*sales.Sale, error) {
	date, err := types.ParseDate(row.SaleDate)
	if err != nil {
		return nil, err
	}
	var items []sales.LineItem
	for _, item := range row.Items {
		p, ok := catalog[item.ProductID]
		if !ok {
			continue
		}
		items = append(items, sales.NewLineItem(p, item.Quantity))
	}
	return sales.Restore(row.ID, date, items, recordedTotals(row.Subtotal, row.DiscountAmount, row.TotalAmount))
}
