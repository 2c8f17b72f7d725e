package checkout

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/angelmondragon/shopkeeper/internal/catalog"
	"github.com/angelmondragon/shopkeeper/internal/discount"
	"github.com/angelmondragon/shopkeeper/internal/product"
	"github.com/angelmondragon/shopkeeper/internal/recordstore"
	"github.com/angelmondragon/shopkeeper/internal/sales"
	"github.com/angelmondragon/shopkeeper/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopkeeper/pkg/errors"
	"github.com/angelmondragon/shopkeeper/pkg/logger"
	"github.com/angelmondragon/shopkeeper/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

var today = time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return today }

// flakyCatalog fails catalog writes on demand.
type flakyCatalog struct {
	*recordstore.FileStore
	fail bool
}

func (f *flakyCatalog) SaveCatalog(ctx context.Context, entries []*product.Product) error {
	if f.fail {
		return pkgerrors.New(pkgerrors.CodeDependency, "disk full")
	}
	return f.FileStore.SaveCatalog(ctx, entries)
}

type harness struct {
	catalogPath string
	salesPath   string
	store       *recordstore.FileStore
	flaky       *flakyCatalog
	catalog     *catalog.Service
	manager     *Manager
	reg         *prometheus.Registry
}

func newHarness(t *testing.T, entries []*product.Product) *harness {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()
	h := &harness{
		catalogPath: filepath.Join(dir, "products.csv"),
		salesPath:   filepath.Join(dir, "sales.csv"),
		reg:         prometheus.NewRegistry(),
	}
	store, err := recordstore.NewFileStore(h.catalogPath, h.salesPath, logger.Nop(), nil)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if len(entries) > 0 {
		if err := store.SaveCatalog(ctx, entries); err != nil {
			t.Fatalf("seed catalog: %v", err)
		}
	}
	h.store = store
	h.flaky = &flakyCatalog{FileStore: store}

	h.catalog, err = catalog.NewService(ctx, h.flaky, store.Counters(), logger.Nop(), catalog.Options{Now: clock})
	if err != nil {
		t.Fatalf("catalog.NewService: %v", err)
	}
	h.manager, err = NewManager(ctx, store, h.catalog, store.Counters(), logger.Nop(), metrics.NewSalesMetrics(h.reg), clock)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return h
}

func scenarioCatalog(t *testing.T) []*product.Product {
	t.Helper()
	tenPercent, err := discount.Percentage(decimal.NewFromInt(10))
	if err != nil {
		t.Fatalf("percentage: %v", err)
	}
	params := []product.Params{
		{ID: 1, Name: "Widget A", Category: enums.ProductCategoryOther, UnitPrice: decimal.RequireFromString("10.00"),
			StockQuantity: 50, LowStockThreshold: 5, Kind: enums.ProductKindNonPerishable, WarrantyMonths: 12},
		{ID: 2, Name: "Juice B", Category: enums.ProductCategoryDrinks, UnitPrice: decimal.RequireFromString("5.00"),
			StockQuantity: 20, LowStockThreshold: 5, Kind: enums.ProductKindPerishable,
			ExpiryDate: today.AddDate(0, 0, 30), Discount: tenPercent},
		{ID: 3, Name: "Sponge", Category: enums.ProductCategoryCleaning, UnitPrice: decimal.RequireFromString("2.00"),
			StockQuantity: 30, LowStockThreshold: 5, Kind: enums.ProductKindNonPerishable},
		{ID: 4, Name: "Mop", Category: enums.ProductCategoryCleaning, UnitPrice: decimal.RequireFromString("8.00"),
			StockQuantity: 5, LowStockThreshold: 1, Kind: enums.ProductKindNonPerishable},
	}
	out := make([]*product.Product, 0, len(params))
	for _, p := range params {
		entry, err := product.Restore(p)
		if err != nil {
			t.Fatalf("restore: %v", err)
		}
		out = append(out, entry)
	}
	return out
}

func (h *harness) sell(t *testing.T, policy discount.Policy, lines ...[2]int) *sales.Sale {
	t.Helper()
	s, err := h.manager.OpenSale(context.Background(), policy)
	if err != nil {
		t.Fatalf("OpenSale: %v", err)
	}
	for _, line := range lines {
		ok, err := h.manager.AddItem(s, line[0], line[1])
		if err != nil || !ok {
			t.Fatalf("AddItem(%d, %d): %v %v", line[0], line[1], ok, err)
		}
	}
	return s
}

func (h *harness) stock(t *testing.T, id int) int {
	t.Helper()
	p, ok := h.catalog.FindByID(id)
	if !ok {
		t.Fatalf("product %d missing", id)
	}
	return p.StockQuantity()
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	total := 0.0
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func TestProcessSaleScenario(t *testing.T) {
	h := newHarness(t, scenarioCatalog(t))
	ctx := context.Background()

	s := h.sell(t, discount.Fixed(decimal.RequireFromString("5.00")), [2]int{1, 3}, [2]int{2, 4})
	totals := s.Totals()
	if !totals.ItemsSubtotal.Equal(decimal.NewFromInt(50)) ||
		!totals.ItemDiscountsTotal.Equal(decimal.NewFromInt(2)) ||
		!totals.Subtotal.Equal(decimal.NewFromInt(48)) ||
		!totals.SaleDiscountAmount.Equal(decimal.NewFromInt(5)) ||
		!totals.TotalAmount.Equal(decimal.NewFromInt(43)) ||
		!totals.DiscountAmount.Equal(decimal.NewFromInt(7)) {
		t.Fatalf("unexpected totals %+v", totals)
	}

	receipt, err := h.manager.ProcessSale(ctx, s)
	if err != nil {
		t.Fatalf("ProcessSale: %v", err)
	}
	if !receipt.Total.Equal(decimal.NewFromInt(43)) || len(receipt.Lines) != 2 {
		t.Fatalf("unexpected receipt %+v", receipt)
	}
	if h.stock(t, 1) != 47 || h.stock(t, 2) != 16 {
		t.Fatalf("expected stock 47/16, got %d/%d", h.stock(t, 1), h.stock(t, 2))
	}
	if !s.IsFinalized() {
		t.Fatal("processed sale must be finalized")
	}
	if got := counterValue(t, h.reg, "sales_processed_total"); got != 1 {
		t.Fatalf("expected one processed sale, got %v", got)
	}

	reopened, err := recordstore.NewFileStore(h.catalogPath, h.salesPath, logger.Nop(), nil)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	entries, err := reopened.LoadCatalog(ctx)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	history, err := reopened.LoadSales(ctx, entries)
	if err != nil {
		t.Fatalf("LoadSales: %v", err)
	}
	if len(history) != 1 || !history[0].TotalAmount().Equal(decimal.NewFromInt(43)) {
		t.Fatalf("expected the sale on disk, got %d sales", len(history))
	}
	if entries[0].StockQuantity() != 47 || entries[1].StockQuantity() != 16 {
		t.Fatal("expected decremented stock on disk")
	}
}

func TestProcessSaleRejectsInsufficientStock(t *testing.T) {
	h := newHarness(t, scenarioCatalog(t))
	ctx := context.Background()

	s := h.sell(t, discount.None(), [2]int{1, 2}, [2]int{4, 5})
	if ok, err := h.catalog.UpdateStock(ctx, 4, 1); err != nil || !ok {
		t.Fatalf("UpdateStock: %v %v", ok, err)
	}

	_, err := h.manager.ProcessSale(ctx, s)
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if h.stock(t, 1) != 50 || h.stock(t, 4) != 1 {
		t.Fatal("a rejected sale must not change any stock")
	}
	if s.IsFinalized() || len(h.manager.ListSales()) != 0 {
		t.Fatal("a rejected sale stays open and out of history")
	}
	if got := counterValue(t, h.reg, "sales_rejected_total"); got != 1 {
		t.Fatalf("expected one rejected sale, got %v", got)
	}
	if _, err := os.Stat(h.salesPath); !os.IsNotExist(err) {
		t.Fatal("nothing should have been written for a rejected sale")
	}
}

func TestProcessSaleChecksAggregateQuantity(t *testing.T) {
	h := newHarness(t, scenarioCatalog(t))

	s := h.sell(t, discount.None(), [2]int{4, 3}, [2]int{4, 3})
	if _, err := h.manager.ProcessSale(context.Background(), s); !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict for 6 units over a stock of 5, got %v", err)
	}
	if h.stock(t, 4) != 5 {
		t.Fatal("stock must be unchanged")
	}
}

func TestProcessSaleRestoresHistoryWhenCatalogSaveFails(t *testing.T) {
	h := newHarness(t, scenarioCatalog(t))
	ctx := context.Background()

	first := h.sell(t, discount.None(), [2]int{3, 1})
	if _, err := h.manager.ProcessSale(ctx, first); err != nil {
		t.Fatalf("ProcessSale: %v", err)
	}

	h.flaky.fail = true
	second := h.sell(t, discount.None(), [2]int{1, 1})
	if _, err := h.manager.ProcessSale(ctx, second); !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if second.IsFinalized() || h.stock(t, 1) != 50 {
		t.Fatal("failed processing must leave sale and stock untouched")
	}
	if len(h.manager.ListSales()) != 1 {
		t.Fatal("history must keep only the first sale")
	}

	onDisk, err := h.store.LoadSales(ctx, h.catalog.Snapshot())
	if err != nil {
		t.Fatalf("LoadSales: %v", err)
	}
	if len(onDisk) != 1 || onDisk[0].ID() != first.ID() {
		t.Fatalf("expected the previous history on disk, got %d sales", len(onDisk))
	}

	h.flaky.fail = false
	if _, err := h.manager.ProcessSale(ctx, second); err != nil {
		t.Fatalf("retry after recovery: %v", err)
	}
	if h.stock(t, 1) != 49 {
		t.Fatalf("expected stock 49, got %d", h.stock(t, 1))
	}
}

func TestProcessSaleUpsertsByID(t *testing.T) {
	h := newHarness(t, scenarioCatalog(t))
	ctx := context.Background()

	first := h.sell(t, discount.None(), [2]int{3, 1})
	if _, err := h.manager.ProcessSale(ctx, first); err != nil {
		t.Fatalf("ProcessSale: %v", err)
	}

	again, err := sales.New(first.ID(), today, discount.None())
	if err != nil {
		t.Fatalf("sales.New: %v", err)
	}
	if ok, err := h.manager.AddItem(again, 3, 4); err != nil || !ok {
		t.Fatalf("AddItem: %v %v", ok, err)
	}
	if _, err := h.manager.ProcessSale(ctx, again); err != nil {
		t.Fatalf("ProcessSale: %v", err)
	}

	history := h.manager.ListSales()
	if len(history) != 1 {
		t.Fatalf("expected the sale to be replaced, got %d sales", len(history))
	}
	if !history[0].Subtotal().Equal(decimal.NewFromInt(8)) {
		t.Fatalf("expected replaced subtotal 8, got %s", history[0].Subtotal())
	}
}

func TestProcessSaleRejectsFinalizedAndEmptySales(t *testing.T) {
	h := newHarness(t, scenarioCatalog(t))
	ctx := context.Background()

	empty := h.sell(t, discount.None())
	if _, err := h.manager.ProcessSale(ctx, empty); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	s := h.sell(t, discount.None(), [2]int{1, 1})
	if _, err := h.manager.ProcessSale(ctx, s); err != nil {
		t.Fatalf("ProcessSale: %v", err)
	}
	if _, err := h.manager.ProcessSale(ctx, s); !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if h.stock(t, 1) != 49 {
		t.Fatal("a sale must only be applied once")
	}
}

func TestOpenSaleAndAddItem(t *testing.T) {
	h := newHarness(t, scenarioCatalog(t))
	ctx := context.Background()

	first, err := h.manager.OpenSale(ctx, discount.None())
	if err != nil {
		t.Fatalf("OpenSale: %v", err)
	}
	second, err := h.manager.OpenSale(ctx, discount.None())
	if err != nil {
		t.Fatalf("OpenSale: %v", err)
	}
	if first.ID() != 1 || second.ID() != 2 {
		t.Fatalf("unexpected sale ids %d %d", first.ID(), second.ID())
	}
	if !first.Date().Equal(time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected sale dated today, got %s", first.Date())
	}

	if ok, err := h.manager.AddItem(first, 99, 1); ok || err != nil {
		t.Fatalf("unknown product must be an absent result, got %v %v", ok, err)
	}
	if ok, err := h.manager.AddItem(first, 4, 6); ok || !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error over stock, got %v %v", ok, err)
	}
	if _, found := h.manager.FindSale(first.ID()); found {
		t.Fatal("open sales are not part of history")
	}
}

func TestReports(t *testing.T) {
	h := newHarness(t, scenarioCatalog(t))
	ctx := context.Background()

	for _, s := range []*sales.Sale{
		h.sell(t, discount.Fixed(decimal.RequireFromString("5.00")), [2]int{1, 3}, [2]int{2, 4}),
		h.sell(t, discount.None(), [2]int{3, 5}),
		h.sell(t, discount.None(), [2]int{2, 2}),
	} {
		if _, err := h.manager.ProcessSale(ctx, s); err != nil {
			t.Fatalf("ProcessSale: %v", err)
		}
	}

	top := h.manager.TopSelling(4)
	wantTop := []struct{ id, qty int }{{2, 6}, {3, 5}, {1, 3}, {4, 0}}
	if len(top) != len(wantTop) {
		t.Fatalf("expected %d ranked products, got %d", len(wantTop), len(top))
	}
	for i, want := range wantTop {
		if top[i].Product.ID() != want.id || top[i].Quantity != want.qty {
			t.Fatalf("top[%d]: expected %d x%d, got %d x%d", i, want.id, want.qty, top[i].Product.ID(), top[i].Quantity)
		}
	}

	least := h.manager.LeastSelling(2)
	if len(least) != 2 || least[0].Product.ID() != 4 || least[1].Product.ID() != 1 {
		t.Fatalf("unexpected least selling %+v", least)
	}
	if len(h.manager.TopSelling(0)) != 0 || len(h.manager.TopSelling(10)) != 4 {
		t.Fatal("unexpected top selling bounds")
	}
	if h.manager.ProductSalesCount(2) != 6 || h.manager.ProductSalesCount(99) != 0 {
		t.Fatal("unexpected product sales count")
	}

	revenues := h.manager.RevenueByCategory()
	want := map[enums.ProductCategory]string{
		enums.ProductCategoryDrinks:   "27",
		enums.ProductCategoryCleaning: "10",
		enums.ProductCategoryOther:    "30",
	}
	if len(revenues) != len(want) {
		t.Fatalf("expected %d categories, got %d", len(want), len(revenues))
	}
	for _, entry := range revenues {
		if !entry.Revenue.Equal(decimal.RequireFromString(want[entry.Category])) {
			t.Fatalf("%s: expected %s, got %s", entry.Category, want[entry.Category], entry.Revenue)
		}
	}
	if best, ok := h.manager.BestSellingCategory(); !ok || best != enums.ProductCategoryOther {
		t.Fatalf("expected OTHER, got %q", best)
	}

	summary := h.manager.Summary()
	if summary.SaleCount != 3 || !summary.Revenue.Equal(decimal.NewFromInt(67)) {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if !summary.Average.Equal(decimal.RequireFromString("22.33")) {
		t.Fatalf("expected average 22.33, got %s", summary.Average)
	}
	if !summary.HasBest || summary.BestCategory != enums.ProductCategoryOther {
		t.Fatalf("unexpected best category %q", summary.BestCategory)
	}
}

func TestSummaryWithoutSales(t *testing.T) {
	h := newHarness(t, scenarioCatalog(t))

	summary := h.manager.Summary()
	if summary.SaleCount != 0 || !summary.Average.IsZero() || summary.HasBest {
		t.Fatalf("unexpected empty summary %+v", summary)
	}
}

func TestUnreadableHistoryRefusesProcessing(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "products.csv")
	salesPath := filepath.Join(dir, "sales.csv")
	if err := os.Mkdir(salesPath, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	store, err := recordstore.NewFileStore(catalogPath, salesPath, logger.Nop(), nil)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := store.SaveCatalog(ctx, scenarioCatalog(t)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	inv, err := catalog.NewService(ctx, store, store.Counters(), logger.Nop(), catalog.Options{Now: clock})
	if err != nil {
		t.Fatalf("catalog.NewService: %v", err)
	}
	mgr, err := NewManager(ctx, store, inv, store.Counters(), logger.Nop(), nil, clock)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if mgr.LoadErr() == nil || len(mgr.ListSales()) != 0 {
		t.Fatal("expected an empty history with its load error kept")
	}

	s, err := sales.New(1, today, discount.None())
	if err != nil {
		t.Fatalf("sales.New: %v", err)
	}
	if ok, err := mgr.AddItem(s, 1, 1); err != nil || !ok {
		t.Fatalf("AddItem: %v %v", ok, err)
	}
	if _, err := mgr.ProcessSale(ctx, s); !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if p, _ := inv.FindByID(1); p.StockQuantity() != 50 {
		t.Fatal("stock must be unchanged")
	}
}

func TestNewManagerRequiresDeps(t *testing.T) {
	ctx := context.Background()
	store, err := recordstore.NewFileStore(filepath.Join(t.TempDir(), "p.csv"), filepath.Join(t.TempDir(), "s.csv"), logger.Nop(), nil)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	inv, err := catalog.NewService(ctx, store, store.Counters(), logger.Nop(), catalog.Options{})
	if err != nil {
		t.Fatalf("catalog.NewService: %v", err)
	}
	if _, err := NewManager(ctx, nil, inv, store.Counters(), logger.Nop(), nil, nil); err == nil {
		t.Fatal("expected missing store to fail")
	}
	if _, err := NewManager(ctx, store, nil, store.Counters(), logger.Nop(), nil, nil); err == nil {
		t.Fatal("expected missing inventory to fail")
	}
	if _, err := NewManager(ctx, store, inv, nil, logger.Nop(), nil, nil); err == nil {
		t.Fatal("expected missing id source to fail")
	}
}
