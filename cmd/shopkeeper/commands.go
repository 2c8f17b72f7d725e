package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/angelmondragon/shopkeeper/internal/catalog"
	"github.com/angelmondragon/shopkeeper/internal/checkout"
	"github.com/angelmondragon/shopkeeper/internal/discount"
	"github.com/angelmondragon/shopkeeper/internal/product"
	"github.com/angelmondragon/shopkeeper/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopkeeper/pkg/errors"
	"github.com/angelmondragon/shopkeeper/pkg/types"
	"github.com/shopspring/decimal"
)

// app holds the managers a command runs against.
type app struct {
	catalog *catalog.Service
	sales   *checkout.Manager
	out     io.Writer
}

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = []command{
	{name: "products", summary: "list catalog entries", run: runProducts},
	{name: "add-perishable", summary: "add a perishable product", run: runAddPerishable},
	{name: "add-nonperishable", summary: "add a non-perishable product", run: runAddNonPerishable},
	{name: "update", summary: "edit a product", run: runUpdate},
	{name: "remove", summary: "remove a product", run: runRemove},
	{name: "stock", summary: "add, remove or set stock", run: runStock},
	{name: "discount", summary: "set a product discount", run: runDiscount},
	{name: "sell", summary: "process a sale", run: runSell},
	{name: "sales", summary: "list processed sales", run: runSales},
	{name: "report", summary: "sales summary and rankings", run: runReport},
}

var errUsage = pkgerrors.New(pkgerrors.CodeValidation, "usage")

func (a *app) dispatch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.usage()
		return errUsage
	}
	for _, cmd := range commands {
		if cmd.name == args[0] {
			return cmd.run(ctx, a, args[1:])
		}
	}
	a.usage()
	return pkgerrors.Validation("command", fmt.Sprintf("unknown command %q", args[0]))
}

func (a *app) usage() {
	fmt.Fprintln(a.out, "usage: shopkeeper <command> [flags]")
	for _, cmd := range commands {
		fmt.Fprintf(a.out, "  %-18s %s\n", cmd.name, cmd.summary)
	}
}

func newFlagSet(a *app, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid flags")
	}
	return nil
}

func runProducts(_ context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "products")
	id := fs.Int("id", 0, "show the product with this id")
	name := fs.String("name", "", "show the first product whose name contains this text")
	category := fs.String("category", "", "only this category")
	lowStock := fs.Bool("low-stock", false, "only low stock products")
	expired := fs.Bool("expired", false, "only expired products")
	nearExpiry := fs.Bool("near-expiry", false, "only products close to expiry")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	var entries []*product.Product
	switch {
	case *id > 0:
		if p, ok := a.catalog.FindByID(*id); ok {
			entries = append(entries, p)
		}
	case *name != "":
		if p, ok := a.catalog.FindByName(*name); ok {
			entries = append(entries, p)
		}
	case *category != "":
		parsed, err := enums.ParseProductCategory(*category)
		if err != nil {
			return pkgerrors.Validation("category", err.Error())
		}
		entries = a.catalog.ListByCategory(parsed)
	case *lowStock:
		entries = a.catalog.ListLowStock()
	case *expired:
		entries = a.catalog.ListExpired()
	case *nearExpiry:
		entries = a.catalog.ListNearExpiry()
	default:
		entries = a.catalog.ListProducts()
	}
	if len(entries) == 0 {
		fmt.Fprintln(a.out, "no products found")
		return nil
	}
	return renderProducts(a.out, entries)
}

type productFlags struct {
	name      *string
	category  *string
	price     *string
	stock     *int
	threshold *int
	discount  *string
}

func bindProductFlags(fs *flag.FlagSet) productFlags {
	return productFlags{
		name:      fs.String("name", "", "product name"),
		category:  fs.String("category", "", "FOOD, DRINKS, ELECTRONICS, CLEANING or OTHER"),
		price:     fs.String("price", "0", "unit price"),
		stock:     fs.Int("stock", 0, "initial stock"),
		threshold: fs.Int("low-stock", 0, "low stock threshold"),
		discount:  fs.String("discount", "none", "none, percent:P, fixed:A or bxgy:X:Y"),
	}
}

func (f productFlags) input(kind enums.ProductKind) (catalog.AddProductInput, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(*f.price))
	if err != nil {
		return catalog.AddProductInput{}, pkgerrors.Validation("unit_price", fmt.Sprintf("invalid price %q", *f.price))
	}
	policy, err := discount.ParseSpec(*f.discount)
	if err != nil {
		return catalog.AddProductInput{}, err
	}
	category, _ := enums.ParseProductCategory(*f.category)
	if category == "" {
		category = enums.ProductCategory(strings.TrimSpace(*f.category))
	}
	return catalog.AddProductInput{
		Name:              *f.name,
		Category:          category,
		UnitPrice:         price,
		StockQuantity:     *f.stock,
		LowStockThreshold: *f.threshold,
		Kind:              kind,
		Discount:          policy,
	}, nil
}

func runAddPerishable(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "add-perishable")
	flags := bindProductFlags(fs)
	expiry := fs.String("expiry", "", "expiry date (YYYY-MM-DD)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	input, err := flags.input(enums.ProductKindPerishable)
	if err != nil {
		return err
	}
	date, err := types.ParseDate(*expiry)
	if err != nil {
		return pkgerrors.Validation("expiry_date", err.Error())
	}
	input.ExpiryDate = date
	return addProduct(ctx, a, input)
}

func runAddNonPerishable(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "add-nonperishable")
	flags := bindProductFlags(fs)
	warranty := fs.Int("warranty", 0, "warranty in months")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	input, err := flags.input(enums.ProductKindNonPerishable)
	if err != nil {
		return err
	}
	input.WarrantyMonths = *warranty
	return addProduct(ctx, a, input)
}

func addProduct(ctx context.Context, a *app, input catalog.AddProductInput) error {
	created, err := a.catalog.AddProduct(ctx, input)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "added product %d\n", created.ID())
	return renderProducts(a.out, []*product.Product{created})
}

func runUpdate(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "update")
	id := fs.Int("id", 0, "product id")
	name := fs.String("name", "", "new name")
	category := fs.String("category", "", "new category")
	price := fs.String("price", "", "new unit price")
	threshold := fs.Int("low-stock", 0, "new low stock threshold")
	expiry := fs.String("expiry", "", "new expiry date (YYYY-MM-DD)")
	warranty := fs.Int("warranty", 0, "new warranty in months")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	var input catalog.UpdateProductInput
	var parseErr error
	fs.Visit(func(f *flag.Flag) {
		if parseErr != nil {
			return
		}
		switch f.Name {
		case "name":
			input.Name = name
		case "category":
			parsed, err := enums.ParseProductCategory(*category)
			if err != nil {
				parseErr = pkgerrors.Validation("category", err.Error())
				return
			}
			input.Category = &parsed
		case "price":
			parsed, err := decimal.NewFromString(strings.TrimSpace(*price))
			if err != nil {
				parseErr = pkgerrors.Validation("unit_price", fmt.Sprintf("invalid price %q", *price))
				return
			}
			input.UnitPrice = &parsed
		case "low-stock":
			input.LowStockThreshold = threshold
		case "expiry":
			parsed, err := types.ParseDate(*expiry)
			if err != nil {
				parseErr = pkgerrors.Validation("expiry_date", err.Error())
				return
			}
			input.ExpiryDate = &parsed
		case "warranty":
			input.WarrantyMonths = warranty
		}
	})
	if parseErr != nil {
		return parseErr
	}

	updated, err := a.catalog.UpdateProduct(ctx, *id, input)
	if err != nil {
		return err
	}
	if updated == nil {
		return productNotFound(*id)
	}
	return renderProducts(a.out, []*product.Product{updated})
}

func runRemove(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "remove")
	id := fs.Int("id", 0, "product id")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	removed, err := a.catalog.RemoveProduct(ctx, *id)
	if err != nil {
		return err
	}
	if !removed {
		return productNotFound(*id)
	}
	fmt.Fprintf(a.out, "removed product %d\n", *id)
	return nil
}

func runStock(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "stock")
	id := fs.Int("id", 0, "product id")
	add := fs.Int("add", 0, "units to add")
	remove := fs.Int("remove", 0, "units to remove")
	set := fs.Int("set", -1, "new stock level")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	var (
		found bool
		err   error
	)
	switch {
	case *set >= 0:
		found, err = a.catalog.UpdateStock(ctx, *id, *set)
	case *add != 0:
		found, err = a.catalog.IncreaseStock(ctx, *id, *add)
	case *remove != 0:
		found, err = a.catalog.DecreaseStock(ctx, *id, *remove)
	default:
		return pkgerrors.Validation("quantity", "one of --add, --remove or --set is required")
	}
	if err != nil {
		return err
	}
	if !found {
		return productNotFound(*id)
	}
	p, _ := a.catalog.FindByID(*id)
	fmt.Fprintf(a.out, "product %d stock is now %d\n", *id, p.StockQuantity())
	return nil
}

func runDiscount(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "discount")
	id := fs.Int("id", 0, "product id")
	spec := fs.String("policy", "none", "none, percent:P, fixed:A or bxgy:X:Y")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	policy, err := discount.ParseSpec(*spec)
	if err != nil {
		return err
	}
	found, err := a.catalog.SetDiscountPolicy(ctx, *id, policy)
	if err != nil {
		return err
	}
	if !found {
		return productNotFound(*id)
	}
	fmt.Fprintf(a.out, "product %d discount is now %s\n", *id, policy.Describe())
	return nil
}

func runSell(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "sell")
	var items itemList
	fs.Var(&items, "item", "product id and quantity as id:qty, repeatable")
	saleDiscount := fs.String("sale-discount", "none", "none, percent:P, fixed:A or bxgy:X:Y")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if len(items) == 0 {
		return pkgerrors.Validation("items", "at least one --item is required")
	}
	policy, err := discount.ParseSpec(*saleDiscount)
	if err != nil {
		return err
	}

	sale, err := a.sales.OpenSale(ctx, policy)
	if err != nil {
		return err
	}
	for _, item := range items {
		found, err := a.sales.AddItem(sale, item.productID, item.quantity)
		if err != nil {
			return err
		}
		if !found {
			return productNotFound(item.productID)
		}
	}
	receipt, err := a.sales.ProcessSale(ctx, sale)
	if err != nil {
		return err
	}
	fmt.Fprint(a.out, receipt.String())
	return nil
}

func runSales(_ context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "sales")
	id := fs.Int("id", 0, "show the receipt of this sale")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *id > 0 {
		sale, ok := a.sales.FindSale(*id)
		if !ok {
			return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("sale %d not found", *id))
		}
		fmt.Fprint(a.out, sale.Receipt().String())
		return nil
	}
	history := a.sales.ListSales()
	if len(history) == 0 {
		fmt.Fprintln(a.out, "no sales data available")
		return nil
	}
	return renderSales(a.out, history)
}

func runReport(_ context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "report")
	top := fs.Int("top", 0, "show the N best selling products")
	least := fs.Int("least", 0, "show the N least selling products")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	summary := a.sales.Summary()
	if summary.SaleCount == 0 {
		fmt.Fprintln(a.out, "no sales data available")
		return nil
	}
	renderSummary(a.out, summary)
	if *top > 0 {
		fmt.Fprintf(a.out, "\nTop %d selling products\n", *top)
		if err := renderRanking(a.out, a.sales.TopSelling(*top)); err != nil {
			return err
		}
	}
	if *least > 0 {
		fmt.Fprintf(a.out, "\nLeast %d selling products\n", *least)
		if err := renderRanking(a.out, a.sales.LeastSelling(*least)); err != nil {
			return err
		}
	}
	return nil
}

func productNotFound(id int) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %d not found", id))
}
