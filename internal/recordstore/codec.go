package recordstore

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/angelmondragon/shopkeeper/internal/discount"
	"github.com/angelmondragon/shopkeeper/internal/product"
	"github.com/angelmondragon/shopkeeper/internal/sales"
	"github.com/angelmondragon/shopkeeper/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopkeeper/pkg/errors"
	"github.com/angelmondragon/shopkeeper/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

const (
	fieldSep = ","
	itemSep  = ";"
	pairSep  = ":"

	catalogFields       = 10
	legacyCatalogFields = 8
	saleFields          = 6
	legacySaleFields    = 5

	// maxLineBytes bounds one record; longer lines are skipped.
	maxLineBytes = 1 << 20
)

// SkipError marks one record that failed to decode. Record is the 1-based
// line number for text files and the row position for SQLite.
type SkipError struct {
	Record int
	Err    error
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("record %d: %v", e.Record, e.Err)
}

func (e *SkipError) Unwrap() error { return e.Err }

// Skipped extracts the per-record failures from a combined decode error.
func Skipped(err error) []*SkipError {
	var out []*SkipError
	for _, e := range multierr.Errors(err) {
		if skip, ok := e.(*SkipError); ok {
			out = append(out, skip)
		}
	}
	return out
}

// fatal returns the first error in err that is not a skipped record.
func fatal(err error) error {
	for _, e := range multierr.Errors(err) {
		if _, ok := e.(*SkipError); !ok {
			return e
		}
	}
	return nil
}

func isHeader(fields []string) bool {
	if len(fields) == 0 {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(fields[0])) {
	case "id", "userid":
		return true
	}
	return false
}

// EncodePolicy renders a policy as its discountType and discountParams columns.
func EncodePolicy(policy discount.Policy) (string, string) {
	switch policy.Kind() {
	case discount.KindPercentage:
		return policy.Kind().String(), policy.Percent().String()
	case discount.KindFixed:
		return policy.Kind().String(), policy.Amount().String()
	case discount.KindBuyXGetYFree:
		return policy.Kind().String(), strconv.Itoa(policy.BuyQty()) + pairSep + strconv.Itoa(policy.FreeQty())
	default:
		return discount.KindNone.String(), ""
	}
}

// DecodePolicy is the inverse of EncodePolicy.
func DecodePolicy(kind, params string) (discount.Policy, error) {
	kind = strings.TrimSpace(kind)
	params = strings.TrimSpace(params)
	if kind == "" {
		return discount.None(), nil
	}
	parsed, err := discount.ParseKind(kind)
	if err != nil {
		return discount.Policy{}, err
	}
	switch parsed {
	case discount.KindPercentage:
		percent, err := decimal.NewFromString(params)
		if err != nil {
			return discount.Policy{}, fmt.Errorf("invalid percentage %q", params)
		}
		return discount.Percentage(percent)
	case discount.KindFixed:
		amount, err := decimal.NewFromString(params)
		if err != nil {
			return discount.Policy{}, fmt.Errorf("invalid fixed amount %q", params)
		}
		return discount.Fixed(amount), nil
	case discount.KindBuyXGetYFree:
		buy, free, ok := strings.Cut(params, pairSep)
		if !ok {
			return discount.Policy{}, fmt.Errorf("invalid buy/free quantities %q", params)
		}
		buyQty, err := strconv.Atoi(buy)
		if err != nil {
			return discount.Policy{}, fmt.Errorf("invalid buy quantity %q", buy)
		}
		freeQty, err := strconv.Atoi(free)
		if err != nil {
			return discount.Policy{}, fmt.Errorf("invalid free quantity %q", free)
		}
		return discount.BuyXGetYFree(buyQty, freeQty)
	default:
		return discount.None(), nil
	}
}

func checkName(name string) error {
	if strings.ContainsAny(name, ",\r\n") {
		return pkgerrors.Validation("name", "product name cannot contain commas or line breaks")
	}
	return nil
}

// EncodeProduct renders one catalog line:
//
//	id,name,category,unitPrice,stockQuantity,lowStockThreshold,TYPE,subtypeField,discountType,discountParams
func EncodeProduct(p *product.Product) (string, error) {
	if err := checkName(p.Name()); err != nil {
		return "", err
	}
	var subtype string
	switch p.Kind() {
	case enums.ProductKindPerishable:
		expiry, _ := p.ExpiryDate()
		subtype = types.FormatDate(expiry)
	case enums.ProductKindNonPerishable:
		months, _ := p.WarrantyMonths()
		subtype = strconv.Itoa(months)
	}
	discountType, discountParams := EncodePolicy(p.DiscountPolicy())
	return strings.Join([]string{
		strconv.Itoa(p.ID()),
		p.Name(),
		p.Category().String(),
		p.UnitPrice().String(),
		strconv.Itoa(p.StockQuantity()),
		strconv.Itoa(p.LowStockThreshold()),
		p.Kind().String(),
		subtype,
		discountType,
		discountParams,
	}, fieldSep), nil
}

// DecodeProduct parses a catalog line. Lines written before discounts existed
// carry only the first eight fields and load with no discount. Nine fields
// means the empty params column was dropped from the end.
func DecodeProduct(line string) (*product.Product, error) {
	fields := strings.Split(line, fieldSep)
	switch len(fields) {
	case catalogFields, legacyCatalogFields:
	case catalogFields - 1:
		fields = append(fields, "")
	default:
		return nil, fmt.Errorf("expected %d fields, got %d", catalogFields, len(fields))
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	id, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, fmt.Errorf("invalid id %q", fields[0])
	}
	category, err := enums.ParseProductCategory(fields[2])
	if err != nil {
		return nil, err
	}
	price, err := decimal.NewFromString(fields[3])
	if err != nil {
		return nil, fmt.Errorf("invalid unit price %q", fields[3])
	}
	stock, err := strconv.Atoi(fields[4])
	if err != nil {
		return nil, fmt.Errorf("invalid stock quantity %q", fields[4])
	}
	threshold, err := strconv.Atoi(fields[5])
	if err != nil {
		return nil, fmt.Errorf("invalid low stock threshold %q", fields[5])
	}
	kind, err := enums.ParseProductKind(fields[6])
	if err != nil {
		return nil, err
	}

	params := product.Params{
		ID:                id,
		Name:              fields[1],
		Category:          category,
		UnitPrice:         price,
		StockQuantity:     stock,
		LowStockThreshold: threshold,
		Kind:              kind,
		Discount:          discount.None(),
	}
	switch kind {
	case enums.ProductKindPerishable:
		if params.ExpiryDate, err = types.ParseDate(fields[7]); err != nil {
			return nil, err
		}
	case enums.ProductKindNonPerishable:
		if params.WarrantyMonths, err = strconv.Atoi(fields[7]); err != nil {
			return nil, fmt.Errorf("invalid warranty months %q", fields[7])
		}
	}
	if len(fields) == catalogFields {
		if params.Discount, err = DecodePolicy(fields[8], fields[9]); err != nil {
			return nil, err
		}
	}
	return product.Restore(params)
}

// EncodeSale renders one sale line with the totals held in memory:
//
//	id,date,subtotal,discountAmount,totalAmount,items
func EncodeSale(s *sales.Sale) string {
	items := s.Items()
	pairs := make([]string, 0, len(items))
	for _, item := range items {
		pairs = append(pairs, strconv.Itoa(item.ProductID)+pairSep+strconv.Itoa(item.Quantity))
	}
	return strings.Join([]string{
		strconv.Itoa(s.ID()),
		types.FormatDate(s.Date()),
		s.Subtotal().String(),
		s.DiscountAmount().String(),
		s.TotalAmount().String(),
		strings.Join(pairs, itemSep),
	}, fieldSep)
}

// DecodeSale parses a sale line, resolving item product ids against catalog.
// Items referencing an unknown product are dropped. Five-field lines from
// before items were recorded load with no items.
func DecodeSale(line string, catalog map[int]*product.Product) (*sales.Sale, error) {
	fields := strings.Split(line, fieldSep)
	if len(fields) != saleFields && len(fields) != legacySaleFields {
		return nil, fmt.Errorf("expected %d fields, got %d", saleFields, len(fields))
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	id, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, fmt.Errorf("invalid id %q", fields[0])
	}
	date, err := types.ParseDate(fields[1])
	if err != nil {
		return nil, err
	}
	amounts := make([]decimal.Decimal, 3)
	for i := range amounts {
		if amounts[i], err = decimal.NewFromString(fields[2+i]); err != nil {
			return nil, fmt.Errorf("invalid amount %q", fields[2+i])
		}
	}

	var items []sales.LineItem
	if len(fields) == saleFields {
		if items, err = decodeItems(fields[5], catalog); err != nil {
			return nil, err
		}
	}
	return sales.Restore(id, date, items, recordedTotals(amounts[0], amounts[1], amounts[2]))
}

func decodeItems(raw string, catalog map[int]*product.Product) ([]sales.LineItem, error) {
	if raw == "" {
		return nil, nil
	}
	var items []sales.LineItem
	for _, pair := range strings.Split(raw, itemSep) {
		pid, qty, ok := strings.Cut(pair, pairSep)
		if !ok {
			return nil, fmt.Errorf("invalid item %q", pair)
		}
		productID, err := strconv.Atoi(strings.TrimSpace(pid))
		if err != nil {
			return nil, fmt.Errorf("invalid item product id %q", pid)
		}
		quantity, err := strconv.Atoi(strings.TrimSpace(qty))
		if err != nil || quantity <= 0 {
			return nil, fmt.Errorf("invalid item quantity %q", qty)
		}
		p, ok := catalog[productID]
		if !ok {
			continue
		}
		items = append(items, sales.NewLineItem(p, quantity))
	}
	return items, nil
}

// recordedTotals rebuilds the full breakdown from the three persisted amounts.
// The split follows from discount = itemDiscounts + saleDiscount and
// total = subtotal - saleDiscount.
func recordedTotals(subtotal, discountAmount, total decimal.Decimal) sales.Totals {
	saleDiscount := subtotal.Sub(total)
	itemDiscounts := discountAmount.Sub(saleDiscount)
	return sales.Totals{
		ItemsSubtotal:      subtotal.Add(itemDiscounts),
		ItemDiscountsTotal: itemDiscounts,
		Subtotal:           subtotal,
		SaleDiscountAmount: saleDiscount,
		DiscountAmount:     discountAmount,
		TotalAmount:        total,
	}
}

// ReadCatalog decodes every catalog line from r. The returned error combines a
// *SkipError per malformed line with any read failure; entries holds
// everything that parsed.
func ReadCatalog(r io.Reader) ([]*product.Product, error) {
	var (
		entries []*product.Product
		errs    error
	)
	seen := map[int]bool{}
	readErr := eachLine(r, func(n int, line string) {
		p, err := DecodeProduct(line)
		if err == nil && seen[p.ID()] {
			err = fmt.Errorf("duplicate product id %d", p.ID())
		}
		if err != nil {
			errs = multierr.Append(errs, &SkipError{Record: n, Err: err})
			return
		}
		seen[p.ID()] = true
		entries = append(entries, p)
	})
	return entries, multierr.Append(errs, readErr)
}

// ReadSales decodes every sale line from r against catalog.
func ReadSales(r io.Reader, catalog []*product.Product) ([]*sales.Sale, error) {
	byID := make(map[int]*product.Product, len(catalog))
	for _, p := range catalog {
		byID[p.ID()] = p
	}
	var (
		history []*sales.Sale
		errs    error
	)
	seen := map[int]bool{}
	readErr := eachLine(r, func(n int, line string) {
		s, err := DecodeSale(line, byID)
		if err == nil && seen[s.ID()] {
			err = fmt.Errorf("duplicate sale id %d", s.ID())
		}
		if err != nil {
			errs = multierr.Append(errs, &SkipError{Record: n, Err: err})
			return
		}
		seen[s.ID()] = true
		history = append(history, s)
	})
	return history, multierr.Append(errs, readErr)
}

// eachLine calls fn for every non-blank line. A header on the first non-blank
// line is dropped. Lines longer than maxLineBytes come back as *SkipError
// values in the returned error.
func eachLine(r io.Reader, fn func(n int, line string)) error {
	reader := bufio.NewReaderSize(r, 64*1024)
	var errs error
	n := 0
	first := true
	for {
		line, tooLong, err := readLine(reader, maxLineBytes)
		if err == io.EOF {
			return errs
		}
		if err != nil {
			return multierr.Append(errs, err)
		}
		n++
		if tooLong {
			errs = multierr.Append(errs, &SkipError{Record: n, Err: fmt.Errorf("line exceeds %d bytes", maxLineBytes)})
			first = false
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if first {
			first = false
			if isHeader(strings.Split(line, fieldSep)) {
				continue
			}
		}
		fn(n, line)
	}
}

// readLine returns the next line without its terminator. Once a line grows
// past limit the rest of it is discarded and tooLong is set. io.EOF is only
// returned when nothing was left to read.
func readLine(r *bufio.Reader, limit int) (string, bool, error) {
	var buf []byte
	tooLong, read := false, false
	for {
		chunk, err := r.ReadSlice('\n')
		read = read || len(chunk) > 0
		if tooLong || len(buf)+len(chunk) > limit {
			tooLong, buf = true, nil
		} else {
			buf = append(buf, chunk...)
		}
		switch {
		case err == bufio.ErrBufferFull:
			continue
		case err == io.EOF && read:
		case err != nil:
			return "", false, err
		}
		return strings.TrimRight(string(buf), "\r\n"), tooLong, nil
	}
}

// WriteCatalog encodes entries, one per line. Nothing is written when any
// entry fails to encode.
func WriteCatalog(w io.Writer, entries []*product.Product) error {
	lines := make([]string, 0, len(entries))
	for _, p := range entries {
		line, err := EncodeProduct(p)
		if err != nil {
			return err
		}
		lines = append(lines, line)
	}
	return writeLines(w, lines)
}

// WriteSales encodes history, one sale per line.
func WriteSales(w io.Writer, history []*sales.Sale) error {
	lines := make([]string, 0, len(history))
	for _, s := range history {
		lines = append(lines, EncodeSale(s))
	}
	return writeLines(w, lines)
}

func writeLines(w io.Writer, lines []string) error {
	bw := bufio.NewWriter(w)
	for _, line := range lines {
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}
