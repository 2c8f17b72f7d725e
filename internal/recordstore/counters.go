package recordstore

import (
	"context"
	"sync"
)

// maxIDScanner reports the largest persisted product and sale ids.
type maxIDScanner func(ctx context.Context) (maxProduct, maxSale int, err error)

// Counters hands out product and sale ids. It is seeded from the largest ids
// in storage the first time it is used and never rescans afterwards.
type Counters struct {
	scan maxIDScanner

	once    sync.Once
	err     error
	mu      sync.Mutex
	product int
	sale    int
}

func newCounters(scan maxIDScanner) *Counters {
	return &Counters{scan: scan}
}

// Bootstrap seeds the counters. Only the first call scans; later calls return
// the first call's outcome.
func (c *Counters) Bootstrap(ctx context.Context) error {
	c.once.Do(func() {
		if c.scan == nil {
			return
		}
		maxProduct, maxSale, err := c.scan(ctx)
		if err != nil {
			c.err = err
			return
		}
		c.ObserveProductID(maxProduct)
		c.ObserveSaleID(maxSale)
	})
	return c.err
}

// NextProductID returns an id strictly greater than every id seen so far.
func (c *Counters) NextProductID(ctx context.Context) (int, error) {
	if err := c.Bootstrap(ctx); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.product++
	return c.product, nil
}

func (c *Counters) NextSaleID(ctx context.Context) (int, error) {
	if err := c.Bootstrap(ctx); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sale++
	return c.sale, nil
}

// ObserveProductID advances the product counter to id when id is larger.
func (c *Counters) ObserveProductID(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id > c.product {
		c.product = id
	}
}

func (c *Counters) ObserveSaleID(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id > c.sale {
		c.sale = id
	}
}
