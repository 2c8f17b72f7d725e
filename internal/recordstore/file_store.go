package recordstore

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/shopkeeper/internal/product"
	"github.com/angelmondragon/shopkeeper/internal/sales"
	pkgerrors "github.com/angelmondragon/shopkeeper/pkg/errors"
	"github.com/angelmondragon/shopkeeper/pkg/logger"
	"github.com/angelmondragon/shopkeeper/pkg/metrics"
)

// FileStore keeps the catalog and the sale history in two delimited text
// files. Every save rewrites the whole file through a temp file and a rename.
type FileStore struct {
	catalogPath string
	salesPath   string
	logg        *logger.Logger
	metrics     *metrics.StoreMetrics
	counters    *Counters
}

func NewFileStore(catalogPath, salesPath string, logg *logger.Logger, m *metrics.StoreMetrics) (*FileStore, error) {
	if catalogPath == "" || salesPath == "" {
		return nil, fmt.Errorf("catalog and sales paths required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	s := &FileStore{
		catalogPath: catalogPath,
		salesPath:   salesPath,
		logg:        logg,
		metrics:     m,
	}
	s.counters = newCounters(s.scanMaxIDs)
	return s, nil
}

func (s *FileStore) Counters() *Counters { return s.counters }

func (s *FileStore) Close() error { return nil }

func (s *FileStore) LoadCatalog(ctx context.Context) ([]*product.Product, error) {
	defer observe(s.metrics, "load_catalog", time.Now())
	ctx = s.logg.WithField(ctx, "path", s.catalogPath)

	var entries []*product.Product
	err := s.read(s.catalogPath, func(r io.Reader) error {
		var decodeErr error
		entries, decodeErr = ReadCatalog(r)
		return reportSkipped(ctx, s.logg, s.metrics, kindCatalog, decodeErr)
	})
	if err != nil {
		s.logg.Error(ctx, "failed to load catalog", err)
		return []*product.Product{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load catalog")
	}
	for _, p := range entries {
		s.counters.ObserveProductID(p.ID())
	}
	return entries, nil
}

func (s *FileStore) SaveCatalog(ctx context.Context, entries []*product.Product) error {
	defer observe(s.metrics, "save_catalog", time.Now())
	ctx = s.logg.WithField(ctx, "path", s.catalogPath)

	if err := s.write(s.catalogPath, func(w io.Writer) error { return WriteCatalog(w, entries) }); err != nil {
		return s.saveFailed(ctx, kindCatalog, err)
	}
	return nil
}

func (s *FileStore) LoadSales(ctx context.Context, catalog []*product.Product) ([]*sales.Sale, error) {
	defer observe(s.metrics, "load_sales", time.Now())
	ctx = s.logg.WithField(ctx, "path", s.salesPath)

	var history []*sales.Sale
	err := s.read(s.salesPath, func(r io.Reader) error {
		var decodeErr error
		history, decodeErr = ReadSales(r, catalog)
		return reportSkipped(ctx, s.logg, s.metrics, kindSales, decodeErr)
	})
	if err != nil {
		s.logg.Error(ctx, "failed to load sales", err)
		return []*sales.Sale{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sales")
	}
	for _, sale := range history {
		s.counters.ObserveSaleID(sale.ID())
	}
	return history, nil
}

func (s *FileStore) SaveSales(ctx context.Context, history []*sales.Sale) error {
	defer observe(s.metrics, "save_sales", time.Now())
	ctx = s.logg.WithField(ctx, "path", s.salesPath)

	if err := s.write(s.salesPath, func(w io.Writer) error { return WriteSales(w, history) }); err != nil {
		return s.saveFailed(ctx, kindSales, err)
	}
	return nil
}

func (s *FileStore) saveFailed(ctx context.Context, kind string, err error) error {
	s.metrics.IncSaveFailure(kind)
	if pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		s.logg.Warn(ctx, fmt.Sprintf("refusing to save %s: %v", kind, err))
		return err
	}
	s.logg.Error(ctx, fmt.Sprintf("failed to save %s", kind), err)
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save "+kind)
}

// read opens path and hands it to fn. A missing file reads as empty.
func (s *FileStore) read(path string, fn func(io.Reader) error) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fn(strings.NewReader(""))
	}
	if err != nil {
		return err
	}
	defer f.Close()
	return fn(f)
}

// write replaces path with whatever fn produces, leaving the old file intact
// when any step fails.
func (s *FileStore) write(path string, fn func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = fn(tmp); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// scanMaxIDs reads only the leading id of every line in both files.
func (s *FileStore) scanMaxIDs(context.Context) (int, int, error) {
	maxProduct, err := maxLeadingID(s.catalogPath)
	if err != nil {
		return 0, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "scan catalog ids")
	}
	maxSale, err := maxLeadingID(s.salesPath)
	if err != nil {
		return 0, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "scan sale ids")
	}
	return maxProduct, maxSale, nil
}

func maxLeadingID(path string) (int, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer f.Close()

	maxID := 0
	reader := bufio.NewReader(f)
	for {
		line, tooLong, err := readLine(reader, maxLineBytes)
		if err == io.EOF {
			return maxID, nil
		}
		if err != nil {
			return 0, err
		}
		if tooLong {
			continue
		}
		head, _, _ := strings.Cut(line, fieldSep)
		if id, err := strconv.Atoi(strings.TrimSpace(head)); err == nil && id > maxID {
			maxID = id
		}
	}
}
