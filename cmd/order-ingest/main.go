// Command order-ingest backfills historical orders from the legacy
// storefront's export dumps into the database, so analytics reports cover
// the period before this service went live.
//
// Exports are gzip-compressed JSONL files, one order per line. Daily dumps
// overlap (each covers a 48h window), so the same order usually appears in
// two files. The ingest runs in two passes: pass 1 builds a bloom filter of
// order IDs per file, pass 2 streams each file again and skips orders whose
// ID already appears in an earlier file. Bloom false positives drop an order
// from a later file only when an earlier file almost certainly carries it,
// and the database insert is conflict-free either way.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/chronora/offer-engine/internal/domain/order"
	"github.com/chronora/offer-engine/internal/repository"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
	progressEvery = 50_000
)

// orderRecord is one line of a legacy export dump.
type orderRecord struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	Items  []struct {
		ProductID string          `json:"productId"`
		Quantity  int             `json:"quantity"`
		Price     decimal.Decimal `json:"price"`
	} `json:"items"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Discount  decimal.Decimal `json:"discount"`
	Total     decimal.Decimal `json:"total"`
	OfferID   string          `json:"offerId"`
	PaidAt    *time.Time      `json:"paidAt"`
	CreatedAt time.Time       `json:"createdAt"`
}

const insertOrderSQL = `
INSERT INTO orders (
	id, user_id, items, subtotal, discount, total,
	applied_offer, is_paid, paid_at, created_at
)
VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10)
ON CONFLICT (id) DO NOTHING`

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing orders-*.jsonl.gz export files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("order ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("order ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "orders-*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "list export files")
	}
	if len(files) == 0 {
		return errors.Errorf("no orders-*.jsonl.gz files in %s", dataDir)
	}
	// Exports are named by date; earlier files win duplicates.
	sort.Strings(files)

	slog.Info("pass 1: building order id filters", slog.Int("files", len(files)))

	filters, err := buildFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "build filters")
	}

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	slog.Info("pass 2: importing orders")

	var total uint64
	for i, f := range files {
		n, err := importFile(ctx, pool, f, filters[:i])
		if err != nil {
			return errors.Wrapf(err, "import %s", f)
		}
		total += n
		slog.Info("file imported",
			slog.String("file", filepath.Base(f)),
			slog.Uint64("orders", n),
		)
	}

	slog.Info("import complete", slog.Uint64("orders", total))
	return nil
}

// buildFilters creates one bloom filter of order IDs per file, concurrently.
func buildFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
			var count uint64

			err := streamGzLines(ctx, f, func(line []byte) error {
				var rec orderRecord
				if err := json.Unmarshal(line, &rec); err != nil {
					return errors.Wrap(err, "parse order record")
				}
				filter.AddString(rec.ID)
				count++
				return nil
			})
			if err != nil {
				return errors.Wrapf(err, "scan %s", f)
			}

			slog.Info("pass 1 complete",
				slog.String("file", filepath.Base(f)),
				slog.Uint64("orders", count),
			)
			filters[i] = filter
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// importFile inserts every order in the file whose ID is not already present
// in one of the earlier files' filters.
func importFile(ctx context.Context, pool *pgxpool.Pool, path string, earlier []*bloom.BloomFilter) (uint64, error) {
	var imported, scanned uint64

	err := streamGzLines(ctx, path, func(line []byte) error {
		var rec orderRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return errors.Wrap(err, "parse order record")
		}

		scanned++
		if scanned%progressEvery == 0 {
			slog.Info("pass 2 progress",
				slog.String("file", filepath.Base(path)),
				slog.Uint64("orders", scanned),
			)
		}

		for _, f := range earlier {
			if f.TestString(rec.ID) {
				return nil
			}
		}

		if err := insertOrder(ctx, pool, &rec); err != nil {
			return errors.Wrapf(err, "insert order %s", rec.ID)
		}
		imported++
		return nil
	})
	if err != nil {
		return 0, err
	}
	return imported, nil
}

func insertOrder(ctx context.Context, pool *pgxpool.Pool, rec *orderRecord) error {
	items := make([]order.Item, len(rec.Items))
	for i, it := range rec.Items {
		items[i] = order.Item{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
		}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return errors.Wrap(err, "marshal items")
	}

	_, err = pool.Exec(ctx, insertOrderSQL,
		rec.ID, rec.UserID, itemsJSON,
		rec.Subtotal, rec.Discount, rec.Total,
		rec.OfferID, rec.PaidAt != nil, rec.PaidAt, rec.CreatedAt,
	)
	return err
}

// streamGzLines opens a gzip-compressed file and calls fn for each line.
func streamGzLines(ctx context.Context, path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(scanner.Bytes()) == 0 {
			continue
		}
		if err := fn(scanner.Bytes()); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}
