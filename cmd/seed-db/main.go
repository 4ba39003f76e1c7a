// Command seed-db loads the watch catalog and a starter set of offers into
// the database from JSON files. Existing rows with the same IDs are replaced.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/chronora/offer-engine/internal/repository"
)

type productJSON struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Brand    string          `json:"brand"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
	Image    struct {
		Thumbnail string `json:"thumbnail"`
		Banner    string `json:"banner"`
	} `json:"image"`
}

type offerJSON struct {
	ID                    string          `json:"id"`
	Name                  string          `json:"name"`
	Description           string          `json:"description"`
	DiscountPercentage    decimal.Decimal `json:"discountPercentage"`
	Active                bool            `json:"active"`
	StartDate             time.Time       `json:"startDate"`
	EndDate               time.Time       `json:"endDate"`
	BannerImage           string          `json:"bannerImage"`
	ApplicableProducts    []string        `json:"applicableProducts"`
	ApplicableCategories  []string        `json:"applicableCategories"`
	MinimumPurchaseAmount decimal.Decimal `json:"minimumPurchaseAmount"`
	MaximumDiscountAmount decimal.Decimal `json:"maximumDiscountAmount"`
	UsageLimit            int             `json:"usageLimit"`
}

const upsertProductSQL = `
INSERT INTO products (id, name, brand, price, category, image_thumbnail, image_banner)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	brand = EXCLUDED.brand,
	price = EXCLUDED.price,
	category = EXCLUDED.category,
	image_thumbnail = EXCLUDED.image_thumbnail,
	image_banner = EXCLUDED.image_banner`

const upsertOfferSQL = `
INSERT INTO offers (
	id, name, description, discount_percentage, active, start_date, end_date,
	banner_image, applicable_products, applicable_categories,
	minimum_purchase_amount, maximum_discount_amount, usage_limit
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	description = EXCLUDED.description,
	discount_percentage = EXCLUDED.discount_percentage,
	active = EXCLUDED.active,
	start_date = EXCLUDED.start_date,
	end_date = EXCLUDED.end_date,
	banner_image = EXCLUDED.banner_image,
	applicable_products = EXCLUDED.applicable_products,
	applicable_categories = EXCLUDED.applicable_categories,
	minimum_purchase_amount = EXCLUDED.minimum_purchase_amount,
	maximum_discount_amount = EXCLUDED.maximum_discount_amount,
	usage_limit = EXCLUDED.usage_limit,
	updated_at = now()`

func main() {
	var (
		databaseURL  string
		productsFile string
		offersFile   string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&offersFile, "offers-file", "db/seed/offers.json", "path to offers JSON file")
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

	if err := run(ctx, databaseURL, productsFile, offersFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, offersFile string) error {
	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedOffers(ctx, pool, offersFile); err != nil {
		return errors.Wrap(err, "seed offers")
	}
	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, path string) error {
	var products []productJSON
	if err := loadJSON(path, &products); err != nil {
		return err
	}

	for _, p := range products {
		if _, err := pool.Exec(ctx, upsertProductSQL,
			p.ID, p.Name, p.Brand, p.Price, p.Category,
			p.Image.Thumbnail, p.Image.Banner,
		); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
	}

	slog.Info("products seeded", slog.Int("count", len(products)))
	return nil
}

func seedOffers(ctx context.Context, pool *pgxpool.Pool, path string) error {
	var offers []offerJSON
	if err := loadJSON(path, &offers); err != nil {
		return err
	}

	for _, o := range offers {
		if _, err := pool.Exec(ctx, upsertOfferSQL,
			o.ID, o.Name, o.Description, o.DiscountPercentage, o.Active,
			o.StartDate, o.EndDate, o.BannerImage,
			o.ApplicableProducts, o.ApplicableCategories,
			o.MinimumPurchaseAmount, o.MaximumDiscountAmount, o.UsageLimit,
		); err != nil {
			return errors.Wrapf(err, "upsert offer %s", o.ID)
		}
	}

	slog.Info("offers seeded", slog.Int("count", len(offers)))
	return nil
}

func loadJSON(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read %s", path)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return errors.Wrapf(err, "parse %s", path)
	}
	return nil
}
