package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/glamlocks/storefront/internal/domain/product"
	"github.com/glamlocks/storefront/internal/storage/postgres"
)

const (
	upsertProductSQL = `INSERT INTO products (id, name, description, brand, category, sku,
			price, compare_price, stock, track_quantity, status, variants)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, description = EXCLUDED.description,
			brand = EXCLUDED.brand, category = EXCLUDED.category,
			sku = EXCLUDED.sku, price = EXCLUDED.price,
			compare_price = EXCLUDED.compare_price, stock = EXCLUDED.stock,
			track_quantity = EXCLUDED.track_quantity, status = EXCLUDED.status,
			variants = EXCLUDED.variants`

	upsertCouponSQL = `INSERT INTO coupons (id, code, description, type, value,
			minimum_amount, maximum_discount, usage_limit, valid_from, valid_until, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE)
		ON CONFLICT (id) DO UPDATE SET
			code = EXCLUDED.code, description = EXCLUDED.description,
			type = EXCLUDED.type, value = EXCLUDED.value,
			minimum_amount = EXCLUDED.minimum_amount,
			maximum_discount = EXCLUDED.maximum_discount,
			usage_limit = EXCLUDED.usage_limit,
			valid_from = EXCLUDED.valid_from, valid_until = EXCLUDED.valid_until,
			active = TRUE`

	upsertAPIKeySQL = `INSERT INTO api_keys (id, key_hash, name, scopes, active)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (id) DO UPDATE SET
			key_hash = EXCLUDED.key_hash, name = EXCLUDED.name,
			scopes = EXCLUDED.scopes, active = TRUE`
)

type productJSON struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	Brand         string            `json:"brand"`
	Category      string            `json:"category"`
	SKU           string            `json:"sku"`
	Price         decimal.Decimal   `json:"price"`
	ComparePrice  decimal.Decimal   `json:"comparePrice"`
	Stock         int               `json:"stock"`
	TrackQuantity bool              `json:"trackQuantity"`
	Status        string            `json:"status"`
	Variants      []product.Variant `json:"variants"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&apiKey, "api-key", "", "admin API key to seed (or SHOP_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or SHOP_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("SHOP_SEED_API_KEY")
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("SHOP_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedCoupons(ctx, pool); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	if apiKey != "" {
		if err := seedAPIKey(ctx, pool, apiKey, pepper); err != nil {
			return errors.Wrap(err, "seed api key")
		}
	}

	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		// Derive status from stock the same way the catalog does, so seed
		// files don't have to keep the two in sync by hand.
		norm := product.Product{
			Stock:         p.Stock,
			TrackQuantity: p.TrackQuantity,
			Status:        product.Status(p.Status),
		}
		if norm.Status == "" {
			norm.Status = product.StatusActive
		}
		norm.NormalizeStatus()
		p.Status = string(norm.Status)

		variants, err := json.Marshal(p.Variants)
		if err != nil {
			return errors.Wrapf(err, "marshal variants for %s", p.ID)
		}

		if _, err := pool.Exec(ctx, upsertProductSQL,
			p.ID, p.Name, p.Description, p.Brand, p.Category, p.SKU,
			p.Price, p.ComparePrice, p.Stock, p.TrackQuantity, p.Status, variants,
		); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

type seedCoupon struct {
	id              string
	code            string
	description     string
	typ             string
	value           decimal.Decimal
	minimumAmount   decimal.Decimal
	maximumDiscount decimal.Decimal
	usageLimit      int
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding launch coupons")

	validFrom := time.Now().Truncate(24 * time.Hour)
	validUntil := validFrom.AddDate(1, 0, 0)

	coupons := []seedCoupon{
		{
			id:              "launch10",
			code:            "LAUNCH10",
			description:     "Launch offer: 10% off your order",
			typ:             "percentage",
			value:           decimal.NewFromInt(10),
			maximumDiscount: decimal.NewFromInt(2000),
		},
		{
			id:            "welcome500",
			code:          "WELCOME500",
			description:   "500 off orders over 5000",
			typ:           "fixed",
			value:         decimal.NewFromInt(500),
			minimumAmount: decimal.NewFromInt(5000),
		},
		{
			id:          "flashone",
			code:        "FLASHONE",
			description: "Flash sale: 15% off, one redemption only",
			typ:         "percentage",
			value:       decimal.NewFromInt(15),
			usageLimit:  1,
		},
		{
			id:          "vipfirst",
			code:        "VIPFIRST",
			description: "VIP preview: 25% off, first 100 orders",
			typ:         "percentage",
			value:       decimal.NewFromInt(25),
			usageLimit:  100,
		},
	}

	for _, c := range coupons {
		if _, err := pool.Exec(ctx, upsertCouponSQL,
			c.id, c.code, c.description, c.typ, c.value,
			c.minimumAmount, c.maximumDiscount, c.usageLimit,
			validFrom, validUntil,
		); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.code)
		}

		slog.Info("upserted coupon", slog.String("code", c.code), slog.String("description", c.description))
	}

	return nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	slog.Info("seeding admin API key")

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	if _, err := pool.Exec(ctx, upsertAPIKeySQL,
		"admin-default", keyHash, "Default admin key", []string{"admin"},
	); err != nil {
		return errors.Wrap(err, "upsert admin API key")
	}

	slog.Info("upserted API key", slog.String("id", "admin-default"))
	return nil
}
