package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/example/cleanshop/pkg/repository"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// SeedProduct is one entry of a product fixture file.
type SeedProduct struct {
	ID          string `mapstructure:"id"`
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
	Price       string `mapstructure:"price"`
	Discount    int    `mapstructure:"discount"`
	Category    string `mapstructure:"category"`
	ImageURL    string `mapstructure:"image_url"`
	Inactive    bool   `mapstructure:"inactive"`
}

// LoadSeed reads the products list from a YAML fixture.
func LoadSeed(path string) ([]SeedProduct, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read product seed: %w", err)
	}

	var products []SeedProduct
	if err := v.UnmarshalKey("products", &products); err != nil {
		return nil, fmt.Errorf("failed to unmarshal product seed: %w", err)
	}
	return products, nil
}

// Seed inserts products into an empty products table and reports how many
// were written. A table that already holds products is left alone. The
// fixture order is kept as newest-first listing order.
func Seed(ctx context.Context, store repository.RecordStore, products []SeedProduct) (int, error) {
	existing, err := store.Select(ctx, repository.TableProducts, nil, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to check products: %w", err)
	}
	if len(existing) > 0 || len(products) == 0 {
		return 0, nil
	}

	now := time.Now()
	records := make([]repository.Record, len(products))
	for i, p := range products {
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return 0, fmt.Errorf("bad price %q for product %q: %w", p.Price, p.Name, err)
		}
		if p.Discount < 0 || p.Discount > 100 {
			return 0, fmt.Errorf("bad discount %d for product %q", p.Discount, p.Name)
		}
		r := repository.Record{
			"name":        p.Name,
			"description": p.Description,
			"price":       price,
			"discount":    p.Discount,
			"category":    p.Category,
			"image_url":   p.ImageURL,
			"is_active":   !p.Inactive,
			"created_at":  now.Add(-time.Duration(i) * time.Second),
		}
		if p.ID != "" {
			r["id"] = p.ID
		}
		records[i] = r
	}

	if _, err := store.Insert(ctx, repository.TableProducts, records...); err != nil {
		return 0, fmt.Errorf("failed to seed products: %w", err)
	}
	return len(records), nil
}
