package catalog

import (
	"strings"
	"time"

	"github.com/example/cleanshop/pkg/cart"
	"github.com/example/cleanshop/pkg/repository"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// CategoryAll matches every product in Filter.
const CategoryAll = "all"

var hundred = decimal.NewFromInt(100)

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Discount    int             `json:"discount"`
	Category    string          `json:"category"`
	ImageURL    string          `json:"image_url,omitempty"`
	Active      bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
}

// EffectivePrice applies the percentage discount to the list price and
// rounds to the stored price scale.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.Discount <= 0 {
		return cart.RoundPrice(p.Price)
	}
	factor := hundred.Sub(decimal.NewFromInt(int64(p.Discount))).Div(hundred)
	return cart.RoundPrice(p.Price.Mul(factor))
}

// LineItem converts the product into a cart line item priced at its
// effective price.
func (p Product) LineItem() cart.LineItem {
	return cart.LineItem{
		ID:        p.ID,
		Name:      p.Name,
		UnitPrice: p.EffectivePrice(),
		Image:     p.ImageURL,
		Category:  p.Category,
		Quantity:  1,
	}
}

// Filter keeps products in the category whose name contains search,
// ignoring case.
func Filter(products []Product, category, search string) []Product {
	search = strings.ToLower(strings.TrimSpace(search))
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if category != "" && category != CategoryAll && p.Category != category {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// FromRecord decodes a products row. Drivers return numbers and booleans
// in different shapes, so every column goes through cast.
func FromRecord(r repository.Record) (Product, error) {
	price, err := decimal.NewFromString(cast.ToString(r["price"]))
	if err != nil {
		return Product{}, err
	}
	discount, err := cast.ToIntE(cast.ToString(r["discount"]))
	if err != nil && r["discount"] != nil {
		return Product{}, err
	}
	active := true
	if v, ok := r["is_active"]; ok && v != nil {
		active = cast.ToBool(cast.ToString(v))
	}

	p := Product{
		ID:          cast.ToString(r["id"]),
		Name:        cast.ToString(r["name"]),
		Description: cast.ToString(r["description"]),
		Price:       price,
		Discount:    discount,
		Category:    cast.ToString(r["category"]),
		ImageURL:    cast.ToString(r["image_url"]),
		Active:      active,
	}
	if t, ok := r["created_at"].(time.Time); ok {
		p.CreatedAt = t
	}
	return p, nil
}
