package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type ProductSpecs struct {
	Processor string `json:"processor" yaml:"processor"`
	RAM       string `json:"ram" yaml:"ram"`
	Storage   string `json:"storage" yaml:"storage"`
	Screen    string `json:"screen" yaml:"screen"`
	Battery   string `json:"battery" yaml:"battery"`
	Graphics  string `json:"graphics" yaml:"graphics"`
}

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Brand       string          `json:"brand"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
	Specs       ProductSpecs    `json:"specs"`
	Usage       []string        `json:"usage"`
	Stock       int             `json:"stock"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (p *Product) IsLowStock(threshold int) bool {
	return p.Stock < threshold
}

// ProductChanges carries a create or partial-update request. Nil fields are
// left unchanged on update.
type ProductChanges struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Brand       *string          `json:"brand"`
	Category    *string          `json:"category"`
	Image       *string          `json:"image"`
	Specs       *ProductSpecs    `json:"specs"`
	Usage       []string         `json:"usage"`
	Stock       *int             `json:"stock"`
}

// NewProduct validates a create request.
func NewProduct(c ProductChanges, now time.Time) (*Product, error) {
	if c.Name == nil || strings.TrimSpace(*c.Name) == "" {
		return nil, Validation("Product name is required")
	}
	if c.Price == nil {
		return nil, Validation("Product price is required")
	}
	p := &Product{
		Price:     decimal.Zero,
		Usage:     []string{},
		CreatedAt: now,
	}
	if err := p.Apply(c, now); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Product) Apply(c ProductChanges, now time.Time) error {
	if c.Name != nil {
		name := strings.TrimSpace(*c.Name)
		if name == "" {
			return Validation("Product name cannot be empty")
		}
		p.Name = name
	}
	if c.Price != nil {
		if c.Price.IsNegative() {
			return Validation("Product price cannot be negative")
		}
		p.Price = RoundMoney(*c.Price)
	}
	if c.Stock != nil {
		if *c.Stock < 0 {
			return Validation("Product stock cannot be negative")
		}
		p.Stock = *c.Stock
	}
	if c.Description != nil {
		p.Description = *c.Description
	}
	if c.Brand != nil {
		p.Brand = *c.Brand
	}
	if c.Category != nil {
		p.Category = *c.Category
	}
	if c.Image != nil {
		p.Image = *c.Image
	}
	if c.Specs != nil {
		p.Specs = *c.Specs
	}
	if c.Usage != nil {
		p.Usage = normalizeTags(c.Usage)
	}
	p.UpdatedAt = now
	return nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

type ProductSort string

const (
	SortNewest    ProductSort = "newest"
	SortPriceAsc  ProductSort = "price_asc"
	SortPriceDesc ProductSort = "price_desc"
	SortName      ProductSort = "name"
)

type ProductFilter struct {
	Keyword  string
	Category string
	Brand    string
	Usage    string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	InStock  bool
	Sort     ProductSort
}
