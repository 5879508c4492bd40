package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID            int64
	Title         string
	Description   string
	BrandName     string
	BrandSlug     string
	Price         decimal.Decimal
	OriginalPrice *decimal.Decimal // struck-through price shown while on sale
	ImageURL      string
	IsActive      bool
	InStock       bool
	StockQuantity int
	IsOnSale      bool
	IsNew         bool

	// Promotional window. The three fields are all set or all null; partial
	// state is treated as no schedule.
	ScheduledPrice *decimal.Decimal
	PriceStartDate *time.Time
	PriceEndDate   *time.Time
	// Snapshot of Price taken when the schedule first attaches, restored
	// when the window ends.
	OriginalPriceBeforeSchedule *decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasSchedule reports whether the full schedule triple is present.
func (p *Product) HasSchedule() bool {
	return p.ScheduledPrice != nil && p.PriceStartDate != nil && p.PriceEndDate != nil
}

// CartItem holds a copy of the product price taken when the line was added.
// The copy is only rewritten by explicit synchronization so checkout totals
// never change underfoot.
type CartItem struct {
	ID            int64
	CartID        int64
	UserID        int64 // cart owner, joined in for targeted notifications
	ProductID     int64
	Quantity      int
	Price         decimal.Decimal
	OriginalPrice *decimal.Decimal
	ProductName   string
	ProductImage  string
	BrandName     string
}

type Favorite struct {
	ID        int64
	UserID    int64
	ProductID int64
	CreatedAt time.Time
}
