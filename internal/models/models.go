package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID                   uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Email                string     `gorm:"uniqueIndex;not null"     json:"email"`
	PasswordHash         string     `gorm:"not null"                 json:"-"`
	ResetToken           *string    `gorm:"index"                    json:"-"`
	ResetTokenExpiration *time.Time `json:"-"`
	Cart                 []CartItem `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"cart,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
}

type Product struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"   json:"id"`
	Title       string          `gorm:"not null"                   json:"title"`
	Price       decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	Description string          `gorm:"not null"                   json:"description"`
	ImageURL    string          `gorm:"not null"                   json:"image_url"`
	UserID      uint            `gorm:"index;not null"             json:"user_id"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Snapshot copies every product field into the frozen form stored on order lines.
func (p Product) Snapshot() ProductSnapshot {
	return ProductSnapshot{
		ProductID:   p.ID,
		Title:       p.Title,
		Price:       p.Price,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		OwnerID:     p.UserID,
	}
}

// CartItem is one line of a user's cart. A product appears at most once per
// cart and the quantity never drops below one; removing a line deletes it.
type CartItem struct {
	ID        uint    `gorm:"primaryKey;autoIncrement"                              json:"id"`
	UserID    uint    `gorm:"not null;uniqueIndex:idx_cart_user_product"            json:"user_id"`
	ProductID uint    `gorm:"not null;uniqueIndex:idx_cart_user_product"            json:"product_id"`
	Quantity  uint    `gorm:"not null;default:1;check:chk_cart_quantity,quantity >= 1" json:"quantity"`
	Product   Product `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"      json:"product"`
}

type Order struct {
	ID        uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint        `gorm:"index;not null"           json:"user_id"`
	UserEmail string      `gorm:"not null"                 json:"user_email"`
	Items     []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt time.Time   `json:"created_at"`
}

// Total is computed from the frozen line prices, never from the live catalog.
func (o Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.Product.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

type OrderItem struct {
	ID       uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID  uint            `gorm:"index;not null"           json:"order_id"`
	Quantity uint            `gorm:"not null"                 json:"quantity"`
	Product  ProductSnapshot `gorm:"embedded"                 json:"product"`
}

// ProductSnapshot is a copy of a product taken at checkout. It is not a
// reference: later edits or deletion of the product do not touch it.
type ProductSnapshot struct {
	ProductID   uint            `gorm:"column:product_id;not null"                   json:"id"`
	Title       string          `gorm:"column:product_title;not null"                json:"title"`
	Price       decimal.Decimal `gorm:"column:product_price;type:numeric(10,2);not null" json:"price"`
	Description string          `gorm:"column:product_description"                  json:"description"`
	ImageURL    string          `gorm:"column:product_image_url"                    json:"image_url"`
	OwnerID     uint            `gorm:"column:product_user_id"                      json:"user_id"`
}
