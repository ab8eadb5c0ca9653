package models

import "time"

type Order struct {
	OrderID           string      `gorm:"column:order_id;primaryKey;size:36"`
	Login             string      `gorm:"column:login;size:50;not null;index"`
	Paid              bool        `gorm:"column:paid;not null;default:false"`
	TimestampReceived time.Time   `gorm:"column:timestamp_received;not null"`
	Total             float64     `gorm:"column:total;type:decimal(10,2);not null"`
	Items             []OrderItem `gorm:"foreignKey:OrderID;references:OrderID"`
}

func (Order) TableName() string { return "orders" }

type OrderItem struct {
	ID       uint    `gorm:"column:id;primaryKey"`
	OrderID  string  `gorm:"column:order_id;size:36;not null;index"`
	// ItemName and Price are copied from the menu when the order is placed.
	ItemName string  `gorm:"column:item_name;size:50;not null"`
	Price    float64 `gorm:"column:price;type:decimal(10,2);not null"`
	Quantity int     `gorm:"column:quantity;not null"`
}

func (OrderItem) TableName() string { return "order_items" }
