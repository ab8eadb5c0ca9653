package models

type MenuItem struct {
	ItemName    string  `gorm:"column:item_name;primaryKey;size:50" validate:"required,max=50"`
	Type        string  `gorm:"column:type;size:20;index" validate:"required,max=20"`
	Price       float64 `gorm:"column:price;type:decimal(10,2);not null" validate:"gte=0"`
	Description string  `gorm:"column:description;size:400" validate:"max=400"`
	ImageURL    string  `gorm:"column:image_url;size:256" validate:"omitempty,url,max=256"`
}

func (MenuItem) TableName() string { return "menu" }
