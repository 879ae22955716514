package models

import "time"

// PriceRow is one persisted price observation. It is unique by
// (State, District, Market, Commodity, Date); Price is the only field a
// later fetch may change.
type PriceRow struct {
	ID uint `gorm:"column:id;primaryKey" json:"id"`

	// State, District and Market locate the mandi (e.g., "Tamil Nadu", "Salem", "Attur").
	State    string `gorm:"column:state;uniqueIndex:uidx_market_prices_identity" json:"state"`
	District string `gorm:"column:district;uniqueIndex:uidx_market_prices_identity" json:"district"`
	Market   string `gorm:"column:market;uniqueIndex:uidx_market_prices_identity" json:"market"`

	// Commodity is the source's commodity name (e.g., "Tomato").
	Commodity string `gorm:"column:commodity;uniqueIndex:uidx_market_prices_identity" json:"commodity"`

	// Price is the modal price per kg.
	Price float64 `gorm:"column:price" json:"price"`

	// Date is the arrival date as DD/MM/YYYY.
	Date string `gorm:"column:date;uniqueIndex:uidx_market_prices_identity" json:"date"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (PriceRow) TableName() string {
	return "market_prices"
}
