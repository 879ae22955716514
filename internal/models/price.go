// Package models defines the domain models used across the application.
package models

// PriceRecord is one commodity/market/date observation normalized from the
// remote source. The per-kg fields are always the matching source price
// divided by 100; they are set only by the normalizer.
type PriceRecord struct {
	// ID is the record's position in the batch it was fetched in.
	ID int `json:"id"`

	State     string `json:"state"`
	District  string `json:"district"`
	Market    string `json:"market"`
	Commodity string `json:"commodity"`
	Variety   string `json:"variety"`
	Grade     string `json:"grade"`

	// CommodityCode is the source's code for the commodity, used as its id.
	CommodityCode string `json:"commodity_code"`

	// ArrivalDate is the normalized YYYY-MM-DD form of Date.
	ArrivalDate string `json:"arrival_date"`

	// Date is the source DD/MM/YYYY arrival date.
	Date string `json:"date"`

	// Prices in source units (per quintal).
	MinPrice   float64 `json:"min_price"`
	MaxPrice   float64 `json:"max_price"`
	ModalPrice float64 `json:"modal_price"`

	MinPricePerKg   float64 `json:"min_price_per_kg"`
	MaxPricePerKg   float64 `json:"max_price_per_kg"`
	ModalPricePerKg float64 `json:"modal_price_per_kg"`

	// PricePerKg is the canonical price: the modal price per kg.
	PricePerKg float64 `json:"price_per_kg"`
}

// Key returns the record's identity key.
func (r PriceRecord) Key() Key {
	return Key{
		State:     r.State,
		District:  r.District,
		Market:    r.Market,
		Commodity: r.Commodity,
		Date:      r.Date,
	}
}

// RecordSet is an ordered batch of records.
type RecordSet []PriceRecord

// Key identifies one stored price observation. Date is DD/MM/YYYY.
type Key struct {
	State     string
	District  string
	Market    string
	Commodity string
	Date      string
}

// QueryFilter narrows a source query. Empty State/District take the
// configured defaults; an empty Commodity is omitted; an empty Date means
// "today, with walk-back".
type QueryFilter struct {
	State     string `form:"state" json:"state,omitempty"`
	District  string `form:"district" json:"district,omitempty"`
	Commodity string `form:"commodity" json:"commodity,omitempty"`
	Date      string `form:"date" json:"date,omitempty"`
}
