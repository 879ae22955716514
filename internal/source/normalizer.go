package source

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/navid-fn/mandi/internal/models"
	"github.com/navid-fn/mandi/utils"
)

// Raw field names in the source's records.
const (
	FieldState         = "State"
	FieldDistrict      = "District"
	FieldMarket        = "Market"
	FieldCommodity     = "Commodity"
	FieldVariety       = "Variety"
	FieldGrade         = "Grade"
	FieldArrivalDate   = "Arrival_Date"
	FieldMinPrice      = "Min_Price"
	FieldMaxPrice      = "Max_Price"
	FieldModalPrice    = "Modal_Price"
	FieldCommodityCode = "Commodity_Code"
)

// RawRecord is one element of the source's "records" array. Numeric fields
// arrive either as JSON numbers or as strings.
type RawRecord map[string]any

// PerKg converts a per-quintal source price to a per-kg price.
// The source reports prices per 100 kg, so this is an exact decimal shift.
func PerKg(price decimal.Decimal) float64 {
	f, _ := price.Shift(-2).Float64()
	return f
}

// Normalize turns a raw record into a PriceRecord. index becomes the
// record's ID. Missing text and price fields default to "" and 0; a missing
// or unparseable arrival date, or a non-numeric price, is an error.
func Normalize(index int, raw RawRecord) (models.PriceRecord, error) {
	date, ok := raw[FieldArrivalDate].(string)
	if !ok {
		return models.PriceRecord{}, &NormalizationError{Field: FieldArrivalDate, Err: ErrMissingField}
	}
	iso, err := utils.SourceToISO(date)
	if err != nil {
		return models.PriceRecord{}, &NormalizationError{Field: FieldArrivalDate, Err: err}
	}

	minPrice, err := priceField(raw, FieldMinPrice)
	if err != nil {
		return models.PriceRecord{}, err
	}
	maxPrice, err := priceField(raw, FieldMaxPrice)
	if err != nil {
		return models.PriceRecord{}, err
	}
	modalPrice, err := priceField(raw, FieldModalPrice)
	if err != nil {
		return models.PriceRecord{}, err
	}

	return models.PriceRecord{
		ID:              index,
		State:           stringField(raw, FieldState),
		District:        stringField(raw, FieldDistrict),
		Market:          stringField(raw, FieldMarket),
		Commodity:       stringField(raw, FieldCommodity),
		Variety:         stringField(raw, FieldVariety),
		Grade:           stringField(raw, FieldGrade),
		CommodityCode:   stringField(raw, FieldCommodityCode),
		ArrivalDate:     iso,
		Date:            date,
		MinPrice:        minPrice.InexactFloat64(),
		MaxPrice:        maxPrice.InexactFloat64(),
		ModalPrice:      modalPrice.InexactFloat64(),
		MinPricePerKg:   PerKg(minPrice),
		MaxPricePerKg:   PerKg(maxPrice),
		ModalPricePerKg: PerKg(modalPrice),
		PricePerKg:      PerKg(modalPrice),
	}, nil
}

func stringField(raw RawRecord, key string) string {
	switch v := raw[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func priceField(raw RawRecord, key string) (decimal.Decimal, error) {
	var (
		d   decimal.Decimal
		err error
	)
	switch v := raw[key].(type) {
	case nil:
		return decimal.Zero, nil
	case json.Number:
		d, err = decimal.NewFromString(v.String())
	case string:
		d, err = decimal.NewFromString(strings.TrimSpace(v))
	case float64:
		d = decimal.NewFromFloat(v)
	default:
		err = fmt.Errorf("unexpected type %T", v)
	}
	if err != nil {
		return decimal.Zero, &NormalizationError{Field: key, Err: err}
	}
	return d, nil
}
