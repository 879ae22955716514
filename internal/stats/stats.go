// Package stats derives summaries and series from a record set. Every
// function here is pure: no storage access, no clock.
package stats

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/navid-fn/mandi/internal/models"
	"github.com/navid-fn/mandi/utils"
)

// Round2 rounds v to two decimal places, half away from zero.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

type Summary struct {
	TotalRecords int     `json:"total_records"`
	AvgPrice     float64 `json:"avg_price"`
	MinPrice     float64 `json:"min_price"`
	MaxPrice     float64 `json:"max_price"`
	Commodities  int     `json:"commodities"`
	Markets      int     `json:"markets"`
	States       int     `json:"states"`
}

// Rounded returns s with its prices rounded to two places.
func (s Summary) Rounded() Summary {
	s.AvgPrice = Round2(s.AvgPrice)
	s.MinPrice = Round2(s.MinPrice)
	s.MaxPrice = Round2(s.MaxPrice)
	return s
}

// Summarize computes count, mean, min and max of the per-kg prices along
// with distinct commodity, market and state counts. An empty set yields
// the zero Summary.
func Summarize(recs models.RecordSet) Summary {
	if len(recs) == 0 {
		return Summary{}
	}

	commodities := make(map[string]struct{})
	markets := make(map[string]struct{})
	states := make(map[string]struct{})
	prices := make([]float64, 0, len(recs))
	for _, r := range recs {
		commodities[r.Commodity] = struct{}{}
		markets[r.Market] = struct{}{}
		states[r.State] = struct{}{}
		prices = append(prices, r.PricePerKg)
	}

	avg, lo, hi := describe(prices)
	return Summary{
		TotalRecords: len(recs),
		AvgPrice:     avg,
		MinPrice:     lo,
		MaxPrice:     hi,
		Commodities:  len(commodities),
		Markets:      len(markets),
		States:       len(states),
	}
}

// describe returns mean, min and max; all zero for no prices.
func describe(prices []float64) (avg, lo, hi float64) {
	if len(prices) == 0 {
		return 0, 0, 0
	}
	var sum float64
	lo, hi = prices[0], prices[0]
	for _, p := range prices {
		sum += p
		lo = min(lo, p)
		hi = max(hi, p)
	}
	return sum / float64(len(prices)), lo, hi
}

// PriceChange is one dashboard row.
type PriceChange struct {
	Commodity   string  `json:"commodity"`
	Market      string  `json:"market"`
	PricePerKg  float64 `json:"price_per_kg"`
	PriceChange float64 `json:"price_change"`
	Date        string  `json:"date"`
}

// PriceChanges groups records by commodity (groups in first-seen order),
// orders each group by arrival date and reports the percentage change from
// the previous record of the same commodity, rounded to two places. The
// first record of a group, and any record following a zero price, report 0.
func PriceChanges(recs models.RecordSet) []PriceChange {
	out := make([]PriceChange, 0, len(recs))
	for _, group := range groupByCommodity(recs) {
		slices.SortStableFunc(group, func(a, b models.PriceRecord) int {
			return cmp.Compare(a.ArrivalDate, b.ArrivalDate)
		})
		for i, r := range group {
			var change float64
			if i > 0 {
				change = percentChange(group[i-1].PricePerKg, r.PricePerKg)
			}
			out = append(out, PriceChange{
				Commodity:   r.Commodity,
				Market:      r.Market,
				PricePerKg:  r.PricePerKg,
				PriceChange: change,
				Date:        r.Date,
			})
		}
	}
	return out
}

func percentChange(prev, curr float64) float64 {
	if prev == 0 {
		return 0
	}
	p := decimal.NewFromFloat(prev)
	c := decimal.NewFromFloat(curr)
	return c.Sub(p).Div(p).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
}

// groupByCommodity preserves first-seen commodity order and record order
// within each group. Groups are copies, safe to sort.
func groupByCommodity(recs models.RecordSet) []models.RecordSet {
	index := make(map[string]int)
	var groups []models.RecordSet
	for _, r := range recs {
		i, ok := index[r.Commodity]
		if !ok {
			i = len(groups)
			index[r.Commodity] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], r)
	}
	return groups
}

// CommodityStat aggregates one commodity for the analysis view.
type CommodityStat struct {
	Name        string    `json:"name"`
	AvgPrice    float64   `json:"avg_price"`
	MaxPrice    float64   `json:"max_price"`
	MinPrice    float64   `json:"min_price"`
	Markets     []string  `json:"markets"`
	MarketCount int       `json:"market_count"`
	PriceTrend  []float64 `json:"price_trend"`
}

// CommodityStats returns per-commodity stats in first-seen order and the
// number of distinct markets across all records. PriceTrend keeps the
// prices in record order.
func CommodityStats(recs models.RecordSet) ([]CommodityStat, int) {
	allMarkets := make(map[string]struct{})
	out := make([]CommodityStat, 0)
	for _, group := range groupByCommodity(recs) {
		prices := make([]float64, 0, len(group))
		seen := make(map[string]struct{})
		markets := make([]string, 0)
		for _, r := range group {
			prices = append(prices, r.PricePerKg)
			allMarkets[r.Market] = struct{}{}
			if _, ok := seen[r.Market]; !ok {
				seen[r.Market] = struct{}{}
				markets = append(markets, r.Market)
			}
		}
		slices.Sort(markets)

		avg, lo, hi := describe(prices)
		out = append(out, CommodityStat{
			Name:        group[0].Commodity,
			AvgPrice:    avg,
			MaxPrice:    hi,
			MinPrice:    lo,
			Markets:     markets,
			MarketCount: len(markets),
			PriceTrend:  prices,
		})
	}
	return out, len(allMarkets)
}

// TrendPoint is one (date, price, market) sample.
type TrendPoint struct {
	Date   string  `json:"date"`
	Price  float64 `json:"price"`
	Market string  `json:"market"`
}

// TimeSeries returns each commodity's samples ordered by calendar date
// and the commodity names in first-seen order. Dates that do not parse
// sort first.
func TimeSeries(recs models.RecordSet) (map[string][]TrendPoint, []string) {
	series := make(map[string][]TrendPoint)
	commodities := make([]string, 0)
	for _, group := range groupByCommodity(recs) {
		name := group[0].Commodity
		commodities = append(commodities, name)
		points := make([]TrendPoint, 0, len(group))
		for _, r := range group {
			points = append(points, TrendPoint{Date: r.Date, Price: r.PricePerKg, Market: r.Market})
		}
		slices.SortStableFunc(points, func(a, b TrendPoint) int {
			return calendarDay(a.Date).Compare(calendarDay(b.Date))
		})
		series[name] = points
	}
	return series, commodities
}

func calendarDay(s string) time.Time {
	t, err := utils.ParseSourceDate(s)
	if err != nil {
		return time.Time{}
	}
	return t
}

type CommodityRef struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Variety string `json:"variety"`
}

// CommodityRefs lists distinct commodities in first-seen order. The first
// record of a commodity supplies its id and variety.
func CommodityRefs(recs models.RecordSet) []CommodityRef {
	seen := make(map[string]struct{})
	out := make([]CommodityRef, 0)
	for _, r := range recs {
		if _, ok := seen[r.Commodity]; ok {
			continue
		}
		seen[r.Commodity] = struct{}{}
		out = append(out, CommodityRef{ID: r.CommodityCode, Name: r.Commodity, Variety: r.Variety})
	}
	return out
}

type MarketRef struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	District string `json:"district"`
	State    string `json:"state"`
}

// MarketRefs lists distinct (market, district, state) triples in first-seen
// order with sequential ids MKT001, MKT002, ...
func MarketRefs(recs models.RecordSet) []MarketRef {
	type key struct{ market, district, state string }
	seen := make(map[key]struct{})
	out := make([]MarketRef, 0)
	for _, r := range recs {
		k := key{r.Market, r.District, r.State}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, MarketRef{
			ID:       fmt.Sprintf("MKT%03d", len(seen)),
			Name:     r.Market,
			District: r.District,
			State:    r.State,
		})
	}
	return out
}

type ReportRow struct {
	Date      string  `json:"date"`
	Commodity string  `json:"commodity"`
	Market    string  `json:"market"`
	Price     float64 `json:"price"`
}

// ReportRows flattens records for the report view, in record order.
func ReportRows(recs models.RecordSet) []ReportRow {
	out := make([]ReportRow, 0, len(recs))
	for _, r := range recs {
		out = append(out, ReportRow{Date: r.Date, Commodity: r.Commodity, Market: r.Market, Price: r.PricePerKg})
	}
	return out
}
