package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/navid-fn/mandi/internal/stats"
)

type DashboardView struct {
	MarketData  []stats.PriceChange `json:"market_data"`
	Stats       DashboardStats      `json:"stats"`
	CurrentDate string              `json:"current_date"`
}

// DashboardStats is the dashboard's summary block. Prices are not rounded.
type DashboardStats struct {
	TotalRecords     int     `json:"total_records"`
	AvgPrice         float64 `json:"avg_price"`
	MaxPrice         float64 `json:"max_price"`
	MinPrice         float64 `json:"min_price"`
	CommoditiesCount int     `json:"commodities_count"`
}

func newDashboardStats(sum stats.Summary) DashboardStats {
	return DashboardStats{
		TotalRecords:     sum.TotalRecords,
		AvgPrice:         sum.AvgPrice,
		MaxPrice:         sum.MaxPrice,
		MinPrice:         sum.MinPrice,
		CommoditiesCount: sum.Commodities,
	}
}

type MarketAnalysisView struct {
	CommodityStats []stats.CommodityStat `json:"commodity_stats"`
	TotalMarkets   int                   `json:"total_markets"`
}

type PriceTrendsView struct {
	Trends      map[string][]stats.TrendPoint `json:"trends"`
	Commodities []string                      `json:"commodities"`
}

type ReportsView struct {
	Reports     []stats.ReportRow `json:"reports"`
	ReportType  string            `json:"report_type"`
	CurrentDate string            `json:"current_date"`
}

// Dashboard never fails: a storage error yields the empty view.
func (s *MarketService) Dashboard(ctx context.Context) DashboardView {
	view := DashboardView{
		MarketData:  []stats.PriceChange{},
		CurrentDate: s.Today(),
	}
	recs, err := s.DashboardRecords(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Error in dashboard")
		return view
	}

	view.MarketData = stats.PriceChanges(recs)
	view.Stats = newDashboardStats(stats.Summarize(recs))
	s.logger.WithFields(logrus.Fields{
		"records":     view.Stats.TotalRecords,
		"commodities": view.Stats.CommoditiesCount,
	}).Info("Dashboard data")
	return view
}

func (s *MarketService) MarketAnalysis(ctx context.Context) MarketAnalysisView {
	commodityStats, totalMarkets := stats.CommodityStats(s.LiveRecords(ctx))
	s.logger.WithFields(logrus.Fields{
		"commodities": len(commodityStats),
		"markets":     totalMarkets,
	}).Info("Market analysis")
	return MarketAnalysisView{CommodityStats: commodityStats, TotalMarkets: totalMarkets}
}

func (s *MarketService) PriceTrends(ctx context.Context) PriceTrendsView {
	trends, commodities := stats.TimeSeries(s.LiveRecords(ctx))
	s.logger.WithField("commodities", len(commodities)).Info("Price trends")
	return PriceTrendsView{Trends: trends, Commodities: commodities}
}

// Reports lists every live record; reportType is echoed back.
func (s *MarketService) Reports(ctx context.Context, reportType string) ReportsView {
	if reportType == "" {
		reportType = "daily"
	}
	rows := stats.ReportRows(s.LiveRecords(ctx))
	s.logger.WithFields(logrus.Fields{"records": len(rows), "type": reportType}).Info("Reports")
	return ReportsView{Reports: rows, ReportType: reportType, CurrentDate: s.Today()}
}
