package service

import (
	"bytes"
	"context"
	"time"

	"restaurant-pos/internal/analytics"
	"restaurant-pos/internal/apperr"
	"restaurant-pos/internal/repository"
	"restaurant-pos/pkg/logger"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

const (
	reportModule = "ReportService"

	DefaultBestSellerDays  = 30
	DefaultBestSellerLimit = 10

	reportSheet = "Report"
)

// ReportQuery covers [From, To). Callers turn an inclusive end date into the next midnight.
type ReportQuery struct {
	From      time.Time
	To        time.Time
	Period    string
	ProductID *uuid.UUID
}

type SalesReport struct {
	Period    analytics.Period   `json:"period"`
	StartDate time.Time          `json:"start_date"`
	EndDate   time.Time          `json:"end_date"`
	Data      []analytics.Bucket `json:"data"`
	Totals    analytics.Summary  `json:"totals"`
}

type ReportService interface {
	Dashboard(ctx context.Context) (*analytics.Dashboard, error)
	Report(q ReportQuery) (*SalesReport, error)
	ExportReport(q ReportQuery) ([]byte, error)
	BestSellers(days, limit int) ([]analytics.ProductTotal, error)
}

type reportService struct {
	sales repository.SaleRepository
	deps  Deps
	now   func() time.Time
}

func NewReportService(sales repository.SaleRepository, deps Deps) ReportService {
	return &reportService{sales: sales, deps: deps, now: time.Now}
}

func (s *reportService) lines(from, to time.Time, productID *uuid.UUID) ([]analytics.SaleLine, error) {
	sales, err := s.sales.FindRange(from, to, productID)
	if err != nil {
		return nil, err
	}
	lines := make([]analytics.SaleLine, 0, len(sales))
	for i := range sales {
		lines = append(lines, analytics.LineFromSale(&sales[i]))
	}
	return lines, nil
}

// Dashboard is served from the cache when present; ledger mutations drop the cached copy.
func (s *reportService) Dashboard(ctx context.Context) (*analytics.Dashboard, error) {
	if s.deps.Cache != nil {
		var cached analytics.Dashboard
		hit, err := s.deps.Cache.Get(ctx, dashboardCacheKey, &cached)
		if err != nil {
			logger.LogError(s.deps.logger(), reportModule, "Dashboard", "read dashboard cache", nil, err)
		} else if hit {
			return &cached, nil
		}
	}

	now := s.now()
	today := analytics.StartOfDay(now)
	lines, err := s.lines(today.AddDate(0, 0, -analytics.MonthDays), today.AddDate(0, 0, 1), nil)
	if err != nil {
		return nil, err
	}
	dash := analytics.BuildDashboard(lines, now)

	if s.deps.Cache != nil {
		if err := s.deps.Cache.Set(ctx, dashboardCacheKey, dash); err != nil {
			logger.LogError(s.deps.logger(), reportModule, "Dashboard", "write dashboard cache", nil, err)
		}
	}
	return &dash, nil
}

func (s *reportService) Report(q ReportQuery) (*SalesReport, error) {
	period, err := analytics.ParsePeriod(q.Period)
	if err != nil {
		return nil, err
	}
	if q.From.IsZero() || q.To.IsZero() {
		return nil, apperr.ValidationFields("start_date and end_date are required", []string{"start_date", "end_date"})
	}
	if !q.To.After(q.From) {
		return nil, apperr.Validation("end_date must not be before start_date")
	}

	lines, err := s.lines(q.From, q.To, q.ProductID)
	if err != nil {
		return nil, err
	}
	return &SalesReport{
		Period:    period,
		StartDate: q.From,
		EndDate:   q.To,
		Data:      analytics.GroupByPeriod(lines, period),
		Totals:    analytics.Summarize(lines),
	}, nil
}

var reportHeadings = []string{"Period", "Transactions", "Items Sold", "Total Sales", "Cost", "Profit", "Profit Margin (%)"}

func bucketRow(label string, sum analytics.Summary) []interface{} {
	return []interface{}{
		label,
		sum.Transactions,
		sum.ItemsSold,
		sum.Revenue.Round(2).InexactFloat64(),
		sum.Cost.Round(2).InexactFloat64(),
		sum.Profit.Round(2).InexactFloat64(),
		sum.ProfitMargin.Round(2).InexactFloat64(),
	}
}

// ExportReport renders Report as an xlsx workbook with one row per bucket and a totals row.
func (s *reportService) ExportReport(q ReportQuery) ([]byte, error) {
	report, err := s.Report(q)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return nil, err
	}

	rows := [][]interface{}{toInterfaces(reportHeadings)}
	for _, b := range report.Data {
		rows = append(rows, bucketRow(b.Period, b.Summary))
	}
	rows = append(rows, bucketRow("Total", report.Totals))

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(reportSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		logger.LogError(s.deps.logger(), reportModule, "ExportReport", "write workbook", nil, err)
		return nil, err
	}
	return buf.Bytes(), nil
}

func toInterfaces(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func (s *reportService) BestSellers(days, limit int) ([]analytics.ProductTotal, error) {
	if days <= 0 {
		days = DefaultBestSellerDays
	}
	if limit <= 0 {
		limit = DefaultBestSellerLimit
	}
	now := s.now()
	lines, err := s.lines(now.AddDate(0, 0, -days), now.Add(time.Nanosecond), nil)
	if err != nil {
		return nil, err
	}
	return analytics.BestSellers(lines, limit), nil
}
