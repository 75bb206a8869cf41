// Package analytics reduces sale lines into dashboard, report and ranking figures.
// Nothing here reads storage; callers load the sales and hand over SaleLines.
package analytics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"restaurant-pos/internal/apperr"
	"restaurant-pos/internal/costing"
	"restaurant-pos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleLine is one sale joined with the product figures needed for profit.
type SaleLine struct {
	SaleID       uuid.UUID
	ProductID    uuid.UUID
	ProductName  string
	Quantity     int
	UnitPrice    decimal.Decimal
	ProductPrice decimal.Decimal
	UnitCost     decimal.Decimal
	Timestamp    time.Time
}

func (l SaleLine) Revenue() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (l SaleLine) Cost() decimal.Decimal {
	return l.UnitCost.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LineFromSale expects the sale's product and its recipe lines to be preloaded.
func LineFromSale(s *model.Sale) SaleLine {
	line := SaleLine{
		SaleID:    s.ID,
		ProductID: s.ProductID,
		Quantity:  s.Quantity,
		UnitPrice: s.UnitPrice,
		UnitCost:  decimal.Zero,
		Timestamp: s.Timestamp,
	}
	if s.Product != nil {
		line.ProductName = s.Product.Name
		line.ProductPrice = s.Product.Price
		line.UnitCost = costing.ProductCost(s.Product)
	}
	return line
}

type Summary struct {
	Revenue      decimal.Decimal `json:"revenue"`
	Cost         decimal.Decimal `json:"cost"`
	Profit       decimal.Decimal `json:"profit"`
	ProfitMargin decimal.Decimal `json:"profit_margin"`
	Transactions int             `json:"transactions"`
	ItemsSold    int             `json:"items_sold"`
}

func Summarize(lines []SaleLine) Summary {
	s := Summary{Revenue: decimal.Zero, Cost: decimal.Zero}
	for _, l := range lines {
		s.Revenue = s.Revenue.Add(l.Revenue())
		s.Cost = s.Cost.Add(l.Cost())
		s.Transactions++
		s.ItemsSold += l.Quantity
	}
	s.Profit = s.Revenue.Sub(s.Cost)
	s.ProfitMargin = costing.RevenueMargin(s.Revenue, s.Profit)
	return s
}

// Window keeps lines with from <= timestamp < to.
func Window(lines []SaleLine, from, to time.Time) []SaleLine {
	var out []SaleLine
	for _, l := range lines {
		if !l.Timestamp.Before(from) && l.Timestamp.Before(to) {
			out = append(out, l)
		}
	}
	return out
}

type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PeriodDay, nil
	case PeriodDay, PeriodWeek, PeriodMonth:
		return p, nil
	default:
		return "", apperr.Validation("invalid period %q, choose from: day, week, month", s)
	}
}

// BucketKey formats t as YYYY-MM-DD, YYYY-Www (Sunday-based week 00-53) or YYYY-MM.
func BucketKey(t time.Time, p Period) string {
	switch p {
	case PeriodWeek:
		week := (t.YearDay() - 1 + 7 - int(t.Weekday())) / 7
		return fmt.Sprintf("%d-W%02d", t.Year(), week)
	case PeriodMonth:
		return t.Format("2006-01")
	default:
		return t.Format("2006-01-02")
	}
}

type Bucket struct {
	Period string `json:"period"`
	Summary
}

// GroupByPeriod buckets lines and summarises each bucket from its own lines, ordered by key.
func GroupByPeriod(lines []SaleLine, p Period) []Bucket {
	grouped := map[string][]SaleLine{}
	var keys []string
	for _, l := range lines {
		k := BucketKey(l.Timestamp, p)
		if _, ok := grouped[k]; !ok {
			keys = append(keys, k)
		}
		grouped[k] = append(grouped[k], l)
	}
	sort.Strings(keys)

	buckets := make([]Bucket, 0, len(keys))
	for _, k := range keys {
		buckets = append(buckets, Bucket{Period: k, Summary: Summarize(grouped[k])})
	}
	return buckets
}

// DailyChart returns one bucket per day for the days ending with the day of today, empty days included.
func DailyChart(lines []SaleLine, today time.Time, days int) []Bucket {
	start := StartOfDay(today)
	chart := make([]Bucket, 0, days)
	for i := days - 1; i >= 0; i-- {
		from := start.AddDate(0, 0, -i)
		to := from.AddDate(0, 0, 1)
		chart = append(chart, Bucket{
			Period:  from.Format("2006-01-02"),
			Summary: Summarize(Window(lines, from, to)),
		})
	}
	return chart
}

func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

type ProductTotal struct {
	ProductID     uuid.UUID       `json:"product_id"`
	ProductName   string          `json:"product_name"`
	TotalQuantity int             `json:"total_quantity"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	Transactions  int             `json:"transactions"`
	AvgQuantity   decimal.Decimal `json:"avg_quantity_per_transaction"`
	Price         decimal.Decimal `json:"price"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	UnitProfit    decimal.Decimal `json:"unit_profit"`
	TotalProfit   decimal.Decimal `json:"total_profit"`
	ProfitMargin  decimal.Decimal `json:"profit_margin"`
}

// BestSellers ranks products by summed quantity, descending. Ties keep first-seen order.
// limit <= 0 returns every product.
func BestSellers(lines []SaleLine, limit int) []ProductTotal {
	index := map[uuid.UUID]int{}
	var totals []ProductTotal
	for _, l := range lines {
		i, ok := index[l.ProductID]
		if !ok {
			i = len(totals)
			index[l.ProductID] = i
			totals = append(totals, ProductTotal{
				ProductID:    l.ProductID,
				ProductName:  l.ProductName,
				TotalRevenue: decimal.Zero,
				Price:        l.ProductPrice,
				UnitCost:     l.UnitCost,
			})
		}
		totals[i].TotalQuantity += l.Quantity
		totals[i].TotalRevenue = totals[i].TotalRevenue.Add(l.Revenue())
		totals[i].Transactions++
	}

	sort.SliceStable(totals, func(a, b int) bool {
		return totals[a].TotalQuantity > totals[b].TotalQuantity
	})
	if limit > 0 && len(totals) > limit {
		totals = totals[:limit]
	}

	for i := range totals {
		t := &totals[i]
		t.AvgQuantity = decimal.NewFromInt(int64(t.TotalQuantity)).Div(decimal.NewFromInt(int64(t.Transactions)))
		t.UnitProfit = costing.Profit(t.Price, t.UnitCost)
		t.TotalProfit = t.UnitProfit.Mul(decimal.NewFromInt(int64(t.TotalQuantity)))
		t.ProfitMargin = costing.Margin(t.Price, t.UnitCost)
	}
	return totals
}

type Dashboard struct {
	Today       Summary        `json:"today"`
	Week        Summary        `json:"week"`
	Month       Summary        `json:"month"`
	ChartData   []Bucket       `json:"chart_data"`
	TopProducts []ProductTotal `json:"top_products"`
}

const (
	WeekDays    = 7
	MonthDays   = 30
	TopProducts = 5
)

// BuildDashboard expects lines covering at least the last MonthDays days before now.
func BuildDashboard(lines []SaleLine, now time.Time) Dashboard {
	today := StartOfDay(now)
	end := today.AddDate(0, 0, 1)
	weekLines := Window(lines, today.AddDate(0, 0, -WeekDays), end)

	return Dashboard{
		Today:       Summarize(Window(lines, today, end)),
		Week:        Summarize(weekLines),
		Month:       Summarize(Window(lines, today.AddDate(0, 0, -MonthDays), end)),
		ChartData:   DailyChart(lines, now, WeekDays),
		TopProducts: BestSellers(weekLines, TopProducts),
	}
}

type DailyPoint struct {
	Date     string          `json:"date"`
	Quantity int             `json:"quantity"`
	Revenue  decimal.Decimal `json:"revenue"`
	Profit   decimal.Decimal `json:"profit"`
}

type ProductSummary struct {
	TotalSales        int             `json:"total_sales"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	TotalCost         decimal.Decimal `json:"total_cost"`
	TotalProfit       decimal.Decimal `json:"total_profit"`
	ProfitMargin      decimal.Decimal `json:"profit_margin"`
	AverageDailySales decimal.Decimal `json:"average_daily_sales"`
}

// ProductPerformance summarises one product's lines over a window of days, priced at unitCost.
func ProductPerformance(lines []SaleLine, unitCost decimal.Decimal, days int) (ProductSummary, []DailyPoint) {
	summary := ProductSummary{TotalRevenue: decimal.Zero}
	var chart []DailyPoint
	byDate := map[string]int{}

	for _, l := range lines {
		summary.TotalSales += l.Quantity
		summary.TotalRevenue = summary.TotalRevenue.Add(l.Revenue())

		date := l.Timestamp.Format("2006-01-02")
		i, ok := byDate[date]
		if !ok {
			i = len(chart)
			byDate[date] = i
			chart = append(chart, DailyPoint{Date: date, Revenue: decimal.Zero})
		}
		chart[i].Quantity += l.Quantity
		chart[i].Revenue = chart[i].Revenue.Add(l.Revenue())
	}
	sort.SliceStable(chart, func(a, b int) bool { return chart[a].Date < chart[b].Date })

	for i := range chart {
		chart[i].Profit = chart[i].Revenue.Sub(unitCost.Mul(decimal.NewFromInt(int64(chart[i].Quantity))))
	}

	summary.TotalCost = unitCost.Mul(decimal.NewFromInt(int64(summary.TotalSales)))
	summary.TotalProfit = summary.TotalRevenue.Sub(summary.TotalCost)
	summary.ProfitMargin = costing.RevenueMargin(summary.TotalRevenue, summary.TotalProfit)
	summary.AverageDailySales = decimal.Zero
	if days > 0 {
		summary.AverageDailySales = decimal.NewFromInt(int64(summary.TotalSales)).Div(decimal.NewFromInt(int64(days)))
	}
	return summary, chart
}
