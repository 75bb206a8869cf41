package handler

import (
	"fmt"

	"restaurant-pos/internal/apperr"
	"restaurant-pos/internal/service"

	"github.com/gofiber/fiber/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReportHandler struct {
	service service.ReportService
}

func NewReportHandler(s service.ReportService) *ReportHandler {
	return &ReportHandler{service: s}
}

// GetDashboard returns today/week/month totals, the 7 day chart and the week's top products
// GET /api/v1/reports/dashboard
func (h *ReportHandler) GetDashboard(c *fiber.Ctx) error {
	dash, err := h.service.Dashboard(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dash)
}

func reportQuery(c *fiber.Ctx) (service.ReportQuery, error) {
	var q service.ReportQuery
	from, to, err := dateRange(c)
	if err != nil {
		return q, err
	}
	if from == nil || to == nil {
		return q, apperr.ValidationFields("startDate and endDate are required", []string{"startDate", "endDate"})
	}
	productID, err := optionalUUID(c, "productId")
	if err != nil {
		return q, err
	}
	q.From = *from
	q.To = *to
	q.Period = c.Query("period")
	q.ProductID = productID
	return q, nil
}

// GET /api/v1/reports/sales?startDate&endDate&period&productId
func (h *ReportHandler) GetReport(c *fiber.Ctx) error {
	q, err := reportQuery(c)
	if err != nil {
		return respondError(c, err)
	}
	report, err := h.service.Report(q)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(report)
}

// ExportReport downloads the sales report as an xlsx workbook
// GET /api/v1/reports/sales/export?startDate&endDate&period&productId
func (h *ReportHandler) ExportReport(c *fiber.Ctx) error {
	q, err := reportQuery(c)
	if err != nil {
		return respondError(c, err)
	}
	data, err := h.service.ExportReport(q)
	if err != nil {
		return respondError(c, err)
	}

	name := fmt.Sprintf("sales-report-%s-%s.xlsx", q.From.Format(dateLayout), q.To.AddDate(0, 0, -1).Format(dateLayout))
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Send(data)
}

// GET /api/v1/reports/best-sellers?days&limit
func (h *ReportHandler) GetBestSellers(c *fiber.Ctx) error {
	days := c.QueryInt("days", service.DefaultBestSellerDays)
	limit := c.QueryInt("limit", service.DefaultBestSellerLimit)

	top, err := h.service.BestSellers(days, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"period_days": days, "products": top})
}
