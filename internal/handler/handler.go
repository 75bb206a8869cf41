package handler

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"restaurant-pos/internal/apperr"
	"restaurant-pos/internal/repository"
	"restaurant-pos/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

// respondError writes err with the status of its kind. Unknown errors are logged and hidden.
func respondError(c *fiber.Ctx, err error) error {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		logger.LogError(logger.Get(), "Handler", c.Route().Path, c.Method()+" "+c.Path(), nil, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
	}

	body := fiber.Map{"error": appErr.Message, "kind": appErr.Kind}
	if appErr.Available != nil {
		body["available"] = appErr.Available
	}
	if len(appErr.Fields) > 0 {
		body["fields"] = appErr.Fields
	}
	return c.Status(apperr.StatusCode(err)).JSON(body)
}

func parseID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, apperr.ValidationFields("invalid id", []string{"id"})
	}
	return id, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperr.Validation("Invalid JSON")
	}
	return nil
}

func listQuery(c *fiber.Ctx) repository.ListQuery {
	return repository.ListQuery{
		Page:      c.QueryInt("page", repository.DefaultPage),
		Limit:     c.QueryInt("limit", repository.DefaultLimit),
		Search:    c.Query("search"),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}
}

// optionalBool returns nil when the query parameter is absent or not a boolean.
func optionalBool(c *fiber.Ctx, key string) *bool {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

func optionalUUID(c *fiber.Ctx, key string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperr.ValidationFields("invalid "+key, []string{key})
	}
	return &id, nil
}

// dateRange reads startDate and endDate (YYYY-MM-DD or RFC 3339). A plain end date is
// inclusive, so it becomes the following midnight for the exclusive upper bound.
func dateRange(c *fiber.Ctx) (from, to *time.Time, err error) {
	if raw := strings.TrimSpace(c.Query("startDate")); raw != "" {
		t, _, err := parseTime(raw)
		if err != nil {
			return nil, nil, apperr.ValidationFields("invalid startDate", []string{"startDate"})
		}
		from = &t
	}
	if raw := strings.TrimSpace(c.Query("endDate")); raw != "" {
		t, dateOnly, err := parseTime(raw)
		if err != nil {
			return nil, nil, apperr.ValidationFields("invalid endDate", []string{"endDate"})
		}
		if dateOnly {
			t = t.AddDate(0, 0, 1)
		} else {
			t = t.Add(time.Millisecond)
		}
		to = &t
	}
	return from, to, nil
}

func parseTime(raw string) (time.Time, bool, error) {
	if t, err := time.ParseInLocation(dateLayout, raw, time.Local); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	return t, false, err
}
