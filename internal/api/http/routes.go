package httpapi

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/i474232898/weather-likelihood/internal/assistant"
	"github.com/i474232898/weather-likelihood/internal/climate"
	"github.com/i474232898/weather-likelihood/internal/store"
	"github.com/i474232898/weather-likelihood/internal/weather"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// StatsSource reports series cache usage.
type StatsSource interface {
	Stats() store.Stats
}

// Options configures the handlers.
type Options struct {
	DefaultWindowDays int
	// RequestTimeout bounds one request's upstream work. 0 = no limit.
	RequestTimeout time.Duration
}

// RegisterRoutes wires the HTTP handlers into the Fiber app. advisor and
// cache may be nil, in which case their routes are not registered.
func RegisterRoutes(app *fiber.App, service *weather.Service, advisor *assistant.Advisor, cache StatsSource, opts Options) {
	h := &handlers{opts: opts}

	v1 := app.Group("/api/v1")

	v1.Get("/probability", func(c *fiber.Ctx) error {
		q, err := h.parseQuery(c, true)
		if err != nil {
			return err
		}
		ctx, cancel := h.context(c)
		defer cancel()

		view, err := service.Probability(ctx, q)
		if err != nil {
			return err
		}
		return c.JSON(view)
	})

	v1.Get("/climatology", func(c *fiber.Ctx) error {
		q, err := h.parseQuery(c, false)
		if err != nil {
			return err
		}
		ctx, cancel := h.context(c)
		defer cancel()

		view, err := service.Climatology(ctx, q)
		if err != nil {
			return err
		}
		return c.JSON(view)
	})

	v1.Get("/climatology/curve", func(c *fiber.Ctx) error {
		loc, err := parseLocation(c)
		if err != nil {
			return err
		}
		v, err := parseVariable(c)
		if err != nil {
			return err
		}
		ctx, cancel := h.context(c)
		defer cancel()

		view, err := service.Curve(ctx, loc, v)
		if err != nil {
			return err
		}
		return c.JSON(view)
	})

	v1.Get("/trend", func(c *fiber.Ctx) error {
		q, err := h.parseQuery(c, true)
		if err != nil {
			return err
		}
		ctx, cancel := h.context(c)
		defer cancel()

		view, err := service.Trend(ctx, q)
		if err != nil {
			return err
		}
		return c.JSON(view)
	})

	v1.Get("/variables", func(c *fiber.Ctx) error {
		years := service.Years()
		return c.JSON(fiber.Map{
			"variables": weather.Variables(),
			"period":    years.String(),
		})
	})

	if advisor != nil {
		v1.Post("/assistant/query", func(c *fiber.Ctx) error {
			var body assistantBody
			if err := c.BodyParser(&body); err != nil {
				return climate.Invalid("malformed request body: %v", err)
			}
			req, err := body.request()
			if err != nil {
				return err
			}
			ctx, cancel := h.context(c)
			defer cancel()

			resp, err := advisor.Ask(ctx, req)
			if err != nil {
				return err
			}
			return c.JSON(resp)
		})
	}

	if cache != nil {
		v1.Get("/cache/stats", func(c *fiber.Ctx) error {
			return c.JSON(cache.Stats())
		})
	}
}

type handlers struct {
	opts Options
}

func (h *handlers) context(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	ctx := c.UserContext()
	if h.opts.RequestTimeout > 0 {
		return context.WithTimeout(ctx, h.opts.RequestTimeout)
	}
	return context.WithCancel(ctx)
}

// parseQuery binds lat, lon, variable (or var), target_date, threshold,
// comparison and window_days. threshold is required only when needThreshold.
func (h *handlers) parseQuery(c *fiber.Ctx, needThreshold bool) (weather.Query, error) {
	var q weather.Query

	loc, err := parseLocation(c)
	if err != nil {
		return q, err
	}
	q.Location = loc

	if q.Variable, err = parseVariable(c); err != nil {
		return q, err
	}

	raw := c.Query("target_date")
	if raw == "" {
		return q, climate.Invalid("target_date is required")
	}
	if q.TargetDate, err = time.Parse(climate.DateLayout, raw); err != nil {
		return q, climate.Invalid("target_date %q is not YYYY-MM-DD", raw)
	}

	switch raw := c.Query("threshold"); {
	case raw != "":
		if q.Threshold, err = parseFloat("threshold", raw); err != nil {
			return q, err
		}
	case needThreshold:
		return q, climate.Invalid("threshold is required")
	}

	q.Comparison = climate.GreaterThan
	if raw := c.Query("comparison"); raw != "" {
		if q.Comparison, err = climate.ParseComparison(strings.ToLower(raw)); err != nil {
			return q, err
		}
	}

	q.WindowDays = h.opts.DefaultWindowDays
	if raw := c.Query("window_days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return q, climate.Invalid("window_days %q is not an integer", raw)
		}
		q.WindowDays = n
	}
	return q, nil
}

func parseLocation(c *fiber.Ctx) (weather.Location, error) {
	rawLat, rawLon := c.Query("lat"), c.Query("lon")
	if rawLat == "" || rawLon == "" {
		return weather.Location{}, climate.Invalid("lat and lon query parameters are required")
	}
	lat, err := parseFloat("lat", rawLat)
	if err != nil {
		return weather.Location{}, err
	}
	lon, err := parseFloat("lon", rawLon)
	if err != nil {
		return weather.Location{}, err
	}
	loc := weather.Location{Lat: lat, Lon: lon}
	return loc, loc.Validate()
}

func parseVariable(c *fiber.Ctx) (weather.Variable, error) {
	raw := c.Query("variable", c.Query("var"))
	if raw == "" {
		return "", climate.Invalid("variable is required")
	}
	return weather.ParseVariable(raw)
}

func parseFloat(name, raw string) (float64, error) {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, climate.Invalid("%s %q is not a number", name, raw)
	}
	return f, nil
}

// assistantBody is the JSON body of the assistant endpoint.
type assistantBody struct {
	Query      string   `json:"query"`
	Lat        *float64 `json:"lat"`
	Lon        *float64 `json:"lon"`
	Date       string   `json:"date"`
	Persona    string   `json:"persona"`
	WindowDays *int     `json:"window_days"`
}

func (b assistantBody) request() (assistant.Request, error) {
	req := assistant.Request{
		Query:      b.Query,
		Persona:    b.Persona,
		TargetDate: b.Date,
		WindowDays: b.WindowDays,
	}
	switch {
	case b.Lat != nil && b.Lon != nil:
		req.Location = &weather.Location{Lat: *b.Lat, Lon: *b.Lon}
	case b.Lat != nil || b.Lon != nil:
		return req, climate.Invalid("lat and lon must be given together")
	}
	return req, nil
}

// RequestID tags every request with an id, reusing the caller's when given.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Locals("request_id", id)
		c.Set(RequestIDHeader, id)
		return c.Next()
	}
}

// ErrorHandler maps errors to JSON responses: InvalidParameters 400,
// InsufficientData 422, DataUnavailable 502, anything else 500.
func ErrorHandler(log *zap.SugaredLogger) fiber.ErrorHandler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		kind := "Internal"
		message := "internal server error"

		var ferr *fiber.Error
		switch {
		case errors.As(err, &ferr):
			code = ferr.Code
			kind = "HTTP"
			message = ferr.Message
		case errors.Is(err, climate.ErrInvalidParameters):
			code = fiber.StatusBadRequest
		case errors.Is(err, climate.ErrInsufficientData):
			code = fiber.StatusUnprocessableEntity
		case errors.Is(err, climate.ErrDataUnavailable):
			code = fiber.StatusBadGateway
		}
		if k := climate.KindOf(err); k != "" {
			kind = string(k)
			message = err.Error()
		}

		fields := []any{"status", code, "method", c.Method(), "path", c.Path(), "request_id", c.Locals("request_id"), "error", err}
		if code >= fiber.StatusInternalServerError {
			log.Errorw("request failed", fields...)
		} else {
			log.Infow("request rejected", fields...)
		}

		return c.Status(code).JSON(fiber.Map{
			"error":   true,
			"kind":    kind,
			"message": message,
		})
	}
}
