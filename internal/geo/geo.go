// Package geo looks up road distances from a listing to its nearby landmarks.
package geo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"

	"github.com/go-resty/resty/v2"
	"github.com/sourcegraph/conc/iter"

	"github.com/garnizeh/realty/internal/config"
	"github.com/garnizeh/realty/pkg/models"
)

// package-level logger; can be set via SetLogger from caller
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger installs a logger for the geo package. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// ErrNoRoute is returned when the provider finds no route to a destination.
var ErrNoRoute = errors.New("no route found")

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p Point) String() string {
	return strconv.FormatFloat(p.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(p.Lng, 'f', 6, 64)
}

// matrixResponse is the distance-matrix payload: one row per origin with one
// element per destination.
type matrixResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Rows         []struct {
		Elements []struct {
			Status   string `json:"status"`
			Distance struct {
				Value float64 `json:"value"`
			} `json:"distance"`
			Duration struct {
				Value float64 `json:"value"`
			} `json:"duration"`
		} `json:"elements"`
	} `json:"rows"`
}

// Client queries a distance-matrix routing API.
type Client struct {
	http   *resty.Client
	apiKey string
	mode   string
}

// NewClient builds a client from the geo configuration.
func NewClient(cfg config.GeoConfig) *Client {
	mode := cfg.Profile
	if mode == "" {
		mode = "driving"
	}
	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")
	return &Client{http: http, apiKey: cfg.APIKey, mode: mode}
}

// Enabled reports whether a routing endpoint is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.http.BaseURL != ""
}

// Distance returns the road distance and travel time to one destination.
func (c *Client) Distance(ctx context.Context, origin Point, destination string) (models.Landmark, error) {
	var out matrixResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"origins":      origin.String(),
			"destinations": destination,
			"mode":         c.mode,
			"units":        "metric",
			"key":          c.apiKey,
		}).
		SetResult(&out).
		Get("/distancematrix/json")
	if err != nil {
		return models.Landmark{}, fmt.Errorf("distance request: %w", err)
	}
	if resp.IsError() {
		return models.Landmark{}, fmt.Errorf("distance request: status %d", resp.StatusCode())
	}
	if out.Status != "OK" {
		return models.Landmark{}, fmt.Errorf("distance request: %s %s", out.Status, out.ErrorMessage)
	}
	if len(out.Rows) == 0 || len(out.Rows[0].Elements) == 0 || out.Rows[0].Elements[0].Status != "OK" {
		return models.Landmark{}, ErrNoRoute
	}

	el := out.Rows[0].Elements[0]
	return models.Landmark{
		Name:        destination,
		DistanceKM:  round(el.Distance.Value/1000, 1),
		DurationMin: round(el.Duration.Value/60, 0),
	}, nil
}

// maxLookups bounds the routing requests in flight for one listing.
const maxLookups = 4

// Distances looks up every landmark with its own request, keeping the input
// order. Landmarks that fail are logged and left out of the result. area,
// when set, is appended to each name to disambiguate the lookup.
func (c *Client) Distances(ctx context.Context, origin Point, landmarks []models.Landmark, area string) []models.Landmark {
	lookups := iter.Mapper[models.Landmark, *models.Landmark]{MaxGoroutines: maxLookups}
	found := lookups.Map(landmarks, func(lm *models.Landmark) *models.Landmark {
		if lm.Name == "" {
			return nil
		}
		dest := lm.Name
		if area != "" {
			dest += ", " + area
		}
		got, err := c.Distance(ctx, origin, dest)
		if err != nil {
			logger.Warn("geo: landmark lookup failed", slog.String("landmark", lm.Name), slog.Any("err", err))
			return nil
		}
		got.Name = lm.Name
		return &got
	})

	out := make([]models.Landmark, 0, len(found))
	for _, lm := range found {
		if lm != nil {
			out = append(out, *lm)
		}
	}
	return out
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
