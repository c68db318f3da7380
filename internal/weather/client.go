package weather

import (
	"context"
	"fmt"
	"log"
	"math"
	"net/http"
	"net/url"
	"strings"

	"farmwise-api-server/config"
	"farmwise-api-server/internal/models"
	"farmwise-api-server/internal/upstream"
)

// Client fetches current conditions from WeatherAPI.com.
type Client struct {
	apiKey          string
	baseURL         string
	region          string
	defaultDistrict string
	caller          *upstream.Caller
}

func NewClient(httpClient upstream.Doer, cfg config.WeatherConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.weatherapi.com/v1"
	}
	region := cfg.Region
	if region == "" {
		region = "Kerala, India"
	}
	district := cfg.DefaultDistrict
	if district == "" {
		district = "Thiruvananthapuram"
	}
	return &Client{
		apiKey:          cfg.APIKey,
		baseURL:         baseURL,
		region:          region,
		defaultDistrict: district,
		caller:          upstream.NewCaller("weatherapi", httpClient),
	}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool { return c.apiKey != "" }

// Query is the WeatherAPI "q" value for a location.
func (c *Client) Query(loc models.Location) string {
	return fmt.Sprintf("%s, %s", loc.PlaceName(c.defaultDistrict), c.region)
}

// Fetch returns current conditions for the location's district.
func (c *Client) Fetch(ctx context.Context, loc models.Location) (Snapshot, error) {
	return c.fetch(ctx, c.Query(loc))
}

// FetchCoordinates returns current conditions at lat,lon.
func (c *Client) FetchCoordinates(ctx context.Context, lat, lon float64) (Snapshot, error) {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Snapshot{}, &models.ValidationError{Field: "coordinates", Reason: "out of range"}
	}
	return c.fetch(ctx, fmt.Sprintf("%f,%f", lat, lon))
}

// Lookup is Fetch folded into a tagged Result. It never fails.
func (c *Client) Lookup(ctx context.Context, loc models.Location) Result {
	snap, err := c.Fetch(ctx, loc)
	if err != nil {
		log.Printf("weather: lookup for %q failed: %v", c.Query(loc), err)
		return Failed(err)
	}
	return Ok(snap)
}

func (c *Client) fetch(ctx context.Context, q string) (Snapshot, error) {
	if c.apiKey == "" {
		return Snapshot{}, &upstream.ConfigError{Setting: "weather API key"}
	}

	values := url.Values{}
	values.Set("key", c.apiKey)
	values.Set("q", q)
	values.Set("aqi", "no")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/current.json?"+values.Encode(), nil)
	if err != nil {
		return Snapshot{}, err
	}

	var p payload
	if err := c.caller.DoJSON(req, &p); err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		Temperature: int(math.Round(p.Current.TempC)),
		Humidity:    int(math.Round(p.Current.Humidity)),
		Condition:   strings.ToLower(strings.TrimSpace(p.Current.Condition.Text)),
		WindKph:     p.Current.WindKph,
		Place:       p.Location.Name,
		LocalTime:   p.Location.Localtime,
	}, nil
}

// payload is the subset of current.json we rely on.
type payload struct {
	Location struct {
		Name      string `json:"name"`
		Localtime string `json:"localtime"`
	} `json:"location"`
	Current struct {
		TempC     float64 `json:"temp_c" validate:"gte=-60,lte=70"`
		Humidity  float64 `json:"humidity" validate:"gte=0,lte=100"`
		WindKph   float64 `json:"wind_kph" validate:"gte=0"`
		Condition struct {
			Text string `json:"text" validate:"required"`
		} `json:"condition"`
	} `json:"current"`
}
