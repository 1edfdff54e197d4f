package geo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const defaultMapsBaseURL = "https://maps.googleapis.com"

var errNoAPIKey = errors.New("maps: api key not configured")

// Route is a single origin/destination element of a distance matrix.
type Route struct {
	DistanceMeters  int64  `json:"distance_meters"`
	DistanceText    string `json:"distance_text"`
	DurationSeconds int64  `json:"duration_seconds"`
	DurationText    string `json:"duration_text"`
}

// MapsClient talks to the Google Maps distance-matrix and geocoding APIs.
type MapsClient struct {
	http    *resty.Client
	apiKey  string
	timeout time.Duration
}

// NewMapsClient constructs a client. An empty baseURL targets Google.
func NewMapsClient(baseURL, apiKey string, timeout time.Duration) *MapsClient {
	if baseURL == "" {
		baseURL = defaultMapsBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &MapsClient{http: client, apiKey: apiKey, timeout: timeout}
}

// TravelTime returns the driving route between two known points.
func (c *MapsClient) TravelTime(ctx context.Context, from, to Location) (Route, error) {
	if c.apiKey == "" {
		return Route{}, errNoAPIKey
	}
	if !from.Known || !to.Known {
		return Route{}, errors.New("maps: unknown endpoint")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"origins":      coordString(from),
			"destinations": coordString(to),
			"units":        "metric",
			"key":          c.apiKey,
		}).
		Get("/maps/api/distancematrix/json")
	if err != nil {
		return Route{}, fmt.Errorf("maps: distance matrix: %w", err)
	}
	if resp.IsError() {
		return Route{}, fmt.Errorf("maps: distance matrix http %d", resp.StatusCode())
	}

	body := gjson.ParseBytes(resp.Body())
	if status := body.Get("status").String(); status != "OK" {
		return Route{}, fmt.Errorf("maps: distance matrix status %q", status)
	}
	element := body.Get("rows.0.elements.0")
	if !element.Exists() {
		return Route{}, errors.New("maps: empty distance matrix")
	}
	if status := element.Get("status").String(); status != "OK" {
		return Route{}, fmt.Errorf("maps: route status %q", status)
	}

	return Route{
		DistanceMeters:  element.Get("distance.value").Int(),
		DistanceText:    element.Get("distance.text").String(),
		DurationSeconds: element.Get("duration.value").Int(),
		DurationText:    element.Get("duration.text").String(),
	}, nil
}

// ReverseGeocode returns a short "area, city" name for a point.
func (c *MapsClient) ReverseGeocode(ctx context.Context, at Location) (string, error) {
	if c.apiKey == "" {
		return "", errNoAPIKey
	}
	if !at.Known {
		return "", errors.New("maps: unknown location")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"latlng": coordString(at),
			"key":    c.apiKey,
		}).
		Get("/maps/api/geocode/json")
	if err != nil {
		return "", fmt.Errorf("maps: geocode: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("maps: geocode http %d", resp.StatusCode())
	}

	result := gjson.GetBytes(resp.Body(), "results.0")
	if !result.Exists() {
		return "", errors.New("maps: no geocode results")
	}
	return shortAddress(result), nil
}

// shortAddress prefers locality plus district, then the first two parts of
// the formatted address.
func shortAddress(result gjson.Result) string {
	var area, city string
	result.Get("address_components").ForEach(func(_, comp gjson.Result) bool {
		types := comp.Get("types").Array()
		for _, t := range types {
			switch t.String() {
			case "sublocality", "locality":
				if area == "" {
					area = comp.Get("long_name").String()
				}
			case "administrative_area_level_2":
				if city == "" {
					city = comp.Get("long_name").String()
				}
			}
		}
		return true
	})
	if area != "" && city != "" {
		return area + ", " + city
	}

	parts := strings.Split(result.Get("formatted_address").String(), ",")
	if len(parts) > 2 {
		parts = parts[:2]
	}
	return strings.Join(parts, ",")
}
