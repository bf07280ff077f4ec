package match

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"backend-pacetrack/internal/shared/geo"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// MaxCoordsPerRequest is the routing service's hard input ceiling.
const MaxCoordsPerRequest = 100

var (
	ErrTooManyCoords = errors.New("too many coordinates for one matching request")
	ErrTooFewCoords  = errors.New("matching needs at least two coordinates")
)

// Result is one reconciled trajectory with its aggregates.
type Result struct {
	Coords      []geo.Point `json:"coords"`
	DistanceM   float64     `json:"distance_m"`
	DurationSec float64     `json:"duration_sec"`
	Confidence  float64     `json:"confidence"`
}

// Client speaks the Map Matching v5 wire contract: coordinates in the
// path as lng,lat pairs, per-point search radiuses, geojson geometry.
type Client struct {
	baseURL     string
	accessToken string
	profile     string
	radiusM     float64
	http        *http.Client
}

func NewClient(baseURL, accessToken, profile string, radiusM float64) *Client {
	if profile == "" {
		profile = "walking"
	}
	if radiusM <= 0 {
		radiusM = 25
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		profile:     profile,
		radiusM:     radiusM,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        4,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type matchResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Matchings []struct {
		Geometry   *geojson.Geometry `json:"geometry"`
		Distance   float64           `json:"distance"`
		Duration   float64           `json:"duration"`
		Confidence float64           `json:"confidence"`
	} `json:"matchings"`
}

// Match sends one bounded coordinate batch to the routing service and
// returns the snapped trajectory. An empty or malformed match is an
// error; the caller decides how to degrade.
func (c *Client) Match(ctx context.Context, coords []geo.Point) (Result, error) {
	if len(coords) < 2 {
		return Result{}, ErrTooFewCoords
	}
	if len(coords) > MaxCoordsPerRequest {
		return Result{}, ErrTooManyCoords
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(coords), nil)
	if err != nil {
		return Result{}, fmt.Errorf("create matching request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("matching request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, fmt.Errorf("matching status %d: %s", resp.StatusCode, string(body))
	}

	var parsed matchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Result{}, fmt.Errorf("decode matching response: %w", err)
	}
	if parsed.Code != "Ok" {
		return Result{}, fmt.Errorf("matching rejected: %s %s", parsed.Code, parsed.Message)
	}
	if len(parsed.Matchings) == 0 {
		return Result{}, errors.New("empty match")
	}

	// The service may split a trace into several matchings; stitch them
	// back together and keep the weakest leg's confidence.
	result := Result{Confidence: 1}
	for _, matching := range parsed.Matchings {
		if matching.Geometry == nil {
			return Result{}, errors.New("matching without geometry")
		}
		line, ok := matching.Geometry.Geometry().(orb.LineString)
		if !ok || len(line) == 0 {
			return Result{}, errors.New("matching geometry is not a line")
		}
		for _, pt := range line {
			result.Coords = append(result.Coords, geo.Point{Lat: pt.Lat(), Lng: pt.Lon()})
		}
		result.DistanceM += matching.Distance
		result.DurationSec += matching.Duration
		if matching.Confidence < result.Confidence {
			result.Confidence = matching.Confidence
		}
	}
	return result, nil
}

func (c *Client) requestURL(coords []geo.Point) string {
	var path strings.Builder
	var radiuses strings.Builder
	for i, pt := range coords {
		if i > 0 {
			path.WriteByte(';')
			radiuses.WriteByte(';')
		}
		path.WriteString(strconv.FormatFloat(pt.Lng, 'f', 6, 64))
		path.WriteByte(',')
		path.WriteString(strconv.FormatFloat(pt.Lat, 'f', 6, 64))
		radiuses.WriteString(strconv.FormatFloat(c.radiusM, 'f', -1, 64))
	}

	query := url.Values{}
	query.Set("access_token", c.accessToken)
	query.Set("geometries", "geojson")
	query.Set("overview", "full")
	query.Set("radiuses", radiuses.String())

	return fmt.Sprintf("%s/matching/v5/mapbox/%s/%s?%s", c.baseURL, c.profile, path.String(), query.Encode())
}
