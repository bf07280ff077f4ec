package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"backend-pacetrack/internal/db"
	"backend-pacetrack/internal/match"
	"backend-pacetrack/internal/run"
	"backend-pacetrack/internal/shared/geo"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/simplify"
)

var (
	ErrNotFound  = errors.New("run record not found")
	ErrMissingID = errors.New("record id required")
	ErrNoRoute   = errors.New("record has no stored route")
	ErrMatchBusy = errors.New("match pass already running for this record")
)

// defaultRouteTolerance is the Douglas-Peucker threshold (degrees) used
// when a route download asks for simplification without naming one.
// Roughly 9 m at the equator.
const defaultRouteTolerance = 0.00008

// Matcher reconciles a trajectory against the map-matching service.
// *match.Orchestrator satisfies it.
type Matcher interface {
	MatchTrajectory(ctx context.Context, coords []geo.Point) (match.Result, error)
}

type Service struct {
	db      db.Querier
	matcher Matcher

	mu       sync.Mutex
	matching map[string]struct{}
}

func NewService(db db.Querier, matcher Matcher) *Service {
	return &Service{
		db:       db,
		matcher:  matcher,
		matching: make(map[string]struct{}),
	}
}

// SaveRun stores a finished run summary and returns the generated record
// id. Routes with fewer than two points are stored as NULL geography.
func (s *Service) SaveRun(ctx context.Context, summary run.Summary) (string, error) {
	rec := recordFromSummary(summary)
	rec.ID = uuid.NewString()

	splitsJSON, err := json.Marshal(rec.Splits)
	if err != nil {
		return "", fmt.Errorf("encode splits: %w", err)
	}
	var routeWKT any
	if len(summary.Route) >= 2 {
		rec.RouteWKT = wkt.MarshalString(lineFromPoints(summary.Route))
		routeWKT = rec.RouteWKT
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO run_history (id, device_id, title, notes, started_at, ended_at, distance_m, duration_sec, paused_sec, average_pace, max_speed_mps, elevation_gain_m, elevation_loss_m, splits, sample_count, rejected_count, final_activity, matched, match_confidence, route)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19, ST_GeogFromText($20))
		RETURNING created_at
	`, rec.ID, rec.DeviceID, rec.Title, rec.Notes, rec.StartedAt, rec.EndedAt,
		rec.DistanceM, rec.DurationSec, rec.PausedSec, rec.AveragePace, rec.MaxSpeedMps,
		rec.ElevationGainM, rec.ElevationLossM, splitsJSON, rec.SampleCount, rec.RejectedCount,
		string(rec.FinalActivity), rec.Matched, rec.MatchConfidence, routeWKT)
	if err := row.Scan(&rec.CreatedAt); err != nil {
		return "", err
	}
	return rec.ID, nil
}

// List returns a device's saved runs, most recent first. Routes are not
// included; fetch a single record or its route endpoint for those.
func (s *Service) List(ctx context.Context, deviceID string) ([]Record, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, device_id, title, notes, started_at, ended_at, distance_m, duration_sec, paused_sec, average_pace, max_speed_mps, elevation_gain_m, elevation_loss_m, splits, sample_count, rejected_count, final_activity, matched, match_confidence, created_at
		FROM run_history WHERE device_id=$1
		ORDER BY started_at DESC
	`, deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec        Record
			splitsJSON []byte
			activity   string
		)
		if err := rows.Scan(&rec.ID, &rec.DeviceID, &rec.Title, &rec.Notes, &rec.StartedAt, &rec.EndedAt,
			&rec.DistanceM, &rec.DurationSec, &rec.PausedSec, &rec.AveragePace, &rec.MaxSpeedMps,
			&rec.ElevationGainM, &rec.ElevationLossM, &splitsJSON, &rec.SampleCount, &rec.RejectedCount,
			&activity, &rec.Matched, &rec.MatchConfidence, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.FinalActivity = run.ActivityState(activity)
		if len(splitsJSON) > 0 {
			if err := json.Unmarshal(splitsJSON, &rec.Splits); err != nil {
				return nil, fmt.Errorf("decode splits for %s: %w", rec.ID, err)
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Service) Get(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, device_id, title, notes, started_at, ended_at, distance_m, duration_sec, paused_sec, average_pace, max_speed_mps, elevation_gain_m, elevation_loss_m, splits, sample_count, rejected_count, final_activity, matched, match_confidence, ST_AsText(route), created_at
		FROM run_history WHERE id=$1
	`, id)

	var (
		rec        Record
		splitsJSON []byte
		activity   string
		routeWKT   *string
	)
	if err := row.Scan(&rec.ID, &rec.DeviceID, &rec.Title, &rec.Notes, &rec.StartedAt, &rec.EndedAt,
		&rec.DistanceM, &rec.DurationSec, &rec.PausedSec, &rec.AveragePace, &rec.MaxSpeedMps,
		&rec.ElevationGainM, &rec.ElevationLossM, &splitsJSON, &rec.SampleCount, &rec.RejectedCount,
		&activity, &rec.Matched, &rec.MatchConfidence, &routeWKT, &rec.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	rec.FinalActivity = run.ActivityState(activity)
	if routeWKT != nil {
		rec.RouteWKT = *routeWKT
	}
	if len(splitsJSON) > 0 {
		if err := json.Unmarshal(splitsJSON, &rec.Splits); err != nil {
			return Record{}, fmt.Errorf("decode splits for %s: %w", rec.ID, err)
		}
	}
	return rec, nil
}

// Update patches the user-editable fields (title, notes). Measured run
// data is immutable once saved. An empty id is a caller bug and fails
// loudly instead of writing an unkeyed UPDATE.
func (s *Service) Update(ctx context.Context, id string, patch Record) (Record, error) {
	if id == "" {
		return Record{}, ErrMissingID
	}
	rec, err := s.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if patch.Title != "" {
		rec.Title = patch.Title
	}
	if patch.Notes != "" {
		rec.Notes = patch.Notes
	}

	_, err = s.db.Exec(ctx, `
		UPDATE run_history SET title=$2, notes=$3 WHERE id=$1
	`, rec.ID, rec.Title, rec.Notes)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM run_history WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Route returns the stored route as coordinates. A tolerance above zero
// runs Douglas-Peucker simplification (tolerance in degrees) before
// returning, for clients that draw previews.
func (s *Service) Route(ctx context.Context, id string, tolerance float64) ([]geo.Point, error) {
	row := s.db.QueryRow(ctx, `SELECT ST_AsText(route) FROM run_history WHERE id=$1`, id)
	var routeWKT *string
	if err := row.Scan(&routeWKT); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if routeWKT == nil {
		return nil, ErrNoRoute
	}
	ls, err := wkt.UnmarshalLineString(*routeWKT)
	if err != nil {
		return nil, fmt.Errorf("decode route for %s: %w", id, err)
	}
	if tolerance > 0 {
		ls = simplify.DouglasPeucker(tolerance).LineString(ls)
	}
	return pointsFromLine(ls), nil
}

// MatchRun runs the map-matching reconciliation pass over a stored run
// and replaces its route, distance, duration and confidence in place.
// At most one pass per record runs at a time. A record deleted while
// the pass was in flight keeps its deletion; the result is discarded.
func (s *Service) MatchRun(ctx context.Context, id string) (Record, error) {
	if s.matcher == nil {
		return Record{}, errors.New("map matching not configured")
	}

	s.mu.Lock()
	if _, busy := s.matching[id]; busy {
		s.mu.Unlock()
		return Record{}, ErrMatchBusy
	}
	s.matching[id] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.matching, id)
		s.mu.Unlock()
	}()

	rec, err := s.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if rec.RouteWKT == "" {
		return Record{}, ErrNoRoute
	}
	ls, err := wkt.UnmarshalLineString(rec.RouteWKT)
	if err != nil {
		return Record{}, fmt.Errorf("decode route for %s: %w", id, err)
	}

	result, err := s.matcher.MatchTrajectory(ctx, pointsFromLine(ls))
	if err != nil {
		return Record{}, fmt.Errorf("match trajectory: %w", err)
	}
	if len(result.Coords) < 2 {
		return Record{}, fmt.Errorf("match trajectory: got %d coords back", len(result.Coords))
	}

	rec.RouteWKT = wkt.MarshalString(lineFromPoints(result.Coords))
	rec.Matched = true
	rec.MatchConfidence = result.Confidence
	// A fully degraded pass reports zero distance; keep the device
	// measurement in that case rather than zeroing the record.
	if result.DistanceM > 0 {
		rec.DistanceM = result.DistanceM
	}
	if result.DurationSec > 0 {
		rec.DurationSec = result.DurationSec
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE run_history SET route=ST_GeogFromText($2), distance_m=$3, duration_sec=$4, matched=true, match_confidence=$5 WHERE id=$1
	`, rec.ID, rec.RouteWKT, rec.DistanceM, rec.DurationSec, rec.MatchConfidence)
	if err != nil {
		return Record{}, err
	}
	if tag.RowsAffected() == 0 {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func recordFromSummary(summary run.Summary) Record {
	return Record{
		DeviceID:        summary.DeviceID,
		StartedAt:       time.UnixMilli(summary.StartedAtMs).UTC(),
		EndedAt:         time.UnixMilli(summary.EndedAtMs).UTC(),
		DistanceM:       summary.DistanceM,
		DurationSec:     summary.DurationSec,
		PausedSec:       summary.PausedSec,
		AveragePace:     summary.AveragePace,
		MaxSpeedMps:     summary.MaxSpeedMps,
		ElevationGainM:  summary.ElevationGainM,
		ElevationLossM:  summary.ElevationLossM,
		Splits:          summary.Splits,
		SampleCount:     summary.SampleCount,
		RejectedCount:   summary.RejectedCount,
		FinalActivity:   summary.FinalActivity,
		Matched:         summary.MapMatched,
		MatchConfidence: summary.MatchConfidence,
	}
}

func lineFromPoints(points []geo.Point) orb.LineString {
	ls := make(orb.LineString, len(points))
	for i, p := range points {
		ls[i] = orb.Point{p.Lng, p.Lat}
	}
	return ls
}

func pointsFromLine(ls orb.LineString) []geo.Point {
	points := make([]geo.Point, len(ls))
	for i, p := range ls {
		points[i] = geo.Point{Lat: p.Lat(), Lng: p.Lon()}
	}
	return points
}
