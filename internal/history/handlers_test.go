package history

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"backend-pacetrack/internal/db"
	"backend-pacetrack/internal/match"
	"backend-pacetrack/internal/shared/geo"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
)

func newTestApp(pool db.Querier, matcher Matcher) *fiber.App {
	app := fiber.New()
	auth := func(c *fiber.Ctx) error {
		c.Locals("device_id", "dev-1")
		return c.Next()
	}
	RegisterRoutes(app.Group("/history"), NewService(pool, matcher), auth)
	return app
}

func TestHistoryHandlersCRUD(t *testing.T) {
	mock := newMockPool(t)
	defer mock.Close()

	mock.ExpectQuery(`FROM run_history WHERE device_id`).
		WithArgs("dev-1").
		WillReturnRows(pgxmock.NewRows(listColumns).
			AddRow("run-1", "dev-1", "Morning run", "", startedAtFixture, endedAtFixture,
				2000.0, 930.0, 30.0, "7:30", 4.2, 25.0, 5.0,
				[]byte("null"), 120, 3, "running", false, 0.0, createdAtFixture))

	expectGetRecord(mock, "run-1", nil)

	expectGetRecord(mock, "run-1", nil)
	mock.ExpectExec(`UPDATE run_history SET title`).
		WithArgs("run-1", "Tempo", "easy pace").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	mock.ExpectExec(`DELETE FROM run_history`).
		WithArgs("run-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	mock.ExpectQuery(`match_confidence, ST_AsText`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	app := newTestApp(mock, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/history", nil))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("list status: %v %d", err, resp.StatusCode)
	}
	var records []Record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(records) != 1 || records[0].ID != "run-1" {
		t.Fatalf("unexpected listing: %+v", records)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/history/run-1", nil))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("get status: %v %d", err, resp.StatusCode)
	}

	body, _ := json.Marshal(Record{Title: "Tempo"})
	req := httptest.NewRequest(http.MethodPut, "/history/run-1", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("update status: %v %d", err, resp.StatusCode)
	}
	var updated Record
	if err := json.NewDecoder(resp.Body).Decode(&updated); err != nil {
		t.Fatalf("decode update: %v", err)
	}
	if updated.Title != "Tempo" {
		t.Fatalf("title not patched: %+v", updated)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodDelete, "/history/run-1", nil))
	if err != nil || resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status: %v %d", err, resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/history/missing", nil))
	if err != nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for missing record, got %v %d", err, resp.StatusCode)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestHistoryHandlersMatchAndRoute(t *testing.T) {
	mock := newMockPool(t)
	defer mock.Close()

	fm := &fakeMatcher{result: match.Result{
		Coords:     []geo.Point{{Lat: -6.2, Lng: 106.8}, {Lat: -6.201, Lng: 106.801}},
		DistanceM:  150,
		Confidence: 0.93,
	}}

	expectGetRecord(mock, "run-1", strPtr("LINESTRING(106.8 -6.2,106.801 -6.201)"))
	mock.ExpectExec(`UPDATE run_history SET route`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	mock.ExpectQuery(`SELECT ST_AsText`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"st_astext"}).
			AddRow(strPtr("LINESTRING(106.8 -6.2,106.8005 -6.2,106.801 -6.2,106.801 -6.201)")))

	mock.ExpectQuery(`SELECT ST_AsText`).
		WithArgs("run-2").
		WillReturnRows(pgxmock.NewRows([]string{"st_astext"}).AddRow(nil))

	app := newTestApp(mock, fm)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/history/run-1/match", nil))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("match status: %v %d", err, resp.StatusCode)
	}
	var matched Record
	if err := json.NewDecoder(resp.Body).Decode(&matched); err != nil {
		t.Fatalf("decode match: %v", err)
	}
	if !matched.Matched || matched.MatchConfidence != 0.93 || matched.DistanceM != 150 {
		t.Fatalf("unexpected matched record: %+v", matched)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/history/run-1/route?simplify=true", nil))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("route status: %v %d", err, resp.StatusCode)
	}
	var points []geo.Point
	if err := json.NewDecoder(resp.Body).Decode(&points); err != nil {
		t.Fatalf("decode route: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("expected simplified route of 3 points, got %d", len(points))
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/history/run-2/route", nil))
	if err != nil || resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for missing route, got %v %d", err, resp.StatusCode)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
