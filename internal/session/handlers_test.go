package session

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/pashagolub/pgxmock/v3"
)

func noopAuth(c *fiber.Ctx) error { return c.Next() }

func TestSessionHandlers(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	svc := newTestService(mock)
	app := fiber.New()
	RegisterRoutes(app.Group("/sessions"), svc, noopAuth)

	expectStart(mock)
	body, _ := json.Marshal(Session{UserID: "user-1", AreaID: "area-1"})
	req := httptest.NewRequest(http.MethodPost, "/sessions/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusCreated {
		t.Fatalf("start session: %v status %d", err, resp.StatusCode)
	}
	var sess Session
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		t.Fatalf("decode session: %v", err)
	}

	fixBody := []byte(`{"lat":49.0,"lon":-119.0,"speed_kmh":20,"timestamp":"2026-02-14T10:00:00Z"}`)
	req = httptest.NewRequest(http.MethodPost, "/sessions/"+sess.ID+"/fixes", bytes.NewReader(fixBody))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != http.StatusCreated {
		t.Fatalf("push fix: %v status %d", err, resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodGet, "/sessions/"+sess.ID+"/runs", nil)
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("runs: %v status %d", err, resp.StatusCode)
	}
	var runs Runs
	if err := json.NewDecoder(resp.Body).Decode(&runs); err != nil {
		t.Fatalf("decode runs: %v", err)
	}
	if len(runs.Active) != 1 {
		t.Fatalf("expected one active run, got %d", len(runs.Active))
	}
}

func TestSessionHandlersValidation(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	app := fiber.New()
	RegisterRoutes(app.Group("/sessions"), newTestService(mock), noopAuth)

	req := httptest.NewRequest(http.MethodPost, "/sessions/", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodPost, "/sessions/nope/fixes", bytes.NewReader([]byte(`{"lat":49,"lon":-119}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected not found for unknown session, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodPost, "/sessions/nope/completions/manual", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request without trail_id, got %d", resp.StatusCode)
	}
}
