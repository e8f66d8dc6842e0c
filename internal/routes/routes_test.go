package routes

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/veriprint/veriprint/internal/config"
	"github.com/veriprint/veriprint/internal/logging"
)

func devApp(t *testing.T) *fiber.App {
	t.Helper()
	cfg := config.Config{
		AppName:     "veriprint-test",
		AppEnv:      "development",
		SearchLimit: 50,
	}
	app := fiber.New()
	if err := Setup(app, Deps{Cfg: cfg, Logger: logging.Discard()}); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	return app
}

func TestHealthzWithoutBackends(t *testing.T) {
	app := devApp(t)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/healthz", nil))
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected %d got %d", fiber.StatusOK, resp.StatusCode)
	}
}

func TestEnrollmentAndDirectoryFlow(t *testing.T) {
	app := devApp(t)

	payload := map[string]any{
		"full_name": "Marie Okemba",
		"gender":    "female",
		"dob":       "1991-04-02",
		"templates": []json.RawMessage{
			json.RawMessage(`{"minutiae":[{"x":1,"y":2,"angle":30}]}`),
		},
	}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/profiles", bytes.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected %d got %d", fiber.StatusCreated, resp.StatusCode)
	}

	var created struct {
		Profile struct {
			ID       int64  `json:"id"`
			FullName string `json:"full_name"`
		} `json:"profile"`
		Templates int `json:"templates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode enroll response: %v", err)
	}
	resp.Body.Close()
	if created.Profile.ID == 0 || created.Templates != 1 {
		t.Fatalf("unexpected enrollment response %+v", created)
	}

	// Name search finds the new profile.
	searchResp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/api/v1/profiles/search?q=okemba", nil))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	var found struct {
		Profiles []struct {
			ID int64 `json:"id"`
		} `json:"profiles"`
	}
	if err := json.NewDecoder(searchResp.Body).Decode(&found); err != nil {
		t.Fatalf("decode search response: %v", err)
	}
	searchResp.Body.Close()
	if len(found.Profiles) != 1 || found.Profiles[0].ID != created.Profile.ID {
		t.Fatalf("expected the enrolled profile in search results, got %+v", found)
	}

	// Templates load back in slot order.
	tmplResp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/api/v1/profiles/1/templates", nil))
	if err != nil {
		t.Fatalf("templates: %v", err)
	}
	if tmplResp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected %d got %d", fiber.StatusOK, tmplResp.StatusCode)
	}

	// Deleting the profile cascades and empties the directory.
	delResp, err := app.Test(httptest.NewRequest(fiber.MethodDelete, "/api/v1/profiles/1", nil))
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if delResp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("expected %d got %d", fiber.StatusNoContent, delResp.StatusCode)
	}

	goneResp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/api/v1/profiles/1", nil))
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if goneResp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected %d got %d", fiber.StatusNotFound, goneResp.StatusCode)
	}
}

func TestBlankSearchReturnsNothing(t *testing.T) {
	app := devApp(t)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/api/v1/profiles/search", nil))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	var found struct {
		Profiles []any `json:"profiles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&found); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if len(found.Profiles) != 0 {
		t.Fatalf("blank query must not enumerate the directory, got %d", len(found.Profiles))
	}
}

func TestEnrollmentRejectsBadSlotCount(t *testing.T) {
	app := devApp(t)

	payload := map[string]any{
		"full_name": "No Templates",
		"templates": []json.RawMessage{},
	}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/profiles", bytes.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected %d got %d", fiber.StatusBadRequest, resp.StatusCode)
	}

	// A failed enrollment must leave no half-created profile behind.
	listResp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/api/v1/profiles", nil))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var listed struct {
		Profiles []any `json:"profiles"`
	}
	if err := json.NewDecoder(listResp.Body).Decode(&listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	listResp.Body.Close()
	if len(listed.Profiles) != 0 {
		t.Fatalf("expected empty directory after failed enrollment, got %d", len(listed.Profiles))
	}
}

func TestVerifyUnknownProfileIs404(t *testing.T) {
	app := devApp(t)

	body := []byte(`{"probe_template":{"minutiae":[{"x":1,"y":2,"angle":30}]}}`)
	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/profiles/99/verify", bytes.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected %d got %d", fiber.StatusNotFound, resp.StatusCode)
	}
}

func TestIdentifyEmptyGalleryIsNoMatch(t *testing.T) {
	app := devApp(t)

	body := []byte(`{"probe_minutiae":[{"x":1,"y":2,"angle":30}]}`)
	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/identify", bytes.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("identify: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected %d got %d", fiber.StatusOK, resp.StatusCode)
	}
	var result struct {
		Match *json.RawMessage `json:"match"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if result.Match != nil && string(*result.Match) != "null" {
		t.Fatalf("expected no match, got %s", string(*result.Match))
	}
}

func TestDeviceCaptureBeforeInitIsRejected(t *testing.T) {
	app := devApp(t)

	body := []byte(`{"quality":60,"timeout_sec":5}`)
	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/device/capture", bytes.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected %d got %d", fiber.StatusBadRequest, resp.StatusCode)
	}
}
