package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/veriprint/veriprint/internal/logging"
	"github.com/veriprint/veriprint/internal/template"
)

// createCountRepo counts directory writes so tests can prove that rejected
// enrollments never reach the repository.
type createCountRepo struct {
	Repository
	creates int
	deletes int
}

func (r *createCountRepo) Create(ctx context.Context, p Profile) (int64, error) {
	r.creates++
	return r.Repository.Create(ctx, p)
}

func (r *createCountRepo) Delete(ctx context.Context, id int64) error {
	r.deletes++
	return r.Repository.Delete(ctx, id)
}

func enrollApp(t *testing.T) (*fiber.App, *createCountRepo) {
	t.Helper()
	store := template.NewMemoryStore(logging.Discard())
	repo := &createCountRepo{Repository: NewMemoryRepository(store)}
	h := NewHandler(NewService(repo, 50, nil), store, nil)

	app := fiber.New()
	app.Post("/profiles", h.Enroll)
	return app, repo
}

func enroll(t *testing.T, app *fiber.App, templateCount int) int {
	t.Helper()
	templates := make([]json.RawMessage, templateCount)
	for i := range templates {
		templates[i] = json.RawMessage(`{"minutiae":[{"x":1,"y":2,"angle":30}]}`)
	}
	body, err := json.Marshal(map[string]any{
		"full_name": "Sylvie Mbemba",
		"templates": templates,
	})
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}

	req := httptest.NewRequest(fiber.MethodPost, "/profiles", bytes.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("enroll with %d templates: %v", templateCount, err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestEnrollInvalidSlotCountHasNoSideEffect(t *testing.T) {
	app, repo := enrollApp(t)

	for _, count := range []int{0, 4} {
		if status := enroll(t, app, count); status != fiber.StatusBadRequest {
			t.Fatalf("%d templates: expected %d got %d", count, fiber.StatusBadRequest, status)
		}
	}
	if repo.creates != 0 {
		t.Fatalf("invalid enrollments must not touch the directory, got %d creates", repo.creates)
	}
	if repo.deletes != 0 {
		t.Fatalf("nothing was created, so nothing should be compensated, got %d deletes", repo.deletes)
	}
}

func TestEnrollValidSlotCountCreatesProfile(t *testing.T) {
	app, repo := enrollApp(t)

	if status := enroll(t, app, 2); status != fiber.StatusCreated {
		t.Fatalf("expected %d got %d", fiber.StatusCreated, status)
	}
	if repo.creates != 1 {
		t.Fatalf("expected one directory write, got %d", repo.creates)
	}
}
