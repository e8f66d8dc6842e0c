package profile

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/veriprint/veriprint/internal/audit"
	"github.com/veriprint/veriprint/internal/template"
)

// Handler exposes the profile directory and template slot endpoints.
// Enrollment spans both the directory and the template store, so the handler
// owns the cross-cutting flow.
type Handler struct {
	service *Service
	slots   template.Store
	events  audit.Recorder
}

// NewHandler builds a profile HTTP handler.
func NewHandler(service *Service, slots template.Store, events audit.Recorder) *Handler {
	return &Handler{service: service, slots: slots, events: events}
}

type enrollRequest struct {
	FullName  string            `json:"full_name"`
	Gender    string            `json:"gender"`
	DOB       string            `json:"dob"`
	Templates []json.RawMessage `json:"templates"`
	ImageB64  string            `json:"image_b64"`
	ImageMIME string            `json:"image_mime"`
}

type profileResponse struct {
	ID        int64  `json:"id"`
	FullName  string `json:"full_name"`
	Gender    string `json:"gender"`
	DOB       string `json:"dob"`
	CreatedAt string `json:"created_at"`
}

func toResponse(p Profile) profileResponse {
	return profileResponse{
		ID:        p.ID,
		FullName:  p.FullName,
		Gender:    string(p.Gender),
		DOB:       p.DOB.Format("2006-01-02"),
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Enroll creates a profile together with its first template slots. The
// enrollment image, when present, rides slot 1.
func (h *Handler) Enroll(c *fiber.Ctx) error {
	var req enrollRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	// Invalid input must leave no trace, so the slot contract is checked
	// before the profile row exists.
	records := buildRecords(req.Templates, req.ImageB64, req.ImageMIME)
	if err := template.ValidateRecords(records); err != nil {
		return mapError(err)
	}

	p, err := h.service.Create(c.UserContext(), CreateInput{FullName: req.FullName, Gender: req.Gender, DOB: req.DOB})
	if err != nil {
		return mapError(err)
	}

	if err := h.slots.Save(c.UserContext(), p.ID, records); err != nil {
		// A runtime save failure still takes the fresh profile back out of
		// the directory; enrollment stays all-or-nothing.
		h.rollback(c.UserContext(), p.ID)
		return mapError(err)
	}

	if h.events != nil {
		h.events.Record(c.UserContext(), audit.Event{
			Kind:      audit.KindEnrollment,
			ProfileID: p.ID,
			Accepted:  true,
			Detail:    strconv.Itoa(len(records)) + " templates",
		})
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"profile":   toResponse(p),
		"templates": len(records),
	})
}

// Search finds profiles by name substring. A blank query returns an empty
// result instead of enumerating the whole directory.
func (h *Handler) Search(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return c.Status(http.StatusOK).JSON(fiber.Map{"profiles": []profileResponse{}})
	}
	profiles, err := h.service.Search(c.UserContext(), query)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"profiles": toResponses(profiles)})
}

// List enumerates the whole directory, newest first.
func (h *Handler) List(c *fiber.Ctx) error {
	profiles, err := h.service.List(c.UserContext())
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"profiles": toResponses(profiles)})
}

// Get fetches one profile.
func (h *Handler) Get(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(toResponse(p))
}

// Delete removes a profile and cascades to its template slots.
func (h *Handler) Delete(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return mapError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// GetTemplates returns the profile's template slots in ascending slot order.
// Image metadata is attached only when include_images is set.
func (h *Handler) GetTemplates(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if _, err := h.service.Get(c.UserContext(), id); err != nil {
		return mapError(err)
	}

	includeImages := c.QueryBool("include_images")
	records, err := h.slots.Load(c.UserContext(), id, includeImages)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"profile_id": id, "templates": records})
}

type putTemplatesRequest struct {
	Templates []json.RawMessage `json:"templates"`
	ImageB64  string            `json:"image_b64"`
	ImageMIME string            `json:"image_mime"`
}

// PutTemplates replaces the profile's template slots positionally. Slots
// beyond the supplied count keep their previous contents.
func (h *Handler) PutTemplates(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req putTemplatesRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if _, err := h.service.Get(c.UserContext(), id); err != nil {
		return mapError(err)
	}

	records := buildRecords(req.Templates, req.ImageB64, req.ImageMIME)
	if err := h.slots.Save(c.UserContext(), id, records); err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"profile_id": id, "templates": len(records)})
}

func buildRecords(templates []json.RawMessage, imageB64, imageMIME string) []template.Record {
	records := make([]template.Record, len(templates))
	for i, payload := range templates {
		records[i] = template.Record{Slot: i + 1, Payload: payload}
	}
	if len(records) > 0 && imageB64 != "" {
		records[0].Image = &template.Image{Data: imageB64, MIME: imageMIME, CapturedAt: time.Now().UTC()}
	}
	return records
}

func (h *Handler) rollback(ctx context.Context, id int64) {
	_ = h.service.Delete(ctx, id)
}

func toResponses(profiles []Profile) []profileResponse {
	out := make([]profileResponse, len(profiles))
	for i, p := range profiles {
		out[i] = toResponse(p)
	}
	return out
}

func parseID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("profileId"), 10, 64)
	if err != nil {
		return 0, fiber.NewError(http.StatusBadRequest, "invalid profile id")
	}
	return id, nil
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidArgument),
		errors.Is(err, template.ErrSlotCount),
		errors.Is(err, template.ErrBadPayload):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound), errors.Is(err, template.ErrProfileMissing):
		return fiber.NewError(http.StatusNotFound, err.Error())
	default:
		return err
	}
}
