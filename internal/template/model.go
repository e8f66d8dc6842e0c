package template

import (
	"encoding/json"
	"time"
)

// Minutia is one comparable feature point inside a template payload.
// Coordinates are pixels, the angle is degrees in [0, 180).
type Minutia struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Angle   float64 `json:"angle"`
	Type    string  `json:"type,omitempty"`
	Quality float64 `json:"quality,omitempty"`
}

// Image carries the capture metadata optionally attached to a slot. During
// enrollment it rides slot 1, but the store permits it on any slot.
type Image struct {
	Data       string    `json:"image_b64"`
	MIME       string    `json:"image_mime"`
	CapturedAt time.Time `json:"captured_at"`
}

// Record is one stored template slot. The payload is opaque structured data
// that must round-trip verbatim; its minimum contract is a decodable
// {"minutiae": [...]} feature set.
type Record struct {
	Slot      int             `json:"slot"`
	Payload   json.RawMessage `json:"payload"`
	Image     *Image          `json:"image,omitempty"`
	CreatedAt time.Time       `json:"created_at,omitempty"`
}

// Minutiae decodes the comparable feature set out of the record payload.
// A payload without a minutiae field yields an empty set, not an error.
func (r Record) Minutiae() ([]Minutia, error) {
	return DecodeMinutiae(r.Payload)
}

// DecodeMinutiae extracts the feature set from a raw template payload.
func DecodeMinutiae(payload json.RawMessage) ([]Minutia, error) {
	var body struct {
		Minutiae []Minutia `json:"minutiae"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, err
	}
	return body.Minutiae, nil
}
