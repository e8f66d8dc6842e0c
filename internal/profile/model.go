package profile

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound indicates the referenced profile does not exist.
	ErrNotFound = errors.New("profile not found")
	// ErrInvalidArgument rejects malformed caller input before any side effect.
	ErrInvalidArgument = errors.New("invalid profile argument")
)

// Gender is the enumerated gender attribute of a profile.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// ParseGender validates the gender enum. A blank value defaults to other.
func ParseGender(s string) (Gender, error) {
	switch Gender(s) {
	case GenderMale, GenderFemale, GenderOther:
		return Gender(s), nil
	case "":
		return GenderOther, nil
	default:
		return "", fmt.Errorf("%w: gender %q", ErrInvalidArgument, s)
	}
}

// Profile is an enrolled identity record.
type Profile struct {
	ID        int64
	FullName  string
	Gender    Gender
	DOB       time.Time
	CreatedAt time.Time
}
