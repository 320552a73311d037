package api

import (
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/garnizeh/realty/pkg/models"
)

// phonePattern accepts an optional leading + and 7 to 15 digits separated by
// spaces or dashes.
var phonePattern = regexp.MustCompile(`^\+?[0-9](?:[ -]?[0-9]){6,14}$`)

func (r leadRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.RuneLength(1, 120)),
		validation.Field(&r.Phone, validation.Required, validation.Match(phonePattern).Error("must be a valid phone number")),
		validation.Field(&r.Email, is.EmailFormat),
		validation.Field(&r.Message, validation.RuneLength(0, 2000)),
		validation.Field(&r.ProjectID, validation.NilOrNotEmpty, validation.Min(int64(1))),
	)
}

func (r signupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.RuneLength(1, 120)),
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
		validation.Field(&r.Phone, validation.When(r.Phone != "", validation.Match(phonePattern).Error("must be a valid phone number"))),
		validation.Field(&r.Password, validation.Required, validation.RuneLength(1, 72)),
	)
}

func validateBuilder(b *models.Builder) error {
	return validation.ValidateStruct(b,
		validation.Field(&b.Name, validation.Required, validation.RuneLength(1, 200)),
		validation.Field(&b.Email, is.EmailFormat),
		validation.Field(&b.Website, is.URL),
		validation.Field(&b.LogoURL, is.URL),
		validation.Field(&b.EstablishedYear, validation.When(b.EstablishedYear != 0, validation.Min(1800), validation.Max(time.Now().Year()))),
	)
}
