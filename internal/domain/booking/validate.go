package booking

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Loose on purpose: the field is a contact hint, not an E.164 identifier.
var phoneRe = regexp.MustCompile(`^\+?[0-9][0-9 ().-]{5,19}$`)

// RegisterValidations installs the custom binding rules on gin's shared
// validator. Call once at startup, before the first request is bound.
func RegisterValidations() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phoneRe.MatchString(fl.Field().String())
	})
}
