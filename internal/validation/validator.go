// Package validation provides custom validators for the application
package validation

import (
	"strings"
	"sync"

	"registrar/internal/models"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var once sync.Once

// Initialize registers all custom validators with gin's binding engine.
// It is safe to call more than once.
func Initialize() {
	once.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			Register(v)
		}
	})
}

// Register adds the custom tags to v
func Register(v *validator.Validate) {
	if err := v.RegisterValidation("nospaces", validateNoSpaces); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation("role", validateRole); err != nil {
		panic(err)
	}
}

// validateNoSpaces rejects values containing whitespace
func validateNoSpaces(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value != "" && !strings.ContainsAny(value, " \t\r\n")
}

func validateRole(fl validator.FieldLevel) bool {
	return models.Role(fl.Field().String()).Valid()
}
