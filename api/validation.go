package api

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"commerce/models"
)

var registerValidationOnce sync.Once

// registerValidation 在 gin 的 validator 上註冊 money 規則
func registerValidation() {
	registerValidationOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("money", func(fl validator.FieldLevel) bool {
			return models.Money(fl.Field().Int()).Valid()
		})
	})
}
