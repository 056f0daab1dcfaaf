package handlers

import (
	"errors"
	"fmt"

	"civicreport-backend/models"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators adds the `department` and `reportstatus` tags to gin's
// validator engine
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}

	if err := v.RegisterValidation("department", func(fl validator.FieldLevel) bool {
		return models.Department(fl.Field().String()).Valid()
	}); err != nil {
		return err
	}
	return v.RegisterValidation("reportstatus", func(fl validator.FieldLevel) bool {
		return models.ReportStatus(fl.Field().String()).Valid()
	})
}

// bindingMessage turns validator errors into a short client-facing message
func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "department":
		return "department must be one of Sanitation, Engineering, Drainage, WaterSupply, Electricity"
	case "reportstatus":
		return "status must be one of reported, acknowledged, in_progress, resolved"
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
