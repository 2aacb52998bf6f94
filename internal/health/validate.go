package health

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/franckalain/healthscanner/internal/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names, which is what clients send.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateFacts rejects nutrition facts with negative measurements. Analyze
// assumes its input has passed this check.
func ValidateFacts(f models.NutritionFacts) error {
	return describe(validate.Struct(f))
}

// ValidateCriteria rejects negative thresholds.
func ValidateCriteria(c models.HealthCriteria) error {
	return describe(validate.Struct(c))
}

// ValidateUpdate rejects a partial update carrying negative thresholds.
func ValidateUpdate(u models.CriteriaUpdate) error {
	return describe(validate.Struct(u))
}

func describe(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return fmt.Errorf("invalid values, must not be negative: %s", strings.Join(fields, ", "))
}
