package resena

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hitoshi/reviews/internal/model"
)

// newValidator はJSONタグ名でフィールドを報告するvalidatorを生成する。
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// toValidationError はvalidatorのエラーをmodel.ValidationErrorに変換する。最初の1件のみ報告する。
func toValidationError(err error) error {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) || len(ves) == 0 {
		return err
	}
	fe := ves[0]
	return &model.ValidationError{Field: fe.Field(), Reason: describe(fe)}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be >= %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be <= %s", fe.Param())
	case "gtefield":
		return fmt.Sprintf("must be >= field %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// pageQuery はページング指定の検証用。
type pageQuery struct {
	Skip  int `json:"skip" validate:"gte=0"`
	Limit int `json:"limit" validate:"gte=1,lte=100"`
}

type locationQuery struct {
	Latitud  float64 `json:"latitud" validate:"gte=-90,lte=90"`
	Longitud float64 `json:"longitud" validate:"gte=-180,lte=180"`
	RadioKm  float64 `json:"radio_km" validate:"gte=0.1,lte=100"`
}

type ratingQuery struct {
	Min float64 `json:"min_valoracion" validate:"gte=0,lte=5"`
	Max float64 `json:"max_valoracion" validate:"gte=0,lte=5,gtefield=Min"`
}
