package handlers

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	// 에러 필드명을 쿼리 파라미터 이름으로
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("query"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
}

// TopKQuery holds the /api/topk query parameters
// Pointers distinguish an explicit 0 from an omitted value.
// Tag defaults apply only when the QueryPolicy leaves a default unset.
type TopKQuery struct {
	K    *int   `query:"k" default:"50" validate:"required,min=1"`
	Bins *int   `query:"n_bins" default:"5" validate:"required,min=1"`
	AsOf string `query:"as_of_month" validate:"omitempty,max=32"`
}

// QueryPolicy holds the configured defaults and bounds of a top-k query
// ⭐ SSOT: rankconfig query/labels 섹션에서 생성
type QueryPolicy struct {
	DefaultK    int
	MaxK        int
	DefaultBins int
	MinBins     int
	MaxBins     int
}

// DefaultQueryPolicy mirrors the built-in ranker configuration
func DefaultQueryPolicy() QueryPolicy {
	return QueryPolicy{DefaultK: 50, MaxK: 500, DefaultBins: 5, MinBins: 3, MaxBins: 10}
}

// FieldError describes one invalid query parameter
type FieldError struct {
	Code    string `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// BindTopKQuery parses, defaults and validates the query parameters against policy
func BindTopKQuery(values url.Values, policy QueryPolicy) (*TopKQuery, []FieldError) {
	q := &TopKQuery{AsOf: strings.TrimSpace(values.Get("as_of_month"))}

	var errs []FieldError
	for _, p := range []struct {
		name string
		dst  **int
	}{{"k", &q.K}, {"n_bins", &q.Bins}} {
		raw := strings.TrimSpace(values.Get(p.name))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, FieldError{
				Code:    "ERR_TYPE",
				Field:   p.name,
				Message: fmt.Sprintf("%s must be an integer", p.name),
			})
			continue
		}
		*p.dst = &n
	}
	if len(errs) > 0 {
		return nil, errs
	}

	// 1. 설정 기본값, 그 다음 태그 기본값
	if q.K == nil && policy.DefaultK > 0 {
		k := policy.DefaultK
		q.K = &k
	}
	if q.Bins == nil && policy.DefaultBins > 0 {
		b := policy.DefaultBins
		q.Bins = &b
	}
	if err := defaults.Set(q); err != nil {
		return nil, []FieldError{{Code: "ERR_UNKNOWN", Message: err.Error()}}
	}

	// 2. 구조 검증
	if err := validate.Struct(q); err != nil {
		return nil, fieldErrors(err)
	}

	// 3. 설정 범위 검증
	errs = appendRange(errs, "k", *q.K, 1, policy.MaxK)
	errs = appendRange(errs, "n_bins", *q.Bins, policy.MinBins, policy.MaxBins)
	if len(errs) > 0 {
		return nil, errs
	}
	return q, nil
}

// appendRange validates v in [min, max]; a bound <= 0 is not enforced
func appendRange(errs []FieldError, field string, v, min, max int) []FieldError {
	var rules []string
	if min > 0 {
		rules = append(rules, fmt.Sprintf("min=%d", min))
	}
	if max > 0 {
		rules = append(rules, fmt.Sprintf("max=%d", max))
	}
	if len(rules) == 0 {
		return errs
	}

	err := validate.Var(v, strings.Join(rules, ","))
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return errs
	}
	for _, e := range validationErrors {
		errs = append(errs, FieldError{
			Code:    "ERR_" + strings.ToUpper(e.Tag()),
			Field:   field,
			Message: rangeMessage(field, e.Tag(), e.Param()),
		})
	}
	return errs
}

func rangeMessage(field, tag, param string) string {
	if tag == "min" {
		return fmt.Sprintf("%s must be at least %s", field, param)
	}
	return fmt.Sprintf("%s must be at most %s", field, param)
}

func fieldErrors(err error) []FieldError {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []FieldError{{Code: "ERR_UNKNOWN", Message: err.Error()}}
	}

	errs := make([]FieldError, 0, len(validationErrors))
	for _, e := range validationErrors {
		errs = append(errs, FieldError{
			Code:    "ERR_" + strings.ToUpper(e.Tag()),
			Field:   e.Field(),
			Message: errorMessage(e),
		})
	}
	return errs
}

func errorMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min", "max":
		if fe.Kind() == reflect.String && fe.Tag() == "max" {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return rangeMessage(field, fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}
