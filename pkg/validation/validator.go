package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	taxIDPattern      = regexp.MustCompile(`^[0-9]{9,10}(-[0-9])?$`)
	idDocumentPattern = regexp.MustCompile(`^[0-9]{5,12}$`)
	passportPattern   = regexp.MustCompile(`^[A-Za-z0-9]{5,15}$`)
	accountNumPattern = regexp.MustCompile(`^[0-9]{6,20}$`)
	phonePattern      = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
)

var (
	once     sync.Once
	validate *validator.Validate
)

// Init configures the global validator used by Gin's binding.
// - Uses JSON tag names in errors.
// - Registers the billing specific tags.
func Init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		configure(v)
	}
}

// Struct validates s against its `binding` tags with the same rules Gin uses.
func Struct(s any) error {
	once.Do(func() {
		validate = validator.New()
		validate.SetTagName("binding")
		configure(validate)
	})
	return validate.Struct(s)
}

func configure(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterAlias("nonzero", "required")
	_ = v.RegisterValidation("taxid", matches(taxIDPattern))
	_ = v.RegisterValidation("acctnum", matches(accountNumPattern))
	_ = v.RegisterValidation("phone", matches(phonePattern))
	// passports (PPT) are alphanumeric, national ids are digits only
	_ = v.RegisterValidation("iddoc", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		docType := reflect.Indirect(fl.Parent()).FieldByName("DocumentType")
		if docType.IsValid() && docType.Kind() == reflect.String && docType.String() == "PPT" {
			return passportPattern.MatchString(value)
		}
		return idDocumentPattern.MatchString(value)
	})
}

func matches(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

// ToDetails converts validation/binding errors into a map[field]message suitable for API error.details.
// Nested fields are reported with their dotted JSON path, e.g. "contactInfo.email".
func ToDetails(err error) map[string]string {
	if err == nil {
		return nil
	}

	// Invalid JSON payloads
	var se *json.SyntaxError
	var ute *json.UnmarshalTypeError
	if errors.As(err, &se) || errors.As(err, &ute) {
		return map[string]string{"payload": "invalid json"}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			out[fieldPath(fe)] = formatFieldError(fe)
		}
		return out
	}

	return map[string]string{"payload": "invalid payload"}
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func formatFieldError(fe validator.FieldError) string {
	tag := fe.Tag()
	param := fe.Param()
	kind := fe.Kind()

	switch tag {
	case "required", "nonzero":
		return "is required"
	case "required_if":
		return "is required if " + param
	case "excluded_with":
		return "must be excluded when " + param + " is present"

	case "email":
		return "must be a valid email"
	case "iso3166_1_alpha2":
		return "must be a two letter country code"
	case "uuid":
		return "must be a valid UUID"

	case "len":
		if param != "" {
			return fmt.Sprintf("must be exactly %s characters long", param)
		}
		return "invalid length"
	case "min":
		if isNumberKind(kind) {
			return "must be at least " + param
		}
		return "must be at least " + param + " characters long"
	case "max":
		if isNumberKind(kind) {
			return "must be at most " + param
		}
		return "must be at most " + param + " characters long"

	case "oneof":
		return "must be one of: " + strings.Join(splitParams(param), ", ")
	case "numeric":
		return "must be numeric"

	case "taxid":
		return "must be a NIT of 9 or 10 digits with an optional check digit"
	case "iddoc":
		return "must be a valid identity document number"
	case "acctnum":
		return "must contain between 6 and 20 digits"
	case "phone":
		return "must be a valid phone number"

	default:
		if param != "" {
			return fmt.Sprintf("validation failed for '%s' with parameter '%s'", tag, param)
		}
		return fmt.Sprintf("validation failed for '%s'", tag)
	}
}

func isNumberKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

func splitParams(p string) []string {
	if p == "" {
		return nil
	}
	parts := strings.Fields(p)
	if len(parts) > 1 {
		return parts
	}
	if strings.Contains(p, ",") {
		return strings.Split(p, ",")
	}
	return []string{p}
}
