package dto

import (
	"html"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var safeReferenceRe = regexp.MustCompile(`^[a-zA-Z0-9_\-]+$`)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("safe_reference", validateSafeReference)
		_ = v.RegisterValidation("safe_url", validateSafeURL)
	}
}

// validateSafeReference allows alphanumeric, underscore, and dash only —
// used on path-derived reference lookups before they reach a query.
func validateSafeReference(fl validator.FieldLevel) bool {
	return safeReferenceRe.MatchString(fl.Field().String())
}

// validateSafeURL accepts only http/https URLs, for webhook target URLs.
func validateSafeURL(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	if raw == "" {
		return true
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// SanitizeStruct trims whitespace and HTML-escapes every exported string
// reachable from a struct pointer: direct string/*string fields, nested
// structs, string elements of slices, and string values inside a
// map[string]interface{} (the shape payment metadata arrives in). The
// metadata case matters here specifically because merchant-supplied
// metadata is echoed back in PaymentResponse and carried verbatim into
// outbound webhook payloads — an unsanitized string value there reaches
// a merchant's own webhook consumer or dashboard unescaped.
func SanitizeStruct(v interface{}) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return
	}
	sanitizeValue(rv.Elem())
}

func sanitizeValue(rv reflect.Value) {
	switch rv.Kind() {
	case reflect.Struct:
		for i := 0; i < rv.NumField(); i++ {
			f := rv.Field(i)
			if !f.CanSet() {
				continue
			}
			sanitizeValue(f)
		}
	case reflect.Ptr:
		if !rv.IsNil() {
			sanitizeValue(rv.Elem())
		}
	case reflect.String:
		if rv.CanSet() {
			rv.SetString(sanitize(rv.String()))
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			sanitizeValue(rv.Index(i))
		}
	case reflect.Map:
		for _, key := range rv.MapKeys() {
			elem := rv.MapIndex(key)
			if elem.Kind() == reflect.Interface {
				elem = elem.Elem()
			}
			if elem.Kind() == reflect.String {
				rv.SetMapIndex(key, reflect.ValueOf(sanitize(elem.String())))
			}
		}
	}
}

func sanitize(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}
