package validator

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// Caracteres que no deben aparecer en un endpoint configurado
var dangerousChars = []string{"<", ">", "\"", "'", ";", "|", "`", "$", "(", ")", "{", "}", "[", "]", "\\", "\n", "\r", "\t", " "}

// ValidateEndpoint valida una URL http(s) absoluta sin caracteres de inyección.
func ValidateEndpoint(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", name)
	}

	// Prevent path traversal
	if strings.Contains(raw, "..") {
		return fmt.Errorf("%s cannot contain '..'", name)
	}
	for _, char := range dangerousChars {
		if strings.Contains(raw, char) {
			return fmt.Errorf("%s contains invalid characters", name)
		}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https", name)
	}
	if u.Host == "" {
		return fmt.Errorf("%s must include a host", name)
	}
	return nil
}

// ValidateSiteID: el site id de la tienda es un UUID.
func ValidateSiteID(raw string) error {
	if raw == "" {
		return errors.New("storefront site id is required")
	}
	if _, err := uuid.Parse(raw); err != nil {
		return fmt.Errorf("storefront site id must be a UUID: %w", err)
	}
	return nil
}

func ValidatePositiveDuration(name string, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%s must be positive", name)
	}
	return nil
}

func ValidatePositiveInt(name string, n int) error {
	if n <= 0 {
		return fmt.Errorf("%s must be positive", name)
	}
	return nil
}

// Collect junta todos los errores de validación en uno.
func Collect(errs ...error) error {
	return multierr.Combine(errs...)
}
