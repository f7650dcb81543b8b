package config

import (
	"errors"
	"fmt"
	"net/url"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for errors and inconsistencies.
// Returns nil if valid, or an error describing the problem.
func Validate(cfg *Config) error {
	var errs []error

	// Exactly one source
	switch {
	case cfg.ServiceURL == "" && cfg.InputPath == "":
		errs = append(errs, ValidationError{
			Field:   "source",
			Message: "one of -service or -input is required",
		})
	case cfg.ServiceURL != "" && cfg.InputPath != "":
		errs = append(errs, ValidationError{
			Field:   "source",
			Message: "-service and -input are mutually exclusive",
		})
	}

	// Validate service URL format if provided
	if cfg.ServiceURL != "" {
		if err := validateURL(cfg.ServiceURL); err != nil {
			errs = append(errs, ValidationError{
				Field:   "service_url",
				Message: err.Error(),
			})
		}

		// Algorithm parameters only matter when we ask the service to run
		if _, err := cfg.Request(); err != nil {
			errs = append(errs, ValidationError{
				Field:   "algorithm",
				Message: err.Error(),
			})
		}
	}

	// -process needs a service to send to
	if len(cfg.Processes) > 0 {
		if cfg.ServiceURL == "" {
			errs = append(errs, ValidationError{
				Field:   "process",
				Message: "-process requires -service",
			})
		}
		if _, err := cfg.ProcessList(); err != nil {
			errs = append(errs, ValidationError{
				Field:   "process",
				Message: err.Error(),
			})
		}
	}

	// -print-request describes a service call
	if cfg.PrintRequest && cfg.ServiceURL == "" {
		errs = append(errs, ValidationError{
			Field:   "print_request",
			Message: "-print-request requires -service",
		})
	}

	// Viewport must be positive
	if cfg.ViewportWidth <= 0 {
		errs = append(errs, ValidationError{
			Field:   "viewport_width",
			Message: "must be positive",
		})
	}

	// Time unit must be positive
	if cfg.TimeUnit <= 0 {
		errs = append(errs, ValidationError{
			Field:   "time_unit",
			Message: "must be positive",
		})
	}

	// Log format must be valid
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.LogFormat] {
		errs = append(errs, ValidationError{
			Field:   "log_format",
			Message: fmt.Sprintf("must be 'json' or 'text' (got %q)", cfg.LogFormat),
		})
	}

	// Timeout must be positive
	if cfg.Timeout <= 0 {
		errs = append(errs, ValidationError{
			Field:   "timeout",
			Message: "must be positive",
		})
	}

	// Return combined errors
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// validateURL checks if the URL is valid and uses http or https.
func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https (got %q)", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("URL must have a host")
	}

	return nil
}
