package config

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "moss.max_matches")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidLanguages returns the submission languages the similarity service
// accepts.
func ValidLanguages() []string {
	return []string{
		"c", "cc", "java", "ml", "pascal", "ada", "lisp", "scheme",
		"haskell", "fortran", "ascii", "vhdl", "perl", "matlab", "python",
		"mips", "prolog", "spice", "vb", "csharp", "modula2", "a8086",
		"javascript", "plsql", "verilog",
	}
}

// Validate checks the Config for invalid values and returns all validation
// errors found.
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateMarkus()...)
	errors = append(errors, c.validateMoss()...)
	errors = append(errors, c.validateSelect()...)
	errors = append(errors, c.validateExclude()...)
	errors = append(errors, c.validateLogging()...)

	if c.Language != "" && !slices.Contains(ValidLanguages(), c.Language) {
		errors = append(errors, ValidationError{
			Field:   "language",
			Value:   c.Language,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLanguages(), ", ")),
		})
	}

	return errors
}

func (c *Config) validateMarkus() []ValidationError {
	var errors []ValidationError

	if c.Markus.URL != "" {
		u, err := url.Parse(c.Markus.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, ValidationError{
				Field:   "markus.url",
				Value:   c.Markus.URL,
				Message: "must be an absolute URL",
			})
		}
	}

	return errors
}

func (c *Config) validateMoss() []ValidationError {
	var errors []ValidationError

	if c.Moss.UserID < 0 {
		errors = append(errors, ValidationError{
			Field:   "moss.user_id",
			Value:   c.Moss.UserID,
			Message: "must be non-negative",
		})
	}
	if c.Moss.MaxMatches < 1 {
		errors = append(errors, ValidationError{
			Field:   "moss.max_matches",
			Value:   c.Moss.MaxMatches,
			Message: "must be at least 1",
		})
	}
	if c.Moss.ShowResults < 1 {
		errors = append(errors, ValidationError{
			Field:   "moss.show_results",
			Value:   c.Moss.ShowResults,
			Message: "must be at least 1",
		})
	}

	return errors
}

func (c *Config) validateSelect() []ValidationError {
	var errors []ValidationError

	if c.Select.Case < 0 {
		errors = append(errors, ValidationError{
			Field:   "select.case",
			Value:   c.Select.Case,
			Message: "must be a positive case number",
		})
	}
	if c.Select.Case > 0 && len(c.Select.Groups) > 0 {
		errors = append(errors, ValidationError{
			Field:   "select",
			Value:   c.Select.Case,
			Message: "select.case and select.groups are mutually exclusive",
		})
	}
	for i, set := range c.Select.Groups {
		if len(set) < 2 {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("select.groups[%d]", i),
				Value:   set,
				Message: "each group set needs at least two group names",
			})
		}
	}

	return errors
}

func (c *Config) validateExclude() []ValidationError {
	var errors []ValidationError

	for key, indices := range c.Exclude {
		n, err := strconv.Atoi(key)
		if err != nil || n < 1 {
			errors = append(errors, ValidationError{
				Field:   "exclude." + key,
				Value:   key,
				Message: "keys must be positive case numbers",
			})
			continue
		}
		for _, idx := range indices {
			if idx < 0 {
				errors = append(errors, ValidationError{
					Field:   "exclude." + key,
					Value:   idx,
					Message: "match indices must be non-negative",
				})
			}
		}
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}
