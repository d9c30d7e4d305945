// Package validation checks client settings and request arguments.
//
// It supports both struct tag validation (using the validator library) and
// programmatic validation with error collection. Failures are reported as a
// single CONFIGURATION error (or another kind chosen by the caller) whose
// details list every offending field.
//
// # Struct Tag Validation
//
//	type Settings struct {
//	    Backend string `mapstructure:"backend" validate:"required,oneof=openai azure"`
//	}
//	err := validation.Validate(settings)
//
// # Programmatic Validation
//
//	err := validation.New().
//	    Required("api_version", cfg.APIVersion).
//	    URL("api_base", cfg.APIBase).
//	    Err()
package validation
