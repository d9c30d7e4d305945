package openai

// String returns a pointer to v, for optional request fields.
func String(v string) *string { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
