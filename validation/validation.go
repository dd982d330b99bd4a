package validation

import "strings"

type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Required flags value when it is blank after trimming.
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

// Present flags value when it is the empty string. Unlike Required,
// whitespace counts as present.
func Present(field, value string, v Violations) {
	if value == "" {
		v[field] = "required"
	}
}
