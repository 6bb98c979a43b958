package catalog

import (
	"mime"
	"strings"

	"vectortube/internal/errs"
)

// DefaultAllowedTypes are the thumbnail media types accepted when none are
// configured.
var DefaultAllowedTypes = []string{"image/jpeg", "image/png"}

// UploadValidator admits or rejects a file part by its declared media type.
// The declared type is trusted as sent; file bytes are not inspected.
type UploadValidator struct {
	allowed map[string]bool
	names   []string
}

func NewUploadValidator(allowed []string) *UploadValidator {
	if len(allowed) == 0 {
		allowed = DefaultAllowedTypes
	}
	v := &UploadValidator{allowed: make(map[string]bool, len(allowed))}
	for _, t := range allowed {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || v.allowed[t] {
			continue
		}
		v.allowed[t] = true
		v.names = append(v.names, t)
	}
	return v
}

// Check returns a validation failure naming declared unless it is allowed.
func (v *UploadValidator) Check(declared string) error {
	mediaType, _, err := mime.ParseMediaType(declared)
	if err != nil || !v.allowed[mediaType] {
		return errs.Validationf("upload",
			"invalid file type %q, only %s files are allowed", declared, strings.Join(v.names, ", "))
	}
	return nil
}

// Allowed returns the accepted media types in configuration order.
func (v *UploadValidator) Allowed() []string {
	return append([]string(nil), v.names...)
}
