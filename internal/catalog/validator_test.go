package catalog

import (
	"strings"
	"testing"

	"vectortube/internal/errs"
)

func TestUploadValidator_Check(t *testing.T) {
	v := NewUploadValidator(nil)

	tests := []struct {
		declared string
		ok       bool
	}{
		{"image/jpeg", true},
		{"image/png", true},
		{"IMAGE/PNG", true},
		{"image/png; charset=binary", true},
		{"image/gif", false},
		{"text/plain", false},
		{"application/octet-stream", false},
		{"", false},
		{"not a type", false},
	}

	for _, tt := range tests {
		t.Run(tt.declared, func(t *testing.T) {
			err := v.Check(tt.declared)
			if tt.ok && err != nil {
				t.Errorf("expected %q to be allowed, got %v", tt.declared, err)
			}
			if !tt.ok && !errs.Is(err, errs.Validation) {
				t.Errorf("expected validation failure for %q, got %v", tt.declared, err)
			}
		})
	}
}

func TestUploadValidator_Check_MessageNamesType(t *testing.T) {
	v := NewUploadValidator(nil)

	err := v.Check("image/gif")
	detail := errs.DetailOf(err)
	if !strings.Contains(detail, "image/gif") {
		t.Errorf("expected detail to name the rejected type, got %q", detail)
	}
	if !strings.Contains(detail, "image/jpeg") || !strings.Contains(detail, "image/png") {
		t.Errorf("expected detail to list allowed types, got %q", detail)
	}
}

func TestUploadValidator_Custom(t *testing.T) {
	v := NewUploadValidator([]string{" image/WEBP ", "image/webp", ""})

	if got := v.Allowed(); len(got) != 1 || got[0] != "image/webp" {
		t.Fatalf("expected [image/webp], got %v", got)
	}
	if err := v.Check("image/webp"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := v.Check("image/png"); err == nil {
		t.Error("expected png to be rejected by a custom list")
	}
}
