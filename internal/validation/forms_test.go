package validation

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestValidateQuote(t *testing.T) {
	valid := QuoteInput{Name: "Asha", Email: "asha@example.com", Quantity: 5}

	tests := []struct {
		name  string
		in    func(QuoteInput) QuoteInput
		field string
		msg   string
	}{
		{"valid", func(in QuoteInput) QuoteInput { return in }, "", ""},
		{"zero quantity", func(in QuoteInput) QuoteInput { in.Quantity = 0; return in }, FieldQuantity, "Quantity must be at least 1"},
		{"negative quantity", func(in QuoteInput) QuoteInput { in.Quantity = -3; return in }, FieldQuantity, "Quantity must be at least 1"},
		{"missing name", func(in QuoteInput) QuoteInput { in.Name = "  "; return in }, FieldName, "Name is required"},
		{"missing email", func(in QuoteInput) QuoteInput { in.Email = ""; return in }, FieldEmail, "Email is required"},
		{"bad email", func(in QuoteInput) QuoteInput { in.Email = "asha@"; return in }, FieldEmail, "Invalid email format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateQuote(tt.in(valid))
			if tt.field == "" {
				if len(errs) != 0 {
					t.Fatalf("expected no errors, got %v", errs)
				}
				return
			}
			if got := errs[tt.field]; got != tt.msg {
				t.Fatalf("errs[%q] = %q, want %q", tt.field, got, tt.msg)
			}
		})
	}
}

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write(content)
	_ = mw.Close()

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if err := req.ParseMultipartForm(32 << 20); err != nil {
		t.Fatal(err)
	}
	return req.MultipartForm.File["file"][0]
}

func TestValidateRequirement(t *testing.T) {
	pdf := []byte("%PDF-1.7\n1 0 obj\n")

	errs := ValidateRequirement("Flanges, 200 units", fileHeader(t, "drawing.pdf", pdf))
	if len(errs) != 0 {
		t.Fatalf("expected valid, got %v", errs)
	}

	errs = ValidateRequirement("", nil)
	if !errs.Has(FieldDescription) || !errs.Has(FieldFile) {
		t.Fatalf("expected description and file errors, got %v", errs)
	}

	errs = ValidateRequirement("script", fileHeader(t, "run.exe", pdf))
	if !strings.HasPrefix(errs[FieldFile], "Invalid file format") {
		t.Fatalf("expected format error, got %q", errs[FieldFile])
	}

	big := append([]byte("%PDF-1.7\n"), bytes.Repeat([]byte("x"), 10<<20)...)
	errs = ValidateRequirement("large", fileHeader(t, "big.pdf", big))
	if errs[FieldFile] != "File size must be less than 10MB" {
		t.Fatalf("expected size error, got %q", errs[FieldFile])
	}
}

func TestErrorsErr(t *testing.T) {
	if (Errors{}).Err() != nil {
		t.Fatal("empty Errors should be nil error")
	}

	errs := Errors{}
	errs.Add(FieldName, "first")
	errs.Add(FieldName, "second")
	if errs[FieldName] != "first" {
		t.Fatalf("Add overwrote existing message: %q", errs[FieldName])
	}
	if errs.Err() == nil {
		t.Fatal("expected non-nil error")
	}
}
