package validation

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
)

// FileConstraints defines validation rules for file uploads
type FileConstraints struct {
	AllowedMimeTypes  map[string]bool
	AllowedExtensions map[string]bool
	MaxSize           int64
}

var (
	// ImageConstraints applies to product images
	ImageConstraints = FileConstraints{
		AllowedMimeTypes: map[string]bool{
			"image/jpeg": true,
			"image/png":  true,
			"image/webp": true,
		},
		AllowedExtensions: map[string]bool{
			".jpg":  true,
			".jpeg": true,
			".png":  true,
			".webp": true,
		},
		MaxSize: 5 << 20,
	}

	// RequirementConstraints applies to requirement attachments.
	// Office formats sniff as zip (OOXML) or octet-stream (OLE).
	RequirementConstraints = FileConstraints{
		AllowedMimeTypes: map[string]bool{
			"application/pdf":          true,
			"application/zip":          true,
			"application/octet-stream": true,
			"image/png":                true,
			"image/jpeg":               true,
		},
		AllowedExtensions: map[string]bool{
			".pdf":  true,
			".doc":  true,
			".docx": true,
			".xls":  true,
			".xlsx": true,
			".png":  true,
			".jpg":  true,
			".jpeg": true,
		},
		MaxSize: 10 << 20,
	}

	// SpreadsheetConstraints applies to catalog imports
	SpreadsheetConstraints = FileConstraints{
		AllowedMimeTypes: map[string]bool{
			"application/zip": true,
		},
		AllowedExtensions: map[string]bool{
			".xlsx": true,
		},
		MaxSize: 5 << 20,
	}
)

// Accepts lists the allowed extensions, comma separated, for input accept attributes.
func (c FileConstraints) Accepts() string {
	exts := make([]string, 0, len(c.AllowedExtensions))
	for ext := range c.AllowedExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return strings.Join(exts, ",")
}

// ValidateFile validates a file upload against one or more constraint sets
// If multiple constraints are provided, file must match at least one
func ValidateFile(header *multipart.FileHeader, constraints ...FileConstraints) error {
	if len(constraints) == 0 {
		return fmt.Errorf("no file constraints provided")
	}

	var lastErr error
	for _, constraint := range constraints {
		err := validateAgainstConstraint(header, constraint)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	return lastErr
}

func validateAgainstConstraint(header *multipart.FileHeader, constraints FileConstraints) error {
	if header.Size > constraints.MaxSize {
		maxMB := constraints.MaxSize / (1 << 20)
		return fmt.Errorf("File size must be less than %dMB", maxMB)
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !constraints.AllowedExtensions[ext] {
		return fmt.Errorf("Invalid file format. Accepted formats: %s", strings.ReplaceAll(constraints.Accepts(), ",", ", "))
	}

	file, err := header.Open()
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// http.DetectContentType reads at most 512 bytes
	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read file: %w", err)
	}

	detectedType := http.DetectContentType(buffer[:n])
	if i := strings.Index(detectedType, ";"); i >= 0 {
		detectedType = detectedType[:i]
	}
	if !constraints.AllowedMimeTypes[detectedType] {
		return fmt.Errorf("invalid file type (detected: %s)", detectedType)
	}

	return nil
}
