package image

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"alttext-server-go/internal/platform/config"
	"alttext-server-go/internal/platform/logging"
)

// SecurityValidator performs layered checks against uploaded image bytes.
type SecurityValidator struct {
	config *config.SecurityConfig
	logger *logging.Logger
}

func NewSecurityValidator(cfg *config.SecurityConfig, logger *logging.Logger) *SecurityValidator {
	if logger == nil {
		logger = logging.Discard()
	}
	return &SecurityValidator{config: cfg, logger: logger}
}

var imageSignatures = []struct {
	format string
	magic  []byte
}{
	{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}},
	{"jpeg", []byte{0xFF, 0xD8, 0xFF}},
	{"gif", []byte("GIF87a")},
	{"gif", []byte("GIF89a")},
	{"bmp", []byte("BM")},
	{"tiff", []byte{0x49, 0x49, 0x2A, 0x00}},
	{"tiff", []byte{0x4D, 0x4D, 0x00, 0x2A}},
}

// Sniff identifies the format from the header bytes, or returns "".
func Sniff(data []byte) string {
	if len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")) {
		return "webp"
	}
	for _, sig := range imageSignatures {
		if bytes.HasPrefix(data, sig.magic) {
			return sig.format
		}
	}
	return ""
}

func normalizeFormat(format string) string {
	format = strings.ToLower(strings.TrimPrefix(format, "."))
	switch format {
	case "jpg":
		return "jpeg"
	case "tif":
		return "tiff"
	}
	return format
}

// ValidateBytes checks size, magic bytes, decodability and dimensions.
// maxSize <= 0 disables the size check.
func (v *SecurityValidator) ValidateBytes(raw []byte, declaredFormat string, maxSize int64) ValidationResult {
	result := ValidationResult{}
	declaredFormat = normalizeFormat(declaredFormat)

	if len(raw) == 0 {
		result.Error = fmt.Errorf("empty image payload")
		return result
	}
	if maxSize > 0 && int64(len(raw)) > maxSize {
		result.Error = fmt.Errorf("file size exceeds limit: %d bytes (max %d bytes)", len(raw), maxSize)
		result.SecurityRisk = "file too large"
		v.logger.Warn("detected oversized image: size=%d max_size=%d format=%s", len(raw), maxSize, declaredFormat)
		return result
	}

	sniffed := Sniff(raw)
	if sniffed == "" {
		result.Error = fmt.Errorf("unrecognized image signature")
		result.SecurityRisk = "unknown signature"
		v.logger.Warn("file signature mismatch: declared_format=%s actual_header=%x", declaredFormat, raw[:min(len(raw), 16)])
		return result
	}
	if !v.isFormatAllowed(sniffed) {
		result.Error = fmt.Errorf("unsupported format: %s", sniffed)
		result.SecurityRisk = "unapproved format"
		return result
	}
	if declaredFormat != "" && declaredFormat != sniffed {
		v.logger.Debug("declared format %s differs from content %s", declaredFormat, sniffed)
	}

	if v.config != nil && v.config.EnableDeepScan && v.scanForMaliciousContent(raw) {
		result.Error = fmt.Errorf("potential malicious content detected")
		result.SecurityRisk = "suspicious content"
		return result
	}

	return v.validateImageDecoding(raw, sniffed)
}

func (v *SecurityValidator) isFormatAllowed(format string) bool {
	if v.config == nil || len(v.config.AllowedFormats) == 0 {
		return true
	}
	for _, allowed := range v.config.AllowedFormats {
		if normalizeFormat(allowed) == format {
			return true
		}
	}
	return false
}

// scanForMaliciousContent looks for script payloads smuggled after the
// image header, e.g. polyglot GIF/HTML files.
func (v *SecurityValidator) scanForMaliciousContent(raw []byte) bool {
	head := raw
	if len(head) > 4096 {
		head = head[:4096]
	}
	lower := bytes.ToLower(head)
	for _, token := range []string{"<script", "javascript:", "<svg", "<?php", "<iframe"} {
		if bytes.Contains(lower, []byte(token)) {
			v.logger.Warn("detected suspicious content: token=%s", token)
			return true
		}
	}
	return false
}

func (v *SecurityValidator) validateImageDecoding(raw []byte, format string) ValidationResult {
	result := ValidationResult{Format: format}

	cfg, actualFormat, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		result.Error = fmt.Errorf("decode image config: %w", err)
		result.SecurityRisk = "corrupted image data"
		return result
	}
	if actualFormat != "" {
		result.Format = actualFormat
	}

	if v.config != nil {
		if (v.config.MaxWidth > 0 && cfg.Width > v.config.MaxWidth) || (v.config.MaxHeight > 0 && cfg.Height > v.config.MaxHeight) {
			result.Error = fmt.Errorf("dimensions exceed limit: %dx%d (max %dx%d)",
				cfg.Width, cfg.Height, v.config.MaxWidth, v.config.MaxHeight)
			result.SecurityRisk = "dimensions too large"
			return result
		}
		totalPixels := int64(cfg.Width) * int64(cfg.Height)
		if v.config.MaxPixels > 0 && totalPixels > v.config.MaxPixels {
			result.Error = fmt.Errorf("pixel count exceeds limit: %d (max %d)", totalPixels, v.config.MaxPixels)
			result.SecurityRisk = "pixel count too high"
			return result
		}
	}

	result.IsValid = true
	result.Width = cfg.Width
	result.Height = cfg.Height
	result.FileSize = int64(len(raw))

	v.logger.Debug("image validation success: format=%s width=%d height=%d size=%d",
		result.Format, result.Width, result.Height, result.FileSize)
	return result
}
