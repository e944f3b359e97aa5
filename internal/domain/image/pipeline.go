package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"

	"alttext-server-go/internal/platform/config"
	"alttext-server-go/internal/platform/logging"
)

// ErrTooLarge is returned when a body exceeds the configured limit.
type ErrTooLarge struct {
	Limit int64
}

func (e *ErrTooLarge) Error() string {
	return fmt.Sprintf("image exceeds maximum size of %d bytes", e.Limit)
}

// Pipeline reads upload bodies under a size limit and optionally runs the
// security validator over them.
type Pipeline struct {
	validator *SecurityValidator
	logger    *logging.Logger
}

type Options struct {
	Security *config.SecurityConfig
	Logger   *logging.Logger
}

func NewPipeline(opts Options) (*Pipeline, error) {
	if opts.Security == nil {
		return nil, fmt.Errorf("security config is required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &Pipeline{
		validator: NewSecurityValidator(opts.Security, opts.Logger),
		logger:    opts.Logger,
	}, nil
}

// Read drains r into memory, failing with *ErrTooLarge past max bytes.
func (p *Pipeline) Read(r io.Reader, max int64) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("image reader is required")
	}
	if max <= 0 {
		max = 16 << 20
	}
	limited := &io.LimitedReader{R: r, N: max + 1}
	buf := bytes.NewBuffer(make([]byte, 0, 32*1024))
	if _, err := io.Copy(buf, limited); err != nil {
		return nil, fmt.Errorf("stream image bytes: %w", err)
	}
	if limited.N <= 0 {
		return nil, &ErrTooLarge{Limit: max}
	}
	return buf.Bytes(), nil
}

// Validate runs the security validator over an upload and records the
// detected format on it.
func (p *Pipeline) Validate(ctx context.Context, up *Upload, max int64) (ValidationResult, error) {
	if err := ctx.Err(); err != nil {
		return ValidationResult{}, err
	}
	res := p.validator.ValidateBytes(up.Data, Extension(up.Filename), max)
	if !res.IsValid {
		if res.Error == nil {
			res.Error = fmt.Errorf("image validation failed")
		}
		return res, res.Error
	}
	up.Format = res.Format
	return res, nil
}

// Base64 encodes data with the standard alphabet.
func Base64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DataURL renders data as a data:image/<format>;base64 URL.
func DataURL(format string, data []byte) string {
	if format == "" {
		format = "jpeg"
	}
	return "data:image/" + format + ";base64," + Base64(data)
}
