// Package archive keeps a copy of original uploads.
package archive

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"alttext-server-go/internal/platform/config"
	"alttext-server-go/internal/platform/errors"
)

const (
	DriverNone  = "none"
	DriverLocal = "local"
	DriverMinio = "minio"
)

// Store persists an object and returns where it was written.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Driver() string
}

// Key builds the archive key <yyyy-mm-dd>/<uuid>-<filename>.
func Key(now time.Time, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "upload"
	}
	return fmt.Sprintf("%s/%s-%s", now.UTC().Format("2006-01-02"), uuid.NewString(), name)
}

// New builds the store for cfg.Driver. uploadDir backs the local driver.
func New(ctx context.Context, cfg config.ArchiveConfig, uploadDir string) (Store, error) {
	switch cfg.Driver {
	case "", DriverNone:
		return Discard{}, nil
	case DriverLocal:
		return NewLocal(uploadDir)
	case DriverMinio:
		return NewMinio(ctx, cfg.Minio)
	default:
		return nil, errors.New(errors.KindConfig, "archive.new", fmt.Sprintf("unsupported archive driver: %s", cfg.Driver))
	}
}

// Discard drops every object.
type Discard struct{}

func (Discard) Put(context.Context, string, []byte, string) (string, error) { return "", nil }
func (Discard) Driver() string                                             { return DriverNone }
