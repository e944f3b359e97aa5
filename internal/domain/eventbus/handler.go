package eventbus

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"gorm.io/datatypes"

	"alttext-server-go/internal/domain/archive"
	"alttext-server-go/internal/platform/logging"
	"alttext-server-go/internal/platform/storage"
)

type CaptionSaver interface {
	Save(ctx context.Context, rec *storage.CaptionRecord) error
}

type EventRecorder interface {
	Record(ctx context.Context, ev *storage.AnalysisEvent) error
}

// Handlers persists what the HTTP layer publishes. Failures are logged and
// never surface to the request that triggered them.
type Handlers struct {
	Captions CaptionSaver
	Events   EventRecorder
	Archive  archive.Store
	Logger   *logging.Logger
	Timeout  time.Duration
}

// Register subscribes the handlers that have a backing dependency.
func (h *Handlers) Register(b *Bus) error {
	if h.Logger == nil {
		h.Logger = logging.Discard()
	}
	if h.Timeout <= 0 {
		h.Timeout = 30 * time.Second
	}
	if h.Captions != nil || h.Archive != nil {
		if err := b.Subscribe(TopicCaptionStored, h.onCaptionStored); err != nil {
			return err
		}
	}
	if h.Events != nil {
		if err := b.Subscribe(TopicAnalysisCompleted, h.onAnalysisCompleted); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handlers) onCaptionStored(ev CaptionStored) {
	ctx, cancel := context.WithTimeout(context.Background(), h.Timeout)
	defer cancel()

	meta := map[string]any{"request_id": ev.RequestID}
	if h.Archive != nil && len(ev.Image) > 0 {
		key := archive.Key(ev.StoredAt, ev.Filename)
		loc, err := h.Archive.Put(ctx, key, ev.Image, ev.ContentType)
		if err != nil {
			h.Logger.ErrorTag("Archive", "archive %s failed: %v", ev.Filename, err)
		} else if loc != "" {
			meta["archive"] = loc
			h.Logger.DebugTag("Archive", "stored %s at %s", ev.Filename, loc)
		}
	}

	if h.Captions == nil {
		return
	}
	rec := &storage.CaptionRecord{
		Filename:    ev.Filename,
		ImageType:   ev.ImageType,
		Caption:     ev.Caption,
		LLMResponse: ev.LLMResponse,
		Provider:    ev.Provider,
		VectorDim:   ev.VectorDim,
		Metadata:    marshalJSON(meta),
	}
	if err := h.Captions.Save(ctx, rec); err != nil {
		h.Logger.ErrorTag("Storage", "save caption history for %s failed: %v", ev.Filename, err)
	}
}

func (h *Handlers) onAnalysisCompleted(ev AnalysisCompleted) {
	ctx, cancel := context.WithTimeout(context.Background(), h.Timeout)
	defer cancel()

	rec := &storage.AnalysisEvent{
		RequestID:  ev.RequestID,
		Kind:       ev.Kind,
		Filename:   ev.Filename,
		Success:    ev.Success,
		DurationMS: ev.Duration.Milliseconds(),
		Error:      ev.Error,
		Data:       marshalJSON(ev.Data),
	}
	if !ev.At.IsZero() {
		rec.CreatedAt = ev.At
	}
	if err := h.Events.Record(ctx, rec); err != nil {
		h.Logger.ErrorTag("Storage", "record %s event failed: %v", ev.Kind, err)
	}
}

func marshalJSON(v any) datatypes.JSON {
	if v == nil {
		return nil
	}
	if m, ok := v.(map[string]any); ok && len(m) == 0 {
		return nil
	}
	raw, err := sonic.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}
