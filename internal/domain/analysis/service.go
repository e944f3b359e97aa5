// Package analysis orchestrates captioners, the LLM and the vector store
// behind every upload route.
package analysis

import (
	"context"
	"fmt"
	stdimage "image"
	"time"

	"github.com/google/uuid"

	"alttext-server-go/internal/domain/caption"
	"alttext-server-go/internal/domain/eventbus"
	"alttext-server-go/internal/domain/image"
	"alttext-server-go/internal/domain/llm"
	"alttext-server-go/internal/domain/vectorstore"
	"alttext-server-go/internal/platform/errors"
	"alttext-server-go/internal/platform/logging"
)

// Captioner routes an image by type to a caption model.
type Captioner interface {
	Caption(ctx context.Context, imageType string, img caption.Image) (*caption.Result, error)
}

// Publisher queues domain events.
type Publisher interface {
	PublishAsync(topic string, args ...any) bool
}

type Options struct {
	Captioner Captioner
	LLM       llm.Client
	Vectors   vectorstore.Store
	Events    Publisher
	Logger    *logging.Logger
	// Dimension is the vector index dimension; 0 stores embeddings as is.
	Dimension int
	MinWords  int
	Colors    int
}

type Service struct {
	captioner Captioner
	llm       llm.Client
	vectors   vectorstore.Store
	events    Publisher
	logger    *logging.Logger
	dimension int
	minWords  int
	colors    int
	now       func() time.Time
}

func NewService(opts Options) (*Service, error) {
	if opts.Captioner == nil || opts.LLM == nil || opts.Vectors == nil {
		return nil, errors.New(errors.KindConfig, "analysis.new", "captioner, llm and vector store are required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.MinWords <= 0 {
		opts.MinWords = 6
	}
	if opts.Colors <= 0 {
		opts.Colors = 5
	}
	return &Service{
		captioner: opts.Captioner,
		llm:       opts.LLM,
		vectors:   opts.Vectors,
		events:    opts.Events,
		logger:    opts.Logger,
		dimension: opts.Dimension,
		minWords:  opts.MinWords,
		colors:    opts.Colors,
		now:       time.Now,
	}, nil
}

type requestIDKey struct{}

// WithRequestID tags ctx with the id used in published events.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id attached to ctx, or a fresh one.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

func (s *Service) publish(topic string, ev any) {
	if s.events == nil {
		return
	}
	if !s.events.PublishAsync(topic, ev) {
		s.logger.WarnTag("Event", "%s event dropped", topic)
	}
}

// track publishes an analysis.completed event for one request.
func (s *Service) track(ctx context.Context, kind, filename string, start time.Time, err error, data map[string]any) {
	ev := eventbus.AnalysisCompleted{
		RequestID: RequestID(ctx),
		Kind:      kind,
		Filename:  filename,
		Success:   err == nil,
		Duration:  s.now().Sub(start),
		Data:      data,
		At:        s.now(),
	}
	if err != nil {
		ev.Error = err.Error()
		s.logger.ErrorTag("Caption", "%s analysis of %s failed: %v", kind, filename, err)
	} else {
		s.logger.InfoTag("Caption", "%s analysis of %s finished in %s", kind, filename, ev.Duration)
	}
	s.publish(eventbus.TopicAnalysisCompleted, ev)
}

func decode(up *image.Upload) (*stdimage.NRGBA, error) {
	if up == nil || len(up.Data) == 0 {
		return nil, errors.New(errors.KindDomain, "analysis.decode", "empty image")
	}
	img, err := image.Decode(up.Data)
	if err != nil {
		return nil, errors.Wrap(errors.KindDomain, "analysis.decode", "cannot identify image file", err)
	}
	return img, nil
}

// captionImage captions an already decoded image as JPEG.
func (s *Service) captionImage(ctx context.Context, imageType string, img stdimage.Image) (*caption.Result, error) {
	data, err := image.EncodeJPEG(img)
	if err != nil {
		return nil, errors.Wrap(errors.KindDomain, "analysis.encode", "failed to encode image", err)
	}
	return s.captioner.Caption(ctx, imageType, caption.Image{Data: data, Format: "jpeg"})
}

// altText preprocesses, checks quality and captions with the general model.
func (s *Service) altText(ctx context.Context, up *image.Upload) (string, *stdimage.NRGBA, error) {
	img, err := decode(up)
	if err != nil {
		return "", nil, err
	}
	processed := image.Preprocess(img)
	if q := image.Quality(processed); !q.Valid() {
		s.logger.WarnTag("Caption", "image quality issues for %s: %v", up.Filename, q.Issues)
	}
	res, err := s.captionImage(ctx, caption.TypeGeneral, processed)
	if err != nil {
		return "", nil, err
	}
	return res.Caption, img, nil
}

func (s *Service) generate(ctx context.Context, op, prompt string) (string, error) {
	out, err := s.llm.Generate(ctx, prompt)
	if err != nil {
		return "", errors.Wrap(errors.KindLLM, op, fmt.Sprintf("%s failed", op), err)
	}
	return out, nil
}

// visionImage re-encodes img as JPEG for vision models.
func visionImage(img stdimage.Image) (llm.Image, error) {
	data, err := image.EncodeJPEG(img)
	if err != nil {
		return llm.Image{}, errors.Wrap(errors.KindDomain, "analysis.encode", "failed to encode image", err)
	}
	return llm.Image{Data: data, Format: "jpeg"}, nil
}
