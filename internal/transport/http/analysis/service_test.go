package analysis

import (
	"context"
	"encoding/json"
	"image/color"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainanalysis "alttext-server-go/internal/domain/analysis"
	domainimage "alttext-server-go/internal/domain/image"
	"alttext-server-go/internal/domain/text"
	"alttext-server-go/internal/domain/tts"
	"alttext-server-go/internal/platform/errors"
	testutil "alttext-server-go/internal/platform/testing"
)

type fakeAnalyzer struct {
	err   error
	calls []string
}

func (f *fakeAnalyzer) called(name string) error {
	f.calls = append(f.calls, name)
	return f.err
}

func (f *fakeAnalyzer) SocialMedia(context.Context, *domainimage.Upload) (*domainanalysis.SocialResult, error) {
	if err := f.called("social"); err != nil {
		return nil, err
	}
	return &domainanalysis.SocialResult{AltText: "a red and blue square on a plain background", Caption: "Bold colors!", Hashtags: []string{"#color"}}, nil
}

func (f *fakeAnalyzer) SEO(context.Context, *domainimage.Upload) (*domainanalysis.SEOResult, error) {
	if err := f.called("seo"); err != nil {
		return nil, err
	}
	return &domainanalysis.SEOResult{SEOContent: text.SEOContent{MetaTitle: "Red and blue"}}, nil
}

func (f *fakeAnalyzer) General(context.Context, *domainimage.Upload) (*domainanalysis.GeneralResult, error) {
	if err := f.called("general"); err != nil {
		return nil, err
	}
	return &domainanalysis.GeneralResult{Description: "two colors", Objects: []string{}, Colors: []string{"#ff0000", "#0000ff"}}, nil
}

func (f *fakeAnalyzer) ImageAnalyzer(context.Context, *domainimage.Upload) (*domainanalysis.AnalyzerResult, error) {
	if err := f.called("analyzer"); err != nil {
		return nil, err
	}
	return &domainanalysis.AnalyzerResult{AltText: "squares", Context: "Two squares side by side."}, nil
}

func (f *fakeAnalyzer) SocialAnalyze(context.Context, *domainimage.Upload) (*domainanalysis.SocialResult, error) {
	if err := f.called("social-analyze"); err != nil {
		return nil, err
	}
	return &domainanalysis.SocialResult{AltText: "squares", Caption: "Look!", Hashtags: []string{"#Photography"}}, nil
}

func (f *fakeAnalyzer) Medical(context.Context, *domainimage.Upload) (*domainanalysis.MedicalResult, error) {
	if err := f.called("medical"); err != nil {
		return nil, err
	}
	return &domainanalysis.MedicalResult{RawResponse: "report"}, nil
}

func (f *fakeAnalyzer) Advanced(context.Context, *domainimage.Upload) (*domainanalysis.AdvancedResult, error) {
	if err := f.called("advanced"); err != nil {
		return nil, err
	}
	return &domainanalysis.AdvancedResult{Description: "vivid"}, nil
}

type fakeSpeaker struct {
	err error
}

func (f fakeSpeaker) Speak(_ context.Context, s string) (*tts.Speech, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &tts.Speech{Audio: []byte("ID3" + s), Format: "mp3", Duration: 1500 * time.Millisecond}, nil
}

func newEngine(t *testing.T, a Analyzer, sp Speaker) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := testutil.SetupTestConfig(t)
	pipeline, err := domainimage.NewPipeline(domainimage.Options{Security: &cfg.Security})
	require.NoError(t, err)
	svc, err := NewService(cfg, nil, pipeline, a, sp)
	require.NoError(t, err)
	engine := gin.New()
	svc.Register(&engine.RouterGroup)
	return engine
}

func post(t *testing.T, h http.Handler, req *http.Request) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec.Code, body
}

func pngPart(t *testing.T, field, name string) testutil.FilePart {
	return testutil.FilePart{
		Field:    field,
		Filename: name,
		Data:     testutil.PNG(t, 32, 32, color.NRGBA{R: 255, A: 255}, color.NRGBA{B: 255, A: 255}),
	}
}

func TestNewService_Validates(t *testing.T) {
	_, err := NewService(testutil.SetupTestConfig(t), nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestRoutes_Success(t *testing.T) {
	a := &fakeAnalyzer{}
	engine := newEngine(t, a, fakeSpeaker{})

	tests := []struct {
		path  string
		field string
		check func(t *testing.T, body map[string]any)
	}{
		{"/social-media", "image", func(t *testing.T, body map[string]any) {
			assert.Equal(t, true, body["success"])
			assert.Equal(t, "Bold colors!", body["data"].(map[string]any)["caption"])
		}},
		{"/seo", "image", func(t *testing.T, body map[string]any) {
			assert.Equal(t, "Red and blue", body["data"].(map[string]any)["meta_title"])
		}},
		{"/api/analyze/general", "image", func(t *testing.T, body map[string]any) {
			assert.Equal(t, "two colors", body["description"])
			assert.Equal(t, []any{"#ff0000", "#0000ff"}, body["colors"])
			assert.Equal(t, []any{}, body["objects"])
		}},
		{"/image-analyzer", "image", func(t *testing.T, body map[string]any) {
			assert.Equal(t, "Two squares side by side.", body["data"].(map[string]any)["context"])
		}},
		{"/api/social-media/analyze", "image", func(t *testing.T, body map[string]any) {
			assert.Equal(t, []any{"#Photography"}, body["data"].(map[string]any)["hashtags"])
		}},
		{"/api/analyze-medical-image", "file", func(t *testing.T, body map[string]any) {
			assert.Equal(t, "report", body["data"].(map[string]any)["raw_response"])
		}},
		{"/advanced-analysis", "image", func(t *testing.T, body map[string]any) {
			assert.Equal(t, "vivid", body["data"].(map[string]any)["description"])
		}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			code, body := post(t, engine, testutil.MultipartRequest(t, tt.path, nil, pngPart(t, tt.field, "squares.png")))
			require.Equal(t, http.StatusOK, code, body)
			tt.check(t, body)
		})
	}
	assert.Len(t, a.calls, len(tests))
}

func TestRoutes_UploadRejections(t *testing.T) {
	engine := newEngine(t, &fakeAnalyzer{}, fakeSpeaker{})
	txt := testutil.FilePart{Field: "image", Filename: "notes.txt", Data: []byte("hi")}
	blank := testutil.FilePart{Field: "image", Filename: "", Data: []byte("hi")}

	tests := []struct {
		name string
		path string
		file *testutil.FilePart
		want map[string]any
	}{
		{"social missing", "/social-media", nil, map[string]any{"success": false, "error": "No image file provided"}},
		{"social blank", "/social-media", &blank, map[string]any{"success": false, "error": "No selected file"}},
		{"social type", "/social-media", &txt, map[string]any{"success": false, "error": "Invalid file type. Please upload a PNG, JPG, JPEG, or GIF"}},
		{"seo missing", "/seo", nil, map[string]any{"success": false, "error": "No image file provided", "code": "NO_IMAGE"}},
		{"seo blank", "/seo", &blank, map[string]any{"success": false, "error": "No selected file", "code": "EMPTY_FILE"}},
		{"seo type", "/seo", &txt, map[string]any{"success": false, "error": "Invalid file type. Please upload a PNG, JPG, JPEG, or GIF", "code": "INVALID_TYPE"}},
		{"general missing", "/api/analyze/general", nil, map[string]any{"error": "No image file provided"}},
		{"analyzer missing", "/image-analyzer", nil, map[string]any{"success": false, "error": "No image file provided", "code": "NO_INPUT"}},
		{"vision missing", "/api/social-media/analyze", nil, map[string]any{"success": false, "error": "No image file provided", "error_code": "NO_FILE"}},
		{"vision blank", "/api/social-media/analyze", &blank, map[string]any{"success": false, "error": "No image selected", "error_code": "NO_FILE"}},
		{"vision type", "/api/social-media/analyze", &txt, map[string]any{"success": false, "error": "Invalid file type. Supported formats: PNG, JPEG, GIF", "error_code": "INVALID_FILE_TYPE"}},
		{"medical missing", "/api/analyze-medical-image", &txt, map[string]any{"success": false, "error": "No file uploaded"}},
		{"advanced type", "/advanced-analysis", &txt, map[string]any{"success": false, "error": "Invalid file type. Please upload a PNG, JPG, or JPEG"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var files []testutil.FilePart
			if tt.file != nil {
				files = append(files, *tt.file)
			}
			code, body := post(t, engine, testutil.MultipartRequest(t, tt.path, nil, files...))
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Equal(t, tt.want, body)
		})
	}
}

func TestMedical_AcceptsMedicalExtensions(t *testing.T) {
	a := &fakeAnalyzer{}
	engine := newEngine(t, a, fakeSpeaker{})

	code, _ := post(t, engine, testutil.MultipartRequest(t, "/api/analyze-medical-image", nil,
		testutil.FilePart{Field: "file", Filename: "scan.dcm", Data: []byte("DICM")}))
	assert.Equal(t, http.StatusOK, code)

	code, body := post(t, engine, testutil.MultipartRequest(t, "/api/analyze-medical-image", nil,
		testutil.FilePart{Field: "file", Filename: "scan.exe", Data: []byte("MZ")}))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid file type. Please upload a valid medical image file.", body["error"])
}

func TestMagicValidation(t *testing.T) {
	engine := newEngine(t, &fakeAnalyzer{}, fakeSpeaker{})
	fake := testutil.FilePart{Field: "image", Filename: "fake.png", Data: []byte("this is not an image")}

	code, body := post(t, engine, testutil.MultipartRequest(t, "/seo", nil, fake))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, map[string]any{"success": false, "error": "Invalid image file", "code": "INVALID_IMAGE"}, body)

	code, body = post(t, engine, testutil.MultipartRequest(t, "/api/analyze/general", nil, fake))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, map[string]any{"error": "Invalid image file"}, body)
}

func TestRoutes_ProcessingErrors(t *testing.T) {
	a := &fakeAnalyzer{err: errors.Wrap(errors.KindLLM, "llm.generate", "generation failed", assert.AnError)}
	engine := newEngine(t, a, fakeSpeaker{})
	detail := "generation failed: " + assert.AnError.Error()

	tests := []struct {
		path  string
		field string
		want  map[string]any
	}{
		{"/social-media", "image", map[string]any{"success": false, "error": detail}},
		{"/seo", "image", map[string]any{"success": false, "error": "Error processing image. Please try again.", "code": "PROCESSING_ERROR"}},
		{"/api/analyze/general", "image", map[string]any{"error": "Error processing image: " + detail}},
		{"/image-analyzer", "image", map[string]any{"success": false, "error": "Error processing image. Please try again.", "code": "PROCESSING_ERROR"}},
		{"/api/social-media/analyze", "image", map[string]any{"success": false, "error": detail, "error_code": "PROCESSING_ERROR"}},
		{"/api/analyze-medical-image", "file", map[string]any{"success": false, "error": "Error processing image: " + detail}},
		{"/advanced-analysis", "image", map[string]any{"success": false, "error": "Error processing image: " + detail}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			code, body := post(t, engine, testutil.MultipartRequest(t, tt.path, nil, pngPart(t, tt.field, "x.png")))
			assert.Equal(t, http.StatusInternalServerError, code)
			assert.Equal(t, tt.want, body)
		})
	}
}

func ttsRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/text-to-speech", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestTextToSpeech(t *testing.T) {
	engine := newEngine(t, &fakeAnalyzer{}, fakeSpeaker{})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, ttsRequest(`{"text":"hello"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="speech.mp3"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "1500", rec.Header().Get("X-Audio-Duration-Ms"))
	assert.Equal(t, "ID3hello", rec.Body.String())

	for _, body := range []string{`{"text":""}`, `{}`, `not json`} {
		code, resp := post(t, engine, ttsRequest(body))
		assert.Equal(t, http.StatusBadRequest, code, body)
		assert.Equal(t, map[string]any{"error": "No text provided"}, resp)
	}
}

func TestTextToSpeech_EngineFailure(t *testing.T) {
	engine := newEngine(t, &fakeAnalyzer{}, fakeSpeaker{err: assert.AnError})
	code, body := post(t, engine, ttsRequest(`{"text":"hello"}`))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, map[string]any{"error": "Error generating speech. Please try again."}, body)
}
