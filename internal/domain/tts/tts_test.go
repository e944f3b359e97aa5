package tts

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "alttext-server-go/internal/platform/errors"
)

type fakeEngine struct {
	calls atomic.Int32
	audio []byte
	err   error
	voice string
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Synthesize(_ context.Context, _ string, voice string) ([]byte, error) {
	f.calls.Add(1)
	f.voice = voice
	return f.audio, f.err
}

func TestSpeak_RejectsBlankText(t *testing.T) {
	svc := NewService(&fakeEngine{}, Options{}, nil)
	_, err := svc.Speak(context.Background(), "   ")
	require.ErrorIs(t, err, ErrNoText)
	assert.True(t, perrors.IsKind(err, perrors.KindValidation))
}

func TestSpeak_CachesAudio(t *testing.T) {
	engine := &fakeEngine{audio: []byte("not really mp3")}
	svc := NewService(engine, Options{Voice: "en-GB-SoniaNeural"}, nil)

	for i := 0; i < 3; i++ {
		sp, err := svc.Speak(context.Background(), "hello world")
		require.NoError(t, err)
		assert.Equal(t, "mp3", sp.Format)
		assert.Equal(t, []byte("not really mp3"), sp.Audio)
		assert.Zero(t, sp.Duration)
	}
	assert.Equal(t, int32(1), engine.calls.Load())
	assert.Equal(t, "en-GB-SoniaNeural", engine.voice)
}

func TestSpeak_BreakerOpensAfterFailures(t *testing.T) {
	engine := &fakeEngine{err: errors.New("socket closed")}
	svc := NewService(engine, Options{MaxFailures: 2, RetryAfter: time.Hour}, nil)

	for i := 0; i < 2; i++ {
		_, err := svc.Speak(context.Background(), "hi")
		require.Error(t, err)
	}
	_, err := svc.Speak(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unavailable")
	assert.Equal(t, int32(2), engine.calls.Load())
}

func TestSpeak_EmptyAudioIsError(t *testing.T) {
	svc := NewService(&fakeEngine{}, Options{}, nil)
	_, err := svc.Speak(context.Background(), "hi")
	assert.Error(t, err)
}

func TestAudioCache_EvictsOldestAndExpires(t *testing.T) {
	c := newAudioCache(2, time.Minute)
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	c.set("a", []byte("a"))
	now = now.Add(time.Second)
	c.set("b", []byte("b"))
	now = now.Add(time.Second)
	c.set("c", []byte("c"))

	assert.Nil(t, c.get("a"))
	assert.Equal(t, []byte("b"), c.get("b"))

	now = now.Add(2 * time.Minute)
	assert.Nil(t, c.get("c"))
}

func TestDuration_InvalidData(t *testing.T) {
	_, err := Duration([]byte("garbage"))
	assert.Error(t, err)
}
