package youtube

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider returns a canned outcome and counts calls.
type fakeProvider struct {
	name ProviderName
	tr   Transcript
	err  error

	mu    sync.Mutex
	calls int
}

func (f *fakeProvider) Name() ProviderName { return f.name }

func (f *fakeProvider) FetchTranscript(context.Context, string) (Transcript, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.tr, f.err
}

func (f *fakeProvider) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func failing(name ProviderName, msg string) *fakeProvider {
	return &fakeProvider{name: name, err: unavailable(name, "%s", msg)}
}

func succeeding(name ProviderName, text, lang string) *fakeProvider {
	return &fakeProvider{name: name, tr: Transcript{Text: text, Language: lang}}
}

const topicTitle = "Deep dive into topic X"

const topicTranscript = "Hello world this is a sufficiently long transcript about topic X " +
	"where we take a deep look at why careful engineering beats clever shortcuts " +
	"when systems grow large."

func newTestClient(t *testing.T, md MetadataProvider, providers ...TranscriptProvider) *Client {
	t.Helper()
	opts := []Option{WithMetadataProvider(md)}
	for _, p := range providers {
		opts = append(opts, WithProvider(p))
	}
	c, err := NewClient(Settings{CacheDir: t.TempDir(), BreakerThreshold: 3, BreakerTimeout: time.Hour}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func titled(title string) MetadataProvider {
	return stubMetadata{md: Metadata{Title: title, ChannelName: "Chan"}}
}

func TestGetTranscript_EndToEnd(t *testing.T) {
	direct := failing(ProviderDirect, "no captions")
	supadata := succeeding(ProviderSupadata, topicTranscript, "en")
	decodo := succeeding(ProviderDecodo, topicTranscript, "en")
	c := newTestClient(t, titled(topicTitle), direct, supadata, decodo)
	ctx := context.Background()

	res, err := c.GetTranscript(ctx, "https://youtu.be/abc123", ParseProviderOrder("direct,supadata"))
	require.NoError(t, err)
	assert.Equal(t, "supadata", res.ProviderUsed)
	assert.Equal(t, "en", res.SourceLanguage)
	assert.Equal(t, "abc123", res.VideoID)
	assert.Equal(t, topicTitle, res.Title)
	assert.Equal(t, "Chan", res.ChannelName)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc123", res.URL)
	assert.Zero(t, decodo.Calls())

	cached, ok := c.Cache().Get(ctx, "abc123")
	require.True(t, ok)
	assert.Equal(t, res, cached)

	st := c.Breaker().State()
	assert.Equal(t, 1, st.FailureCount, "direct failure is recorded on the breaker")
}

func TestGetTranscript_FallbackOrderStopsAtFirstSuccess(t *testing.T) {
	a := failing(ProviderDirect, "blocked")
	b := succeeding(ProviderSupadata, topicTranscript, "en")
	cp := succeeding(ProviderDecodo, topicTranscript, "en")
	c := newTestClient(t, titled(topicTitle), a, b, cp)

	res, err := c.GetTranscript(context.Background(), "https://www.youtube.com/watch?v=abc123", nil)
	require.NoError(t, err)
	assert.Equal(t, "supadata", res.ProviderUsed)
	assert.Equal(t, 1, a.Calls())
	assert.Equal(t, 1, b.Calls())
	assert.Zero(t, cp.Calls())
}

func TestGetTranscript_CacheHitSkipsProviders(t *testing.T) {
	direct := succeeding(ProviderDirect, topicTranscript, "en")
	c := newTestClient(t, titled(topicTitle), direct)
	ctx := context.Background()

	first, err := c.GetTranscript(ctx, "https://youtu.be/abc123", nil)
	require.NoError(t, err)
	second, err := c.GetTranscript(ctx, "https://www.youtube.com/shorts/abc123", nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, direct.Calls())
}

func TestGetTranscript_ExhaustionListsEveryProvider(t *testing.T) {
	c := newTestClient(t, titled(topicTitle),
		failing(ProviderDirect, "no captions"),
		failing(ProviderSupadata, "quota exceeded"),
		failing(ProviderDecodo, "HTTP 500"),
	)

	_, err := c.GetTranscript(context.Background(), "https://youtu.be/abc123", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTranscriptUnavailable)
	assert.NotErrorIs(t, err, ErrLowQuality)
	assert.Equal(t,
		"all providers failed for abc123: direct: no captions; supadata: quota exceeded; decodo: HTTP 500",
		err.Error())

	var te *TranscriptError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, FailureExhausted, te.Kind)
	assert.Len(t, te.Failures, 3)

	_, ok := c.Cache().Get(context.Background(), "abc123")
	assert.False(t, ok)
}

func TestGetTranscript_InvalidURL(t *testing.T) {
	direct := succeeding(ProviderDirect, topicTranscript, "en")
	c := newTestClient(t, titled(topicTitle), direct)

	_, err := c.GetTranscript(context.Background(), "https://example.com/video", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidURL)
	assert.NotErrorIs(t, err, ErrTranscriptUnavailable)
	assert.Zero(t, direct.Calls())
}

func TestGetTranscript_QualityGateBlocksCaching(t *testing.T) {
	looping := strings.Repeat("never gonna give you up ", 12)
	direct := succeeding(ProviderDirect, looping, "en")
	supadata := succeeding(ProviderSupadata, topicTranscript, "en")
	c := newTestClient(t, titled("never gonna give you up"), direct, supadata)

	_, err := c.GetTranscript(context.Background(), "https://youtu.be/abc123", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTranscriptUnavailable)
	assert.ErrorIs(t, err, ErrLowQuality)
	assert.Contains(t, err.Error(), "content quality too low for abc123: excessive repetition")
	assert.Zero(t, supadata.Calls(), "a quality rejection is terminal")

	_, ok := c.Cache().Get(context.Background(), "abc123")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Breaker().State().FailureCount, "transport succeeded")
}

func TestGetTranscript_RelevanceGate(t *testing.T) {
	direct := succeeding(ProviderDirect, topicTranscript, "en")
	c := newTestClient(t, titled("Sourdough Baking Masterclass"), direct)

	_, err := c.GetTranscript(context.Background(), "https://youtu.be/abc123", nil)
	require.Error(t, err)
	var te *TranscriptError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, FailureIrrelevant, te.Kind)
	assert.Contains(t, err.Error(), "does not match video title")
	assert.ErrorIs(t, err, ErrLowQuality)
}

const videoTalkTranscript = "In this video we walk through a sufficiently long explanation of " +
	"why careful engineering beats clever shortcuts once systems grow large and teams grow with them."

func TestGetTranscript_PlaceholderMetadata(t *testing.T) {
	direct := succeeding(ProviderDirect, videoTalkTranscript, "en")
	c := newTestClient(t, stubMetadata{err: errors.New("quota")}, direct)

	res, err := c.GetTranscript(context.Background(), "https://youtu.be/abc123", nil)
	require.NoError(t, err)
	assert.Equal(t, "Video abc123", res.Title)
	assert.Equal(t, "Unknown Channel", res.ChannelName)
}

func TestGetTranscript_PlaceholderTitleStillGated(t *testing.T) {
	// "Video abc123": neither "video" nor "abc123" occurs in topicTranscript.
	direct := succeeding(ProviderDirect, topicTranscript, "en")
	c := newTestClient(t, stubMetadata{err: errors.New("quota")}, direct)

	_, err := c.GetTranscript(context.Background(), "https://youtu.be/abc123", nil)
	require.Error(t, err)
	var te *TranscriptError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, FailureIrrelevant, te.Kind)
	assert.Contains(t, te.Detail, "Video abc123")
	_, ok := c.Cache().Get(context.Background(), "abc123")
	assert.False(t, ok)
}

func TestGetTranscript_BreakerOpenSkipsDirect(t *testing.T) {
	direct := succeeding(ProviderDirect, topicTranscript, "en")
	supadata := failing(ProviderSupadata, "Supadata provider not configured (missing API key)")
	c := newTestClient(t, titled(topicTitle), direct, supadata)
	for range 3 {
		c.Breaker().RecordFailure()
	}
	require.True(t, c.Breaker().IsOpen())

	_, err := c.GetTranscript(context.Background(), "https://youtu.be/abc123", ParseProviderOrder("direct,supadata"))
	require.Error(t, err)
	assert.Zero(t, direct.Calls())
	assert.Contains(t, err.Error(), "direct: circuit breaker open; supadata: Supadata provider not configured")
	assert.Equal(t, 3, c.Breaker().State().FailureCount, "a skip is not a failure")
}

func TestGetTranscript_DirectOpensBreakerAfterThreshold(t *testing.T) {
	direct := failing(ProviderDirect, "blocked")
	supadata := succeeding(ProviderSupadata, topicTranscript, "en")
	c := newTestClient(t, titled(topicTitle), direct, supadata)
	ctx := context.Background()

	for i := range 3 {
		_, err := c.GetTranscript(ctx, "https://youtu.be/vid"+string(rune('a'+i)), nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, direct.Calls())
	assert.True(t, c.Breaker().IsOpen())

	_, err := c.GetTranscript(ctx, "https://youtu.be/vidz", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, direct.Calls(), "open breaker keeps direct untouched")
}

func TestGetTranscript_DirectSuccessClosesHalfOpen(t *testing.T) {
	direct := succeeding(ProviderDirect, topicTranscript, "en")
	c := newTestClient(t, titled(topicTitle), direct)
	clk := newFakeClock()
	c.Breaker().now = clk.Now
	for range 3 {
		c.Breaker().RecordFailure()
	}
	clk.Advance(2 * time.Hour)

	res, err := c.GetTranscript(context.Background(), "https://youtu.be/abc123", nil)
	require.NoError(t, err)
	assert.Equal(t, "direct", res.ProviderUsed)
	assert.Equal(t, BreakerClosed, c.Breaker().State().State)
}

func TestGetTranscript_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	direct := &cancelingProvider{cancel: cancel}
	supadata := succeeding(ProviderSupadata, topicTranscript, "en")
	c := newTestClient(t, titled(topicTitle), direct, supadata)

	_, err := c.GetTranscript(ctx, "https://youtu.be/abc123", nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, supadata.Calls())
	assert.Equal(t, 0, c.Breaker().State().FailureCount)
}

type cancelingProvider struct{ cancel context.CancelFunc }

func (p *cancelingProvider) Name() ProviderName { return ProviderDirect }

func (p *cancelingProvider) FetchTranscript(ctx context.Context, _ string) (Transcript, error) {
	p.cancel()
	return Transcript{}, unavailableErr(ProviderDirect, ctx.Err(), "request aborted")
}

func TestGetTranscript_EmptyTranscriptFallsThrough(t *testing.T) {
	direct := succeeding(ProviderDirect, "", "en")
	supadata := succeeding(ProviderSupadata, topicTranscript, "en")
	c := newTestClient(t, titled(topicTitle), direct, supadata)

	res, err := c.GetTranscript(context.Background(), "https://youtu.be/abc123", nil)
	require.NoError(t, err)
	assert.Equal(t, "supadata", res.ProviderUsed)
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(Settings{})
	assert.Error(t, err)

	_, err = NewClient(Settings{CacheDir: t.TempDir(), ProviderOrder: []ProviderName{"bogus"}})
	assert.Error(t, err)

	_, err = NewClient(Settings{CacheDir: t.TempDir(), CacheBackend: "mongo"})
	assert.Error(t, err)

	c, err := NewClient(Settings{CacheDir: t.TempDir(), CacheBackend: "sqlite"})
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, DefaultProviderOrder, c.DefaultOrder())
	assert.Equal(t, DefaultQuality, c.Quality())
	st, err := c.Cache().Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sqlite", st.Backend)
}
