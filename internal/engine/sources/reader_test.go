package sources

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_vault/internal/engine/youtube"
)

type cannedTranscript struct{ text string }

func (c cannedTranscript) Name() youtube.ProviderName { return youtube.ProviderDirect }

func (c cannedTranscript) FetchTranscript(context.Context, string) (youtube.Transcript, error) {
	return youtube.Transcript{Text: c.text, Language: "en"}, nil
}

type cannedMetadata struct{}

func (cannedMetadata) FetchMetadata(context.Context, string) (youtube.Metadata, error) {
	return youtube.Metadata{Title: "Sourdough baking basics", ChannelName: "Kitchen Lab"}, nil
}

const breadTranscript = "Today we cover sourdough starters, hydration ratios, and baking " +
	"temperatures so that every loaf comes out with an open crumb and a crisp crust."

func TestReadDispatchesVideo(t *testing.T) {
	yt, err := youtube.NewClient(youtube.Settings{CacheDir: t.TempDir(), BreakerTimeout: time.Hour},
		youtube.WithProvider(cannedTranscript{text: breadTranscript}),
		youtube.WithMetadataProvider(cannedMetadata{}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = yt.Close() })

	r := &Reader{Videos: yt}
	c, err := r.Read(context.Background(), "https://youtu.be/bread42", []youtube.ProviderName{youtube.ProviderDirect})
	require.NoError(t, err)
	assert.Equal(t, KindVideo, c.Kind)
	assert.Equal(t, "Sourdough baking basics", c.Title)
	assert.Equal(t, "Kitchen Lab", c.Author)
	assert.Equal(t, "direct", c.Provider)
	assert.Equal(t, "https://www.youtube.com/watch?v=bread42", c.Source)
	assert.Equal(t, breadTranscript, c.Text)
}

func TestReadVideoWithoutClient(t *testing.T) {
	_, err := (&Reader{}).Read(context.Background(), "https://youtu.be/abc123", nil)
	assert.ErrorContains(t, err, "video client not configured")
}

func TestReadDispatchesFile(t *testing.T) {
	p := writeFile(t, "idea.md", "# Idea\n\nWrite it down.")
	c, err := (&Reader{}).Read(context.Background(), p, nil)
	require.NoError(t, err)
	assert.Equal(t, KindFile, c.Kind)
	assert.Equal(t, "Idea", c.Title)
}

func TestReadUnsupported(t *testing.T) {
	_, err := (&Reader{}).Read(context.Background(), "nothing here", nil)
	assert.ErrorIs(t, err, ErrUnsupportedSource)
}
