package sources

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_vault/internal/engine"
)

// buildPDF writes a minimal PDF with one text line per page and an Info
// dictionary, computing xref offsets as it goes.
func buildPDF(title string, pages ...string) []byte {
	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	const firstPage = 5
	var kids []string
	for i := range pages {
		kids = append(kids, fmt.Sprintf("%d 0 R", firstPage+2*i))
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", joinSpace(kids), len(pages)))
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")
	obj(fmt.Sprintf("<< /Title (%s) /Author (Vault Tester) >>", title))
	for i, text := range pages {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", firstPage+2*i+1))
		stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R /Info 4 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func joinSpace(s []string) string {
	var b bytes.Buffer
	for i, v := range s {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(v)
	}
	return b.String()
}

func TestReadPDFLocal(t *testing.T) {
	p := writeFile(t, "paper.pdf", string(buildPDF("Circuit Breakers", "Hello PDF page one", "Second page text")))
	r := &Reader{}

	c, err := r.ReadPDF(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, KindPDF, c.Kind)
	assert.Equal(t, "Circuit Breakers", c.Title)
	assert.Equal(t, "Vault Tester", c.Author)
	assert.Equal(t, 2, c.Pages)
	assert.False(t, c.Truncated)
	assert.Contains(t, c.Text, "Hello PDF page one")
	assert.Contains(t, c.Text, "Second page text")
}

func TestReadPDFPageLimit(t *testing.T) {
	p := writeFile(t, "long.pdf", string(buildPDF("Long", "first", "second", "third")))
	r := &Reader{MaxPDFPages: 2}

	c, err := r.ReadPDF(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Pages)
	assert.True(t, c.Truncated)
	assert.NotContains(t, c.Text, "third")
}

func TestReadPDFSizeLimit(t *testing.T) {
	p := writeFile(t, "big.pdf", string(buildPDF("Big", "content")))
	r := &Reader{MaxPDFBytes: 16}

	_, err := r.ReadPDF(context.Background(), p)
	assert.ErrorIs(t, err, engine.ErrTooLarge)
}

func TestReadPDFNotAPDF(t *testing.T) {
	p := writeFile(t, "fake.pdf", "<html>nope</html>")
	_, err := (&Reader{}).ReadPDF(context.Background(), p)
	assert.ErrorContains(t, err, "not a PDF")
}

func TestReadPDFRemote(t *testing.T) {
	doc := buildPDF("Remote Paper", "Downloaded text")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(doc)
	}))
	defer srv.Close()

	c, err := (&Reader{}).ReadPDF(context.Background(), srv.URL+"/paper.pdf")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/paper.pdf", c.Source)
	assert.Equal(t, "Remote Paper", c.Title)
	assert.Contains(t, c.Text, "Downloaded text")
}

func TestReadPDFRemoteFallsBackToScraper(t *testing.T) {
	srv, _ := countingServer(t, "text/plain", "")
	scraper := &stubScraper{title: "Scraped Paper", text: "scraped body"}
	r := &Reader{Scraper: scraper}

	c, err := r.ReadPDF(context.Background(), srv.URL+"/missing/paper.pdf")
	require.NoError(t, err)
	assert.Equal(t, "scrape", c.Provider)
	assert.Equal(t, "Scraped Paper", c.Title)
	assert.EqualValues(t, 1, scraper.calls.Load())

	_, err = (&Reader{}).ReadPDF(context.Background(), srv.URL+"/missing/other.pdf")
	assert.True(t, engine.IsNotFound(err))
}
