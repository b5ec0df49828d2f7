package sources

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/anatolykoptev/go_vault/internal/engine"
)

// textExts are the local file types ReadFile accepts.
var textExts = map[string]bool{".md": true, ".markdown": true, ".txt": true}

// ReadFile reads a local markdown or text file. The title is the first
// markdown heading, else the file name.
func ReadFile(p string) (*Content, error) {
	engine.IncrFileReads()
	p = expandHome(p)
	abs, err := filepath.Abs(p)
	if err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(abs))
	if !textExts[ext] {
		return nil, fmt.Errorf("%w: file type %q (want .md, .markdown or .txt)", ErrUnsupportedSource, ext)
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%s is a directory", abs)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%s is not valid UTF-8", abs)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, fmt.Errorf("%w: %s is empty", ErrNoText, abs)
	}

	title := firstHeading(text)
	if title == "" {
		title = titleFromName(abs)
	}
	return &Content{
		Kind:     KindFile,
		Source:   "file://" + abs,
		Title:    title,
		SiteName: "Local Filesystem",
		Text:     text,
		Provider: "file",
	}, nil
}

// firstHeading returns the text of the first ATX heading, skipping YAML front matter.
func firstHeading(text string) string {
	sc := bufio.NewScanner(strings.NewReader(text))
	inFront := false
	for i := 0; sc.Scan(); i++ {
		line := strings.TrimSpace(sc.Text())
		if i == 0 && line == "---" {
			inFront = true
			continue
		}
		if inFront {
			if line == "---" {
				inFront = false
			}
			continue
		}
		if strings.HasPrefix(line, "#") {
			if h := strings.TrimSpace(strings.TrimLeft(line, "#")); h != "" {
				return h
			}
		}
	}
	return ""
}

// titleFromName turns "my_notes-2024.md" into "My Notes 2024".
func titleFromName(p string) string {
	stem := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
	words := strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(stem))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = strings.ToUpper(string(r)) + strings.ToLower(w[size:])
	}
	return strings.Join(words, " ")
}
