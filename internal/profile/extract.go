package profile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrEmptyDocument     = errors.New("document has no text")
)

var textExtensions = map[string]bool{
	".txt":      true,
	".text":     true,
	".md":       true,
	".markdown": true,
}

// Extract returns the text of an uploaded document. The format is chosen by the
// file extension: PDF, or UTF-8 text where invalid bytes are replaced.
func Extract(filename string, content []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	var text string
	switch {
	case ext == ".pdf":
		extracted, err := extractPDF(content)
		if err != nil {
			return "", fmt.Errorf("read pdf %s: %w", filename, err)
		}
		text = extracted
	case textExtensions[ext]:
		text = decodeText(content)
	default:
		return "", fmt.Errorf("%q: %w", filename, ErrUnsupportedFormat)
	}

	text = normalize(text)
	if text == "" {
		return "", fmt.Errorf("%q: %w", filename, ErrEmptyDocument)
	}

	return text, nil
}

// ExtractFile reads and extracts a document from disk.
func ExtractFile(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return Extract(filepath.Base(path), content)
}

func extractPDF(content []byte) (text string, err error) {
	// The parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func decodeText(content []byte) string {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	return strings.ToValidUTF8(string(content), "�")
}

// normalize drops NUL bytes and trailing spaces and keeps at most one blank line in a row.
func normalize(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")
	text = strings.ReplaceAll(text, "\r\n", "\n")

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, line)
	}

	return strings.TrimSpace(strings.Join(out, "\n"))
}
