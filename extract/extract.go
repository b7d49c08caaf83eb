// Package extract turns uploaded file bytes into the plain text that gets
// embedded. The format is chosen by file extension.
package extract

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

var ErrUnsupportedContent = errors.New("unsupported content")

// Text extracts plain text from a document named filename.
func Text(filename string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return PDF(data)

	case ".csv":
		return CSV(data)

	default:
		return Plain(data)
	}
}

// Plain accepts any valid UTF-8 payload as-is.
func Plain(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: not valid UTF-8 text", ErrUnsupportedContent)
	}

	return string(data), nil
}

// CSV flattens every record into one line of comma-separated cells.
func CSV(data []byte) (string, error) {
	text, err := Plain(data)
	if err != nil {
		return "", err
	}

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var lines []string
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrUnsupportedContent, err.Error())
		}

		lines = append(lines, strings.Join(record, ", "))
	}

	return strings.Join(lines, "\n"), nil
}

// PDF returns the plain text layer of a PDF. A PDF without extractable
// text yields an empty string.
func PDF(data []byte) (text string, err error) {
	if len(data) == 0 {
		return "", nil
	}

	// the pdf reader panics on some malformed object streams
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: malformed pdf: %v", ErrUnsupportedContent, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedContent, err.Error())
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedContent, err.Error())
	}

	out, err := io.ReadAll(plain)
	if err != nil {
		return "", err
	}

	return string(out), nil
}
