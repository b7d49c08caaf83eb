package extract

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlainText(t *testing.T) {
	assert := assert.New(t)

	text, err := Text("notes.txt", []byte("The quarterly revenue was $5M"))
	assert.NoError(err)
	assert.Equal("The quarterly revenue was $5M", text)

	text, err = Text("bom.md", []byte("\xef\xbb\xbfheading"))
	assert.NoError(err)
	assert.Equal("heading", text)
}

func TestInvalidUTF8(t *testing.T) {
	assert := assert.New(t)

	_, err := Text("blob.bin", []byte{0xff, 0xfe, 0xfd})
	assert.ErrorIs(err, ErrUnsupportedContent)
}

func TestCSV(t *testing.T) {
	assert := assert.New(t)

	input := "name,revenue\nacme,5M\nglobex,\"1,2M\"\n"

	text, err := Text("example.CSV", []byte(input))
	assert.NoError(err)
	assert.Equal("name, revenue\nacme, 5M\nglobex, 1,2M", text)
}

func TestPDFRejectsGarbage(t *testing.T) {
	assert := assert.New(t)

	_, err := Text("report.pdf", []byte("definitely not a pdf"))
	assert.ErrorIs(err, ErrUnsupportedContent)

	text, err := PDF(nil)
	assert.NoError(err)
	assert.Empty(text)
}

// onePagePDF renders text on a single page with a Helvetica font.
func onePagePDF(text string) []byte {
	content := "BT /F1 12 Tf 72 712 Td (" + text + ") Tj ET"

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, offset := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offset)
	}

	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	return buf.Bytes()
}

func TestPDFText(t *testing.T) {
	assert := assert.New(t)

	text, err := Text("report.PDF", onePagePDF("The quarterly revenue was 5M"))
	assert.NoError(err)
	assert.Contains(text, "The quarterly revenue was 5M")
}
