package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name    string
		mime    string
		want    Format
		wantErr bool
	}{
		{"report.pdf", "", FormatPDF, false},
		{"anything.bin", "application/pdf", FormatPDF, false},
		{"notes.TXT", "", FormatText, false},
		{"readme.md", "", FormatMarkdown, false},
		{"data.csv", "text/csv", FormatCSV, false},
		{"cfg.json", "", FormatJSON, false},
		{"feed.xml", "text/xml; charset=utf-8", FormatXML, false},
		{"contract.docx", "", FormatDOCX, false},
		{"sheet.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", FormatXLSX, false},
		{"image.png", "image/png", "", true},
		{"noext", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Detect(tt.name, tt.mime)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractPlainText(t *testing.T) {
	text, err := Extract(strings.NewReader("hello world\nsecond line"), "doc.txt", "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "hello world\nsecond line", text)
}

func TestExtractEmptyInput(t *testing.T) {
	_, err := Extract(strings.NewReader(""), "doc.txt", "")
	assert.ErrorIs(t, err, ErrExtractionEmpty)

	_, err = Extract(strings.NewReader("   \n\t "), "doc.txt", "")
	assert.ErrorIs(t, err, ErrExtractionEmpty)
}

func TestExtractUnsupported(t *testing.T) {
	_, err := Extract(strings.NewReader("x"), "img.png", "image/png")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExtractCSV(t *testing.T) {
	csvData := "name,age\nalice,30\nbob,25\n"
	text, err := Extract(strings.NewReader(csvData), "people.csv", "")
	require.NoError(t, err)
	assert.Contains(t, text, "name\tage")
	assert.Contains(t, text, "alice\t30")
}

func TestExtractXML(t *testing.T) {
	xmlData := `<root><title>Annual Report</title><body>Revenue grew.</body></root>`
	text, err := Extract(strings.NewReader(xmlData), "report.xml", "")
	require.NoError(t, err)
	assert.Contains(t, text, "Annual Report")
	assert.Contains(t, text, "Revenue grew.")
	assert.NotContains(t, text, "<title>")
}

func buildDocx(t *testing.T, paragraphs []string) []byte {
	t.Helper()
	var runs strings.Builder
	for _, p := range paragraphs {
		fmt.Fprintf(&runs, `<w:p><w:r><w:t>%s</w:t></w:r></w:p>`, p)
	}
	doc := `<?xml version="1.0"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		runs.String() + `</w:body></w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte(doc))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtractDOCX(t *testing.T) {
	data := buildDocx(t, []string{"First paragraph of text.", "Second paragraph here."})

	text, err := Extract(bytes.NewReader(data), "contract.docx", "")
	require.NoError(t, err)
	assert.Equal(t, "First paragraph of text.\nSecond paragraph here.", text)
}

func TestExtractDOCXNotAZip(t *testing.T) {
	_, err := Extract(strings.NewReader("definitely not a zip"), "contract.docx", "")
	assert.Error(t, err)
}

func TestExtractXLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "product"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "price"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "widget"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", 9.99))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	text, extractErr := Extract(bytes.NewReader(buf.Bytes()), "products.xlsx", "")
	require.NoError(t, extractErr)
	assert.Contains(t, text, "Sheet: Sheet1")
	assert.Contains(t, text, "product\tprice")
	assert.Contains(t, text, "widget")
}

func TestPrepareGates(t *testing.T) {
	t.Run("too short", func(t *testing.T) {
		_, err := Prepare("tiny document")
		assert.ErrorIs(t, err, ErrTooShort)
	})

	t.Run("too repetitive", func(t *testing.T) {
		// 40 lines, 8 distinct long values: ratio 0.2. Lines are longer
		// than the denoise cutoff so they survive into the gate.
		var lines []string
		for i := 0; i < 40; i++ {
			lines = append(lines, fmt.Sprintf("repetitive resume content block variant %d padded with many extra words", i%8))
		}
		_, err := Prepare(strings.Join(lines, "\n"))
		assert.ErrorIs(t, err, ErrTooRepetitive)
	})

	t.Run("accepts normal prose", func(t *testing.T) {
		var b strings.Builder
		for i := 0; i < 20; i++ {
			fmt.Fprintf(&b, "Sentence number %d talks about a distinct topic with its own words.\n", i)
		}
		text, err := Prepare(b.String())
		require.NoError(t, err)
		assert.Greater(t, len(text), MinTextChars)
	})
}

func TestTruncateUTF8(t *testing.T) {
	s := "héllo wörld"
	out := truncateUTF8(s, 3)
	assert.LessOrEqual(t, len(out), 3)
	assert.True(t, strings.HasPrefix(s, out))

	// Never splits a multi-byte rune.
	out = truncateUTF8("é", 1)
	assert.Equal(t, "", out)
}
