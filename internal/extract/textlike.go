package extract

import (
	"bytes"
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// extractCSV parses records and renders them as tab-separated lines so
// column structure survives into chunks.
func extractCSV(data []byte) (string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var b strings.Builder
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Fall back to the raw bytes on malformed CSV rather than
			// losing the document.
			return string(data), nil
		}
		b.WriteString(strings.Join(record, "\t"))
		b.WriteString("\n")
	}
	return b.String(), nil
}

// extractXML strips markup and keeps character data, one element's text
// per line.
func extractXML(data []byte) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.Strict = false

	var b strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			if b.Len() == 0 {
				return "", fmt.Errorf("parsing xml: %w", err)
			}
			break
		}
		if cd, ok := tok.(xml.CharData); ok {
			text := strings.TrimSpace(string(cd))
			if text != "" {
				b.WriteString(text)
				b.WriteString("\n")
			}
		}
	}
	return b.String(), nil
}
