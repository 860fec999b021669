// Package extract converts binary documents into plain text and applies
// the extraction quality gates that protect the index from junk content.
package extract

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/nickcecere/lrag/internal/textutil"
)

// Extraction limits and gate thresholds. Bounded reads stop at whichever
// limit is hit first.
const (
	MaxReadBytes = 7_500_000
	MaxTextChars = 250_000
	MinTextChars = 350

	MinLinesForRepetitionGate = 10
	MaxRepetitionRatio        = 0.35
)

// Extraction failure kinds. Workers persist these into the document
// record's error field.
var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrExtractionEmpty   = errors.New("extraction produced no text")
	ErrTooShort          = errors.New("extracted text too short")
	ErrTooRepetitive     = errors.New("extracted text too repetitive")
)

// Format identifies a supported document format.
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
	FormatXLSX     Format = "xlsx"
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatXML      Format = "xml"
)

// mimeFormats maps MIME types to formats. Dispatch tries MIME first,
// then the filename suffix.
var mimeFormats = map[string]Format{
	"application/pdf": FormatPDF,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": FormatDOCX,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       FormatXLSX,
	"text/plain":       FormatText,
	"text/markdown":    FormatMarkdown,
	"text/csv":         FormatCSV,
	"application/json": FormatJSON,
	"application/xml":  FormatXML,
	"text/xml":         FormatXML,
}

var suffixFormats = map[string]Format{
	".pdf":      FormatPDF,
	".docx":     FormatDOCX,
	".xlsx":     FormatXLSX,
	".txt":      FormatText,
	".text":     FormatText,
	".log":      FormatText,
	".md":       FormatMarkdown,
	".markdown": FormatMarkdown,
	".csv":      FormatCSV,
	".json":     FormatJSON,
	".xml":      FormatXML,
}

// Detect resolves the document format from a MIME hint and filename.
func Detect(name, mime string) (Format, error) {
	if mime != "" {
		// Parameters like "; charset=utf-8" are not part of the type.
		if idx := strings.IndexByte(mime, ';'); idx >= 0 {
			mime = mime[:idx]
		}
		if f, ok := mimeFormats[strings.ToLower(strings.TrimSpace(mime))]; ok {
			return f, nil
		}
	}
	if f, ok := suffixFormats[strings.ToLower(filepath.Ext(name))]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: name=%q mime=%q", ErrUnsupportedFormat, name, mime)
}

// Extract reads a document from r and returns its raw extracted text,
// bounded by MaxReadBytes and MaxTextChars. The text is not yet
// normalized or gated; see Prepare.
func Extract(r io.Reader, name, mime string) (string, error) {
	format, err := Detect(name, mime)
	if err != nil {
		return "", err
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxReadBytes))
	if err != nil {
		return "", fmt.Errorf("reading document: %w", err)
	}
	if len(data) == 0 {
		return "", ErrExtractionEmpty
	}

	var text string
	switch format {
	case FormatPDF:
		text, err = extractPDF(data)
	case FormatDOCX:
		text, err = extractDOCX(data)
	case FormatXLSX:
		text, err = extractXLSX(data)
	case FormatCSV:
		text, err = extractCSV(data)
	case FormatXML:
		text, err = extractXML(data)
	default: // text, markdown, json
		text = string(data)
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrExtractionEmpty
	}

	if len(text) > MaxTextChars {
		log.Debug("Truncating extracted text", "name", name, "chars", len(text), "limit", MaxTextChars)
		text = truncateUTF8(text, MaxTextChars)
	}
	return text, nil
}

// Prepare normalizes, denoises and quality-gates raw extracted text,
// returning the text the chunker should consume.
func Prepare(raw string) (string, error) {
	text := textutil.Normalize(raw)
	text = textutil.DropRepeatedLines(text)
	text = textutil.Normalize(text)

	if len(text) < MinTextChars {
		return "", fmt.Errorf("%w: %d chars (minimum %d)", ErrTooShort, len(text), MinTextChars)
	}
	ratio, lines := textutil.UniqueLineRatio(text)
	if lines >= MinLinesForRepetitionGate && ratio < MaxRepetitionRatio {
		return "", fmt.Errorf("%w: unique line ratio %.2f over %d lines", ErrTooRepetitive, ratio, lines)
	}
	return text, nil
}

// truncateUTF8 cuts s to at most max bytes without splitting a rune.
func truncateUTF8(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut]
}
