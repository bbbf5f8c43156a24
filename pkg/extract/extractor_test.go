package extract

import (
	"context"
	"errors"
	"testing"

	"knowledge-base-be/internal/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractEmptyFileIsFatal(t *testing.T) {
	e := NewExtractor(nil)
	_, err := e.Extract(context.Background(), nil, MimeText, "empty.txt")
	require.Error(t, err)
	assert.ErrorIs(t, err, dto.ErrExtractionFailed)
	assert.True(t, dto.IsFatal(err))
}

func TestExtractUnsupportedFormatIsFatal(t *testing.T) {
	e := NewExtractor(nil)
	_, err := e.Extract(context.Background(), []byte{0x1f, 0x8b, 0x08, 0x00}, "application/gzip", "archive.gz")
	require.Error(t, err)
	assert.ErrorIs(t, err, dto.ErrUnsupportedFormat)
	assert.True(t, dto.IsFatal(err))
}

func TestExtractWhitespaceOnlyTextIsFatal(t *testing.T) {
	e := NewExtractor(nil)
	_, err := e.Extract(context.Background(), []byte("   \n\n\t  "), MimeText, "blank.txt")
	require.Error(t, err)
	assert.ErrorIs(t, err, dto.ErrExtractionFailed)
}

func TestExtractPlainText(t *testing.T) {
	e := NewExtractor(nil)
	content := "First paragraph of the handbook.\n\nSecond paragraph with more detail."

	res, err := e.Extract(context.Background(), []byte(content), MimeText, "handbook.txt")
	require.NoError(t, err)

	assert.Equal(t, content, res.Text)
	require.Len(t, res.Blocks, 2)
	assert.Equal(t, 0, res.Blocks[0].Start)
	assert.Equal(t, res.Blocks[1].End, len([]rune(res.Text)))
	assert.Equal(t, "en", res.Language)
}

func TestExtractUndecidableLanguage(t *testing.T) {
	e := NewExtractor(nil)
	// No letters at all: lingua cannot classify this.
	content := "4711 0815 9000 12345 67890"

	res, err := e.Extract(context.Background(), []byte(content), MimeText, "numbers.txt")
	require.NoError(t, err)
	assert.Equal(t, "und", res.Language)
}

func TestExtractMarkdownSections(t *testing.T) {
	e := NewExtractor(nil)
	content := "# Onboarding\n\nWelcome to the company, please read this carefully.\n\n## Security\n\nNever share your credentials with anyone else."

	res, err := e.Extract(context.Background(), []byte(content), "", "guide.md")
	require.NoError(t, err)
	require.Len(t, res.Blocks, 4)

	assert.Equal(t, "Onboarding", res.Blocks[0].Section)
	assert.Equal(t, "Onboarding", res.Blocks[1].Section)
	assert.Equal(t, "Security", res.Blocks[2].Section)
	assert.Equal(t, "Security", res.Blocks[3].Section)
}

func TestExtractTextNormalizesCRLF(t *testing.T) {
	e := NewExtractor(nil)
	res, err := e.Extract(context.Background(), []byte("line one\r\n\r\nline two of this file"), MimeText, "dos.txt")
	require.NoError(t, err)
	assert.NotContains(t, res.Text, "\r")
	assert.Len(t, res.Blocks, 2)
}

func TestExtractImageWithoutOCRFails(t *testing.T) {
	e := NewExtractor(nil)
	png := []byte("\x89PNG\r\n\x1a\nrest-of-image")
	_, err := e.Extract(context.Background(), png, MimePng, "scan.png")
	require.Error(t, err)

	var pe *dto.PipelineError
	assert.True(t, errors.As(err, &pe))
}

func TestResolveMime(t *testing.T) {
	tests := []struct {
		name     string
		declared string
		filename string
		data     []byte
		want     string
	}{
		{"declared wins", MimePDF, "file.txt", []byte("x"), MimePDF},
		{"unknown declared falls to extension", "application/octet-stream", "report.docx", []byte("PK\x03\x04"), MimeDocx},
		{"markdown extension", "", "notes.md", []byte("# hi"), MimeMarkdown},
		{"xlsx extension beats zip sniff", "", "sheet.xlsx", []byte("PK\x03\x04"), MimeXlsx},
		{"sniffed pdf", "", "unnamed", []byte("%PDF-1.7 ..."), MimePDF},
		{"sniffed text", "", "unnamed", []byte("just some plain words"), "text/plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveMime(tt.declared, tt.filename, tt.data))
		})
	}
}
