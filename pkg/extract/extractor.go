// Package extract turns raw uploaded bytes into plain text plus structural
// metadata, falling back to OCR for image-only content.
package extract

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"knowledge-base-be/internal/dto"
	"knowledge-base-be/pkg/chunker"
	"knowledge-base-be/pkg/ocr"

	"github.com/pemistahl/lingua-go"
)

// Result is the extractor output: the canonical text, the structural blocks
// addressing it by rune offsets, and whatever document-level metadata the
// format exposed.
type Result struct {
	Text     string
	Blocks   []chunker.Block
	Pages    int
	Language string // ISO 639-1, auto-detected; "und" when undecidable
	Metadata map[string]string
}

const (
	MimePDF      = "application/pdf"
	MimeDocx     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimePptx     = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	MimeXlsx     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MimeOdt      = "application/vnd.oasis.opendocument.text"
	MimeRtf      = "application/rtf"
	MimeText     = "text/plain"
	MimeMarkdown = "text/markdown"
	MimePng      = "image/png"
	MimeJpeg     = "image/jpeg"
	MimeTiff     = "image/tiff"
)

// ocrMinPageRunes is the "near-zero text" threshold below which a PDF page is
// assumed to be a scan and handed to the OCR engine.
const ocrMinPageRunes = 16

type Extractor struct {
	ocr      ocr.Provider
	detector lingua.LanguageDetector
}

func NewExtractor(ocrProvider ocr.Provider) *Extractor {
	// Detection restricted to the languages the corpus actually carries keeps
	// the lingua model footprint small and the classification fast.
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(
			lingua.English,
			lingua.German,
			lingua.French,
			lingua.Spanish,
			lingua.Italian,
			lingua.Dutch,
			lingua.Portuguese,
			lingua.Indonesian,
		).
		Build()

	return &Extractor{
		ocr:      ocrProvider,
		detector: detector,
	}
}

// Extract routes the blob to a format handler chosen from the declared MIME
// type, the filename extension and content sniffing, in that order of trust.
func (e *Extractor) Extract(ctx context.Context, data []byte, declaredMime, filename string) (*Result, error) {
	if len(data) == 0 {
		return nil, dto.NewFatalError("extract", fmt.Errorf("%w: empty file", dto.ErrExtractionFailed))
	}

	mimeType := ResolveMime(declaredMime, filename, data)

	var (
		res *Result
		err error
	)
	switch mimeType {
	case MimePDF:
		res, err = e.extractPDF(ctx, data)
	case MimeDocx, MimePptx, MimeOdt, MimeRtf:
		res, err = e.extractOffice(data, mimeType)
	case MimeXlsx:
		res, err = e.extractSpreadsheet(data)
	case MimeText, MimeMarkdown:
		res, err = e.extractText(data, mimeType)
	case MimePng, MimeJpeg, MimeTiff:
		res, err = e.extractImage(ctx, data, mimeType)
	default:
		return nil, dto.NewFatalError("extract",
			fmt.Errorf("%w: %s", dto.ErrUnsupportedFormat, mimeType))
	}
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(res.Text) == "" {
		return nil, dto.NewFatalError("extract",
			fmt.Errorf("%w: no usable text recovered", dto.ErrExtractionFailed))
	}

	if lang, ok := e.detector.DetectLanguageOf(res.Text); ok {
		res.Language = strings.ToLower(lang.IsoCode639_1().String())
	} else {
		res.Language = "und"
	}
	return res, nil
}

// ResolveMime picks the effective MIME type. Extensions beat sniffing for the
// zip-container office formats, which all sniff as application/zip.
func ResolveMime(declared, filename string, data []byte) string {
	if isSupportedMime(declared) {
		return declared
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return MimePDF
	case ".docx":
		return MimeDocx
	case ".pptx":
		return MimePptx
	case ".xlsx":
		return MimeXlsx
	case ".odt":
		return MimeOdt
	case ".rtf":
		return MimeRtf
	case ".md", ".markdown":
		return MimeMarkdown
	case ".txt":
		return MimeText
	case ".png":
		return MimePng
	case ".jpg", ".jpeg":
		return MimeJpeg
	case ".tif", ".tiff":
		return MimeTiff
	}

	sniffed := http.DetectContentType(data)
	if i := strings.Index(sniffed, ";"); i >= 0 {
		sniffed = sniffed[:i]
	}
	return sniffed
}

func isSupportedMime(m string) bool {
	switch m {
	case MimePDF, MimeDocx, MimePptx, MimeXlsx, MimeOdt, MimeRtf,
		MimeText, MimeMarkdown, MimePng, MimeJpeg, MimeTiff:
		return true
	}
	return false
}

// resultBuilder accumulates text and blocks while tracking rune offsets.
// Blocks are separated by a blank line that belongs to no block.
type resultBuilder struct {
	sb      strings.Builder
	runeLen int
	blocks  []chunker.Block
}

func (b *resultBuilder) append(text string, page int, section string, atomic bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if b.runeLen > 0 {
		b.sb.WriteString("\n\n")
		b.runeLen += 2
	}
	start := b.runeLen
	b.sb.WriteString(text)
	b.runeLen += len([]rune(text))

	b.blocks = append(b.blocks, chunker.Block{
		Start:   start,
		End:     b.runeLen,
		Page:    page,
		Section: section,
		Atomic:  atomic,
	})
}

func (b *resultBuilder) result() *Result {
	return &Result{
		Text:     b.sb.String(),
		Blocks:   b.blocks,
		Metadata: map[string]string{},
	}
}
