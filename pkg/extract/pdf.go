package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"knowledge-base-be/internal/dto"

	pdf "github.com/ledongthuc/pdf"
)

// extractPDF walks the document page by page. A page yielding near-zero text
// is treated as a scan and routed through the OCR engine; OCR failures on
// individual pages are non-fatal as long as some text survives overall.
func (e *Extractor) extractPDF(ctx context.Context, data []byte) (*Result, error) {
	reader := bytes.NewReader(data)
	doc, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		// A file we cannot even open is permanently corrupt; fail fast.
		return nil, dto.NewFatalError("extract",
			fmt.Errorf("%w: corrupt pdf: %v", dto.ErrExtractionFailed, err))
	}

	b := &resultBuilder{}
	total := doc.NumPage()
	var ocrDiagnostics []string

	for page := 1; page <= total; page++ {
		p := doc.Page(page)
		if p.V.IsNull() {
			continue
		}

		content, err := p.GetPlainText(nil)
		if err != nil {
			ocrDiagnostics = append(ocrDiagnostics, fmt.Sprintf("page %d: %v", page, err))
			content = ""
		}

		if len([]rune(strings.TrimSpace(content))) < ocrMinPageRunes && e.ocr != nil {
			recognized, ocrErr := e.ocr.Recognize(ctx, data, MimePDF, page)
			if ocrErr != nil {
				// Keep whatever the text layer gave us and carry the engine
				// diagnostic; the document only fails if nothing survives.
				ocrDiagnostics = append(ocrDiagnostics, fmt.Sprintf("page %d ocr: %v", page, ocrErr))
			} else if strings.TrimSpace(recognized) != "" {
				content = recognized
			}
		}

		for _, para := range splitParagraphs(content) {
			b.append(para, page, "", false)
		}
	}

	res := b.result()
	res.Pages = total
	if len(ocrDiagnostics) > 0 {
		res.Metadata["ocr_diagnostics"] = strings.Join(ocrDiagnostics, "; ")
	}

	if strings.TrimSpace(res.Text) == "" {
		cause := "no extractable text"
		if len(ocrDiagnostics) > 0 {
			cause = fmt.Sprintf("no extractable text (%s)", strings.Join(ocrDiagnostics, "; "))
		}
		// OCR trouble may be a transient engine outage, so leave this
		// retryable instead of failing the document outright.
		return nil, dto.NewTransientError("extract",
			fmt.Errorf("%w: %s", dto.ErrExtractionFailed, cause))
	}
	return res, nil
}

func splitParagraphs(text string) []string {
	var paras []string
	for _, p := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(p) != "" {
			paras = append(paras, p)
		}
	}
	return paras
}
