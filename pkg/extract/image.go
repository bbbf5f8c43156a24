package extract

import (
	"context"
	"fmt"

	"knowledge-base-be/internal/dto"
)

// extractImage is OCR-only: raster content has no text layer to fall back on.
func (e *Extractor) extractImage(ctx context.Context, data []byte, mimeType string) (*Result, error) {
	if e.ocr == nil {
		return nil, dto.NewFatalError("extract",
			fmt.Errorf("%w: image upload but no ocr engine configured", dto.ErrUnsupportedFormat))
	}

	text, err := e.ocr.Recognize(ctx, data, mimeType, 0)
	if err != nil {
		// Engine outages are transient; the retry budget decides when to stop.
		return nil, dto.NewTransientError("extract",
			fmt.Errorf("%w: ocr: %v", dto.ErrExtractionFailed, err))
	}

	b := &resultBuilder{}
	for _, para := range splitParagraphs(text) {
		b.append(para, 1, "", false)
	}
	res := b.result()
	res.Pages = 1
	return res, nil
}
