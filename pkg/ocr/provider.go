// Package ocr recognizes text in image-only content via an external engine.
package ocr

import "context"

// Provider is the OCR engine contract. Page selects a single page for paged
// formats; 0 means the whole input. Implementations must be safe for
// concurrent use by many ingestion workers.
type Provider interface {
	Recognize(ctx context.Context, data []byte, mimeType string, page int) (string, error)
}
