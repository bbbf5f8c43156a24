package extract

import (
	"bytes"
	"fmt"
	"strings"

	"knowledge-base-be/internal/dto"

	"code.sajari.com/docconv"
)

// extractOffice handles the word-processor and presentation formats through
// docconv, which unpacks the XML containers without external tooling.
func (e *Extractor) extractOffice(data []byte, mimeType string) (*Result, error) {
	resp, err := docconv.Convert(bytes.NewReader(data), mimeType, true)
	if err != nil {
		return nil, dto.NewFatalError("extract",
			fmt.Errorf("%w: %v", dto.ErrExtractionFailed, err))
	}

	b := &resultBuilder{}
	section := ""
	for _, para := range splitParagraphs(resp.Body) {
		// Short standalone lines in office bodies are usually headings; keep
		// them as the running section for citation metadata.
		if isHeadingLike(para) {
			section = strings.TrimSpace(para)
		}
		b.append(para, 0, section, false)
	}

	res := b.result()
	for k, v := range resp.Meta {
		res.Metadata[k] = v
	}
	return res, nil
}

func isHeadingLike(para string) bool {
	trimmed := strings.TrimSpace(para)
	return len(trimmed) > 0 && len(trimmed) <= 80 && !strings.Contains(trimmed, "\n") &&
		!strings.HasSuffix(trimmed, ".")
}
