package extract

import "strings"

// extractText handles plain text and markdown. Markdown headings become the
// running section for downstream citations.
func (e *Extractor) extractText(data []byte, mimeType string) (*Result, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")

	b := &resultBuilder{}
	section := ""
	for _, para := range splitParagraphs(text) {
		if mimeType == MimeMarkdown {
			if h, ok := markdownHeading(para); ok {
				section = h
			}
		}
		b.append(para, 0, section, false)
	}
	return b.result(), nil
}

func markdownHeading(para string) (string, bool) {
	line := strings.TrimSpace(para)
	if !strings.HasPrefix(line, "#") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimLeft(line, "# ")), true
}
