package extract

import (
	"bytes"
	"fmt"
	"strings"

	"knowledge-base-be/internal/dto"

	"github.com/xuri/excelize/v2"
)

// extractSpreadsheet flattens each sheet into one tab-separated atomic block,
// so the chunker never cuts through the middle of a table.
func (e *Extractor) extractSpreadsheet(data []byte) (*Result, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, dto.NewFatalError("extract",
			fmt.Errorf("%w: %v", dto.ErrExtractionFailed, err))
	}
	defer f.Close()

	b := &resultBuilder{}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, dto.NewFatalError("extract",
				fmt.Errorf("%w: sheet %s: %v", dto.ErrExtractionFailed, sheet, err))
		}

		var lines []string
		for _, row := range rows {
			line := strings.TrimRight(strings.Join(row, "\t"), "\t ")
			if line != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) == 0 {
			continue
		}
		b.append(strings.Join(lines, "\n"), 0, sheet, true)
	}

	return b.result(), nil
}
