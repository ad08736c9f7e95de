package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
)

// extractODF returns one line per text:p or text:h element of an
// OpenDocument package (.odt, .odp, .ods). Spreadsheet cells hold their own
// paragraphs, so each non-empty cell becomes a line.
func extractODF(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract ODF: not a zip: %w", err)
	}
	for _, zf := range zr.File {
		if zf.Name != "content.xml" {
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			return "", fmt.Errorf("extract ODF: open content.xml: %w", err)
		}
		defer rc.Close()
		lines, err := odfText.lines(rc)
		if err != nil {
			return "", fmt.Errorf("extract ODF: %w", err)
		}
		return strings.Join(lines, "\n"), nil
	}
	return "", fmt.Errorf("extract ODF: content.xml not found")
}
