package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
)

// ooxmlFormat describes where an Office Open XML package keeps its text.
type ooxmlFormat struct {
	name string
	// mainContentType identifies the main part in [Content_Types].xml.
	mainContentType string
	defaultPart     string
	// partPrefix, when set, selects every numbered part under it instead of
	// a single main part (slides).
	partPrefix string
}

var (
	docxFormat = ooxmlFormat{
		name:            "DOCX",
		mainContentType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml",
		defaultPart:     "word/document.xml",
	}
	pptxFormat = ooxmlFormat{
		name:       "PPTX",
		partPrefix: "ppt/slides/slide",
	}
)

const contentTypesPath = "[Content_Types].xml"

type contentTypes struct {
	Overrides []struct {
		PartName    string `xml:"PartName,attr"`
		ContentType string `xml:"ContentType,attr"`
	} `xml:"Override"`
}

// extractOOXML returns one line per paragraph of a .docx or .pptx package.
// Slides are read in slide-number order and separated by a blank line.
func extractOOXML(content []byte, f ooxmlFormat) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract %s: not a zip: %w", f.name, err)
	}

	parts := f.parts(zr)
	if len(parts) == 0 {
		if f.partPrefix != "" {
			return "", nil
		}
		return "", fmt.Errorf("extract %s: %s not found", f.name, f.defaultPart)
	}

	var sections []string
	for _, zf := range parts {
		rc, err := zf.Open()
		if err != nil {
			return "", fmt.Errorf("extract %s: open %s: %w", f.name, zf.Name, err)
		}
		lines, err := ooxmlWordText.lines(rc)
		_ = rc.Close()
		if err != nil {
			return "", fmt.Errorf("extract %s: %s: %w", f.name, zf.Name, err)
		}
		if len(lines) > 0 {
			sections = append(sections, strings.Join(lines, "\n"))
		}
	}
	return strings.Join(sections, "\n\n"), nil
}

func (f ooxmlFormat) parts(zr *zip.Reader) []*zip.File {
	if f.partPrefix != "" {
		return numberedParts(zr, f.partPrefix)
	}
	want := mainPartName(zr, f.mainContentType)
	if want == "" {
		want = f.defaultPart
	}
	for _, zf := range zr.File {
		if zf.Name == want {
			return []*zip.File{zf}
		}
	}
	return nil
}

// mainPartName finds the part registered with contentType, without the
// leading slash, or "" when absent.
func mainPartName(zr *zip.Reader, contentType string) string {
	for _, zf := range zr.File {
		if zf.Name != contentTypesPath {
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			return ""
		}
		defer rc.Close()
		var ct contentTypes
		if err := xml.NewDecoder(io.LimitReader(rc, 4<<20)).Decode(&ct); err != nil {
			return ""
		}
		for _, o := range ct.Overrides {
			if o.ContentType == contentType {
				return strings.TrimPrefix(o.PartName, "/")
			}
		}
		return ""
	}
	return ""
}

// numberedParts returns prefixN.xml parts sorted by N.
func numberedParts(zr *zip.Reader, prefix string) []*zip.File {
	type numbered struct {
		n int
		f *zip.File
	}
	var found []numbered
	for _, zf := range zr.File {
		if !strings.HasPrefix(zf.Name, prefix) || path.Ext(zf.Name) != ".xml" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(zf.Name, prefix), ".xml"))
		if err != nil {
			continue
		}
		found = append(found, numbered{n, zf})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].n < found[j].n })
	out := make([]*zip.File, len(found))
	for i, nf := range found {
		out[i] = nf.f
	}
	return out
}
