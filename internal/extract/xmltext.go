package extract

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// paragraphReader collects the character data of an XML document into lines,
// one per paragraph element. Element names are matched by local name.
type paragraphReader struct {
	paragraphs map[string]bool
	// text limits collection to these elements; empty collects all
	// character data inside a paragraph.
	text   map[string]bool
	inline map[string]string
}

var (
	ooxmlWordText = paragraphReader{
		paragraphs: map[string]bool{"p": true},
		text:       map[string]bool{"t": true},
		inline:     map[string]string{"tab": "\t", "br": " ", "cr": " "},
	}
	odfText = paragraphReader{
		paragraphs: map[string]bool{"p": true, "h": true},
		inline:     map[string]string{"tab": "\t", "s": " ", "line-break": " "},
	}
)

// lines returns the non-empty paragraphs of the document in order.
func (pr paragraphReader) lines(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var (
		out       []string
		para      strings.Builder
		paraDepth int
		textDepth int
	)
	flush := func() {
		if line := strings.TrimSpace(para.String()); line != "" {
			out = append(out, line)
		}
		para.Reset()
	}
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			name := t.Name.Local
			if pr.paragraphs[name] {
				paraDepth++
			}
			if pr.text[name] {
				textDepth++
			}
			if s, ok := pr.inline[name]; ok && paraDepth > 0 {
				para.WriteString(s)
			}
		case xml.EndElement:
			name := t.Name.Local
			if pr.text[name] && textDepth > 0 {
				textDepth--
			}
			if pr.paragraphs[name] && paraDepth > 0 {
				paraDepth--
				if paraDepth == 0 {
					flush()
				}
			}
		case xml.CharData:
			if textDepth > 0 || (len(pr.text) == 0 && paraDepth > 0) {
				para.Write(t)
			}
		}
	}
	flush()
	return out, nil
}
