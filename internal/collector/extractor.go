package collector

import (
	"strings"

	"EGXTicker/internal/model"
)

// ExtractRecords scans the exchange page for table rows and returns one
// record per data row. The first row is the header and is always skipped.
// Rows with fewer than 13 cells or a blank name are dropped; a page with no
// usable rows yields nil, not an error.
//
// Only <tr> and <td> boundaries are relied on. Everything else in the markup
// is treated as noise, so the extractor keeps working when the page drifts.
func ExtractRecords(html string) []model.StockRecord {
	rows := scanRows(html)
	if len(rows) < 2 {
		return nil
	}
	var out []model.StockRecord
	for _, cells := range rows[1:] {
		if rec, ok := model.RecordFromCells(cells); ok {
			out = append(out, rec)
		}
	}
	return out
}

var entityReplacer = strings.NewReplacer(
	"&nbsp;", " ",
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
)

func cleanCell(s string) string {
	return strings.TrimSpace(entityReplacer.Replace(s))
}

// tableScanner walks raw markup and collects the text of every <td> grouped
// by <tr>. Rows and cells close on their end tag, on the next opening tag of
// the same kind, or at end of input.
type tableScanner struct {
	src    string
	pos    int
	rows   [][]string
	row    []string
	inRow  bool
	cell   strings.Builder
	inCell bool
}

func scanRows(src string) [][]string {
	s := &tableScanner{src: src}
	for s.pos < len(s.src) {
		i := strings.IndexByte(s.src[s.pos:], '<')
		if i < 0 {
			s.text(s.src[s.pos:])
			break
		}
		s.text(s.src[s.pos : s.pos+i])
		s.pos += i
		s.tag()
	}
	s.endRow()
	return s.rows
}

func (s *tableScanner) text(t string) {
	if s.inCell {
		s.cell.WriteString(t)
	}
}

// tag consumes the markup starting at s.pos, which points at '<'.
func (s *tableScanner) tag() {
	rest := s.src[s.pos:]
	if strings.HasPrefix(rest, "<!--") {
		end := strings.Index(rest[4:], "-->")
		if end < 0 {
			s.pos = len(s.src)
			return
		}
		s.pos += 4 + end + 3
		return
	}

	name, closing, n, ok := readTag(rest)
	if !ok {
		// A '<' that does not start a tag is plain text.
		s.text("<")
		s.pos++
		return
	}
	s.pos += n

	switch name {
	case "tr":
		s.endRow()
		if !closing {
			s.inRow = true
		}
	case "td":
		s.endCell()
		if !closing && s.inRow {
			s.inCell = true
		}
	case "table":
		if closing {
			s.endRow()
		}
	}
}

func (s *tableScanner) endCell() {
	if !s.inCell {
		return
	}
	s.row = append(s.row, cleanCell(s.cell.String()))
	s.cell.Reset()
	s.inCell = false
}

func (s *tableScanner) endRow() {
	s.endCell()
	if s.inRow {
		s.rows = append(s.rows, s.row)
	}
	s.row = nil
	s.inRow = false
}

// readTag parses the tag at the start of src. name is lowercased and empty
// for declarations such as <!DOCTYPE>. n is the byte length of the tag.
func readTag(src string) (name string, closing bool, n int, ok bool) {
	i := 1
	if i < len(src) && (src[i] == '!' || src[i] == '?') {
		end := strings.IndexByte(src, '>')
		if end < 0 {
			return "", false, 0, false
		}
		return "", false, end + 1, true
	}
	if i < len(src) && src[i] == '/' {
		closing = true
		i++
	}
	if i >= len(src) || !isLetter(src[i]) {
		return "", false, 0, false
	}
	start := i
	for i < len(src) && isNameByte(src[i]) {
		i++
	}
	name = strings.ToLower(src[start:i])
	end := tagEnd(src, i)
	if end < 0 {
		return "", false, 0, false
	}
	return name, closing, end + 1, true
}

// tagEnd returns the index of the '>' closing the tag, skipping quoted
// attribute values. An unbalanced quote falls back to the first '>'.
func tagEnd(src string, from int) int {
	var quote byte
	for j := from; j < len(src); j++ {
		c := src[j]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '>':
			return j
		}
	}
	if k := strings.IndexByte(src[from:], '>'); k >= 0 {
		return from + k
	}
	return -1
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isNameByte(c byte) bool {
	return isLetter(c) || c >= '0' && c <= '9' || c == '-' || c == ':'
}
