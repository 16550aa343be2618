package collector

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EGXTicker/internal/model"
)

const headerRow = `<tr class="hdr"><th>أقصى سعر</th><th>أدنى سعر</th><th>الإسم المختصر</th></tr>`

func dataRow(name string, n int) string {
	var b strings.Builder
	b.WriteString("<tr>")
	for i := 0; i < n; i++ {
		if i == 11 {
			fmt.Fprintf(&b, "<td>%s</td>", name)
			continue
		}
		fmt.Fprintf(&b, "<td>%d</td>", 100+i)
	}
	b.WriteString("</tr>")
	return b.String()
}

func page(rows ...string) string {
	return "<html><body><table>" + headerRow + strings.Join(rows, "\n") + "</table></body></html>"
}

func TestExtractRecords_CountsDataRows(t *testing.T) {
	for n := 0; n <= 5; n++ {
		rows := make([]string, n)
		for i := range rows {
			rows[i] = dataRow(fmt.Sprintf("سهم %d", i), 13)
		}
		assert.Len(t, ExtractRecords(page(rows...)), n, "rows=%d", n)
	}
}

func TestExtractRecords_ShortRowDropped(t *testing.T) {
	html := page(dataRow("أ", 13), dataRow("ب", 13), dataRow("ج", 11))
	recs := ExtractRecords(html)
	require.Len(t, recs, 2)
	assert.Equal(t, "أ", recs[0].ShortName)
	assert.Equal(t, "ب", recs[1].ShortName)
}

func TestExtractRecords_BlankNameDropped(t *testing.T) {
	recs := ExtractRecords(page(dataRow(" &nbsp; ", 13), dataRow("ب", 13)))
	require.Len(t, recs, 1)
	assert.Equal(t, "ب", recs[0].ShortName)
}

func TestExtractRecords_ExtraCellsIgnored(t *testing.T) {
	recs := ExtractRecords(page(dataRow("أ", 16)))
	require.Len(t, recs, 1)
	assert.Equal(t, model.Number(112), recs[0].TradedVolume)
}

func TestExtractRecords_PositionalMapping(t *testing.T) {
	row := `<tr><td>1251</td><td>1187.5</td><td>1250</td><td>1250</td><td>0</td><td>—</td>` +
		`<td>1251</td><td>1250</td><td>1250</td><td>1460</td><td></td>` +
		`<td><a href="/s?id=1">العز الدخيلة للصلب</a></td><td>76</td></tr>`
	recs := ExtractRecords(page(row))
	require.Len(t, recs, 1)
	r := recs[0]
	assert.Equal(t, model.Number(1251), r.DayHigh)
	assert.Equal(t, model.Number(1187.5), r.DayLow)
	assert.Equal(t, model.Text("—"), r.ChangePercent)
	assert.Equal(t, model.Text(""), r.LastPrice)
	assert.Equal(t, "العز الدخيلة للصلب", r.ShortName)
	assert.Equal(t, model.Number(76), r.TradedVolume)
}

func TestExtractRecords_OnlyFirstRowSkipped(t *testing.T) {
	// No dedicated header: the first data row is consumed as the header.
	html := "<table>" + dataRow("أ", 13) + dataRow("ب", 13) + "</table>"
	recs := ExtractRecords(html)
	require.Len(t, recs, 1)
	assert.Equal(t, "ب", recs[0].ShortName)
}

func TestExtractRecords_EmptyAndGarbage(t *testing.T) {
	assert.Empty(t, ExtractRecords(""))
	assert.Empty(t, ExtractRecords("<html><body>maintenance</body></html>"))
	assert.Empty(t, ExtractRecords(headerRow))
	assert.Empty(t, ExtractRecords("<<<>>> < tr > td"))
}

func TestExtractRecords_TolerantMarkup(t *testing.T) {
	cells := make([]string, 13)
	for i := range cells {
		cells[i] = fmt.Sprintf("%d", i)
	}
	cells[11] = "مصر &amp; السودان"

	var b strings.Builder
	b.WriteString(`<TABLE><TR><TH>x</TH></TR>`)
	// Upper-case tags, attributes with '>' inside quotes, unclosed cells,
	// comments, and a multi-line cell.
	b.WriteString(`<TR data-x="a>b">`)
	for i, c := range cells {
		switch i {
		case 3:
			fmt.Fprintf(&b, "<TD class='n'>\n  <span><b>%s</b></span>\n</TD>", c)
		case 7:
			fmt.Fprintf(&b, "<td><!-- <td>99</td> -->%s", c)
		default:
			fmt.Fprintf(&b, "<td nowrap>%s</td>", c)
		}
	}
	b.WriteString(`</TR></TABLE>`)

	recs := ExtractRecords(b.String())
	require.Len(t, recs, 1)
	r := recs[0]
	assert.Equal(t, "مصر & السودان", r.ShortName)
	assert.Equal(t, model.Number(3), r.PreviousClose)
	assert.Equal(t, model.Number(7), r.BidSessionLow)
	assert.Equal(t, model.Number(12), r.TradedVolume)
}

func TestExtractRecords_UnclosedRowsClosedByNextRow(t *testing.T) {
	open := strings.TrimSuffix(dataRow("أ", 13), "</tr>")
	html := "<table>" + headerRow + open + dataRow("ب", 13)
	recs := ExtractRecords(html)
	require.Len(t, recs, 2)
	assert.Equal(t, "أ", recs[0].ShortName)
}

func TestExtractRecords_SimilarTagNamesIgnored(t *testing.T) {
	html := page(strings.ReplaceAll(dataRow("أ", 13), "<td>", "<td><track><tdx>"))
	recs := ExtractRecords(html)
	require.Len(t, recs, 1)
	assert.Equal(t, model.Number(100), recs[0].DayHigh)
}

func TestCleanCell(t *testing.T) {
	tests := map[string]string{
		"A &amp; B":      "A & B",
		"&lt;b&gt;":      "<b>",
		"&nbsp;12&nbsp;": "12",
		"&amp;lt;":       "&lt;",
		"  plain  ":      "plain",
		"\u00a0x\u00a0":  "x",
	}
	for in, want := range tests {
		assert.Equal(t, want, cleanCell(in), "input %q", in)
	}
}
