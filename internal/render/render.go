// Package render turns price rows into the fixed-width table sent to chat.
package render

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"coinwatch/internal/coin"
)

// Row is one line of the price table.
type Row struct {
	Symbol coin.Symbol
	Price  decimal.Decimal
	Change decimal.Decimal
}

var header = []string{"Token", "Price", "Change (24h)"}

// Price formats p with the upstream precision, e.g. "$50000".
func Price(p decimal.Decimal) string {
	return "$" + p.String()
}

// Change formats c with two decimals and a "+" for positive values.
func Change(c decimal.Decimal) string {
	sign := ""
	if c.IsPositive() {
		sign = "+"
	}
	return sign + c.StringFixed(2) + "%"
}

// Table renders rows in the given order as right-aligned columns joined by
// " | ", preceded by a header line.
func Table(rows []Row) string {
	cells := make([][]string, 0, len(rows)+1)
	cells = append(cells, header)
	for _, r := range rows {
		cells = append(cells, []string{string(r.Symbol), Price(r.Price), Change(r.Change)})
	}

	widths := make([]int, len(header))
	for _, line := range cells {
		for i, c := range line {
			if n := utf8.RuneCountInString(c); n > widths[i] {
				widths[i] = n
			}
		}
	}

	var b strings.Builder
	for li, line := range cells {
		if li > 0 {
			b.WriteByte('\n')
		}
		for i, c := range line {
			if i > 0 {
				b.WriteString(" | ")
			}
			fmt.Fprintf(&b, "%*s", widths[i], c)
		}
	}
	return b.String()
}

// HTML wraps the table in a <pre> block for Telegram's HTML parse mode, with
// an optional bold title above it.
func HTML(title string, rows []Row) string {
	var b strings.Builder
	if title != "" {
		b.WriteString("<b>")
		b.WriteString(html.EscapeString(title))
		b.WriteString("</b>\n")
	}
	b.WriteString("<pre>")
	b.WriteString(html.EscapeString(Table(rows)))
	b.WriteString("</pre>")
	return b.String()
}
