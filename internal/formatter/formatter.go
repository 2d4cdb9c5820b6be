package formatter

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"eradata/internal/csvio"
)

// Preview prints the first n rows of t as a bordered table followed by
// a "[rows x columns]" footer. With n <= 0 only the footer is printed.
func Preview(w io.Writer, t *csvio.Table, n int) {
	if head := t.Head(n); len(head) > 0 {
		fmt.Fprintln(w, Render(t.Header, head))
	}
	fmt.Fprintf(w, "[%d rows x %d columns]\n", len(t.Rows), len(t.Header))
}

// Render lays out rows under header, prefixed with a 0-based row index.
func Render(header []string, rows [][]string) string {
	headers := append([]string{""}, header...)
	indexed := make([][]string, len(rows))
	for i, row := range rows {
		indexed[i] = append([]string{strconv.Itoa(i)}, row...)
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(indexed...).
		Render()
}
