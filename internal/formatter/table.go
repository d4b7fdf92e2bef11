// Package formatter renders feeds and articles as aligned text tables for the CLI.
package formatter

import (
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"feedqa/internal/models"
)

// DefaultMaxCellWidth caps the display width of a single cell.
const DefaultMaxCellWidth = 60

// minColWidth keeps separator rows at least "---".
const minColWidth = 3

// Table is a markdown-style pipe table whose columns are aligned by display
// width, so CJK and other wide runes line up in a terminal.
type Table struct {
	headers      []string
	rows         [][]string
	maxCellWidth int
}

// NewTable creates a table with the given header cells.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers, maxCellWidth: DefaultMaxCellWidth}
}

// SetMaxCellWidth changes the cell width cap. Values <= 0 disable truncation.
func (t *Table) SetMaxCellWidth(n int) *Table {
	t.maxCellWidth = n

	return t
}

// AddRow appends one row. Missing cells render empty and extra cells are ignored.
func (t *Table) AddRow(cells ...string) *Table {
	t.rows = append(t.rows, cells)

	return t
}

// Len returns the number of body rows.
func (t *Table) Len() int {
	return len(t.rows)
}

func (t *Table) cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}

	s := strings.Join(strings.Fields(row[i]), " ")
	if t.maxCellWidth > 0 {
		s = runewidth.Truncate(s, t.maxCellWidth, "...")
	}

	return s
}

// String renders the header, a separator and every row.
func (t *Table) String() string {
	cols := len(t.headers)
	widths := make([]int, cols)

	measure := func(row []string) {
		for i := range cols {
			if w := runewidth.StringWidth(t.cell(row, i)); w > widths[i] {
				widths[i] = w
			}
		}
	}

	measure(t.headers)

	for _, row := range t.rows {
		measure(row)
	}

	for i := range widths {
		widths[i] = max(widths[i], minColWidth)
	}

	var sb strings.Builder

	writeRow := func(row []string) {
		sb.WriteString("|")

		for i := range cols {
			content := t.cell(row, i)

			sb.WriteString(" ")
			sb.WriteString(content)
			sb.WriteString(strings.Repeat(" ", widths[i]-runewidth.StringWidth(content)))
			sb.WriteString(" |")
		}

		sb.WriteString("\n")
	}

	writeRow(t.headers)

	sb.WriteString("|")

	for _, w := range widths {
		sb.WriteString(" ")
		sb.WriteString(strings.Repeat("-", w))
		sb.WriteString(" |")
	}

	sb.WriteString("\n")

	for _, row := range t.rows {
		writeRow(row)
	}

	return sb.String()
}

// FeedsTable lists subscribed feeds.
func FeedsTable(feeds []*models.Feed) *Table {
	t := NewTable("ID", "Title", "Articles", "Added", "URL")

	for _, f := range feeds {
		t.AddRow(f.ID, f.Title, strconv.Itoa(len(f.Articles)), f.AddedAt.Format("2006-01-02 15:04"), f.URL)
	}

	return t
}

// ArticlesTable lists the articles of one feed with their indexes.
func ArticlesTable(feed *models.Feed) *Table {
	t := NewTable("#", "Title", "Published", "Author")

	for i, a := range feed.Articles {
		t.AddRow(strconv.Itoa(i), a.Title, a.PubDate, a.Author)
	}

	return t
}
