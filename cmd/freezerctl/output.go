package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/erazemk/freezer/internal/dates"
	"github.com/erazemk/freezer/internal/model"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	expiredStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	bannerStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("14")).
			Padding(0, 1)
)

const maxCell = 32

func padRight(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// cell is a table value with an optional style applied after padding.
type cell struct {
	text  string
	style *lipgloss.Style
}

func plain(s string) cell { return cell{text: s} }

func styled(s string, st lipgloss.Style) cell { return cell{text: s, style: &st} }

type table struct {
	headers []string
	rows    [][]cell
}

func (t *table) add(cells ...cell) {
	t.rows = append(t.rows, cells)
}

func (t *table) render(w io.Writer) {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i, c := range row {
			row[i].text = truncate(c.text, maxCell)
			widths[i] = max(widths[i], lipgloss.Width(row[i].text))
		}
	}

	parts := make([]string, len(t.headers))
	for i, h := range t.headers {
		parts[i] = headerStyle.Render(padRight(h, widths[i]))
	}
	_, _ = fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))

	for _, row := range t.rows {
		parts = parts[:0]
		for i, c := range row {
			s := padRight(c.text, widths[i])
			if c.style != nil {
				s = c.style.Render(s)
			}
			parts = append(parts, s)
		}
		_, _ = fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatWeight(item model.Item) string {
	if item.Weight == nil {
		return "-"
	}
	return strconv.FormatFloat(*item.Weight, 'f', -1, 64) + " " + item.WeightUnit
}

// ageCell describes how long an item has been frozen and when it expires.
func ageCell(item model.Item, now time.Time) cell {
	if item.Status != model.ItemStatusInFreezer {
		return styled(strings.ReplaceAll(item.Status, "_", " ")+" "+item.RemovedDate, mutedStyle)
	}

	age := dates.Classify(item, now)
	switch {
	case age.Expired:
		return styled(fmt.Sprintf("expired %s ago", plural(-age.DaysUntilExpiry, "day")), expiredStyle)
	case age.ExpiringSoon && age.DaysUntilExpiry == 0:
		return styled("expires today", warnStyle)
	case age.ExpiringSoon:
		return styled(fmt.Sprintf("expires in %s", plural(age.DaysUntilExpiry, "day")), warnStyle)
	case age.Oldest:
		return styled(fmt.Sprintf("frozen %s", plural(age.DaysInFreezer, "day")), warnStyle)
	}
	return plain(fmt.Sprintf("frozen %s", plural(age.DaysInFreezer, "day")))
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func printItems(w io.Writer, items []model.Item, now time.Time) {
	t := &table{headers: []string{"ID", "CODE", "NAME", "CATEGORY", "WEIGHT", "ADDED", "EXPIRES", "STATE"}}
	for _, item := range items {
		t.add(
			plain(strconv.FormatInt(item.ID, 10)),
			plain(item.Code),
			plain(item.Name),
			plain(orDash(item.CategoryName)),
			plain(formatWeight(item)),
			plain(orDash(item.AddedDate)),
			plain(orDash(item.ExpirationDate)),
			ageCell(item, now),
		)
	}
	t.render(w)
}

func printItem(w io.Writer, item *model.Item, now time.Time) {
	rows := [][2]string{
		{"ID", strconv.FormatInt(item.ID, 10)},
		{"Code", item.Code},
		{"Name", item.Name},
		{"UPC", orDash(item.UPC)},
		{"Category", orDash(item.CategoryName)},
		{"Source", orDash(item.Source)},
		{"Weight", formatWeight(*item)},
		{"Added", orDash(item.AddedDate)},
		{"Expires", orDash(item.ExpirationDate)},
		{"Status", item.Status},
		{"Removed", orDash(item.RemovedDate)},
		{"Notes", orDash(item.Notes)},
		{"Image", orDash(item.ImageURL)},
	}
	for _, r := range rows {
		_, _ = fmt.Fprintf(w, "%s %s\n", headerStyle.Render(padRight(r[0]+":", 9)), r[1])
	}
	_, _ = fmt.Fprintf(w, "%s %s\n", headerStyle.Render(padRight("State:", 9)), ageCell(*item, now).render())
}

func (c cell) render() string {
	if c.style == nil {
		return c.text
	}
	return c.style.Render(c.text)
}
