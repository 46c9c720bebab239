// Package output renders CLI results as an aligned table on terminals and as
// JSON otherwise.
package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/JakeFAU/linkstash/internal/api"
)

// Supported formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatQuiet = "quiet"
)

// ErrInvalidFormat is returned for unknown --format values.
var ErrInvalidFormat = errors.New("invalid --format value")

// DefaultFormat picks table for interactive terminals and JSON for pipes.
func DefaultFormat() string {
	fd := os.Stdout.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return FormatTable
	}
	return FormatJSON
}

// Printer writes results in one format.
type Printer struct {
	w      io.Writer
	format string
}

// New validates format and returns a Printer. An empty format selects
// DefaultFormat.
func New(w io.Writer, format string) (*Printer, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = DefaultFormat()
	}
	switch format {
	case FormatTable, FormatJSON, FormatQuiet:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, format)
	}
	return &Printer{w: w, format: format}, nil
}

// Created prints the id returned by an add.
func (p *Printer) Created(resp api.CreateContentResponse) error {
	switch p.format {
	case FormatJSON:
		return p.json(resp)
	default:
		_, err := fmt.Fprintln(p.w, resp.ID)
		return err
	}
}

// List prints one page of summaries.
func (p *Printer) List(resp api.ListContentResponse) error {
	switch p.format {
	case FormatJSON:
		return p.json(resp)
	case FormatQuiet:
		for _, item := range resp.Items {
			if _, err := fmt.Fprintln(p.w, item.ID); err != nil {
				return err
			}
		}
		return nil
	}
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tURL\tTITLE\tAUTHOR")
	for _, item := range resp.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			item.ID, formatTime(item.CreatedAt), item.URL, str(item.Title), str(item.Author))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(p.w, "showing %d of %d (limit %d)\n", len(resp.Items), resp.Total, resp.Limit)
	return err
}

// Item prints a single bookmark including its body.
func (p *Printer) Item(item api.ContentItem) error {
	switch p.format {
	case FormatJSON:
		return p.json(item)
	case FormatQuiet:
		_, err := fmt.Fprintln(p.w, item.URL)
		return err
	}
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%d\n", item.ID)
	fmt.Fprintf(tw, "URL\t%s\n", item.URL)
	fmt.Fprintf(tw, "TITLE\t%s\n", str(item.Title))
	fmt.Fprintf(tw, "AUTHOR\t%s\n", str(item.Author))
	fmt.Fprintf(tw, "CREATED\t%s\n", formatTime(item.CreatedAt))
	if err := tw.Flush(); err != nil {
		return err
	}
	if item.Body != nil {
		_, err := fmt.Fprintf(p.w, "\n%s\n", *item.Body)
		return err
	}
	return nil
}

func (p *Printer) json(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func str(v *string) string {
	if v == nil {
		return "-"
	}
	return *v
}
