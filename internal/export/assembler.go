package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/natefinch/atomic"
	"github.com/xuri/excelize/v2"

	"leaddesk-engine/internal/leads"
)

const (
	SheetName = "Leads"

	// DefaultMaxRows is the page size used to pull "everything" in one call.
	DefaultMaxRows = 100000

	// FailedMessage is the single notice shown for any export failure.
	FailedMessage = "Failed to export leads"
)

var ErrExportFailed = errors.New("export failed")

type File struct {
	Name      string    `json:"name"`
	Rows      int       `json:"rows"`
	Total     int       `json:"total"`
	Query     string    `json:"query"`
	CreatedAt time.Time `json:"created_at"`
	Data      []byte    `json:"-"`
}

// Truncated reports whether the backend had more rows than the export
// ceiling let through.
func (f File) Truncated() bool { return f.Total > f.Rows }

type Options struct {
	MaxRows  int
	Location *time.Location
	Now      func() time.Time
	Logger   *log.Logger
}

// Assembler builds spreadsheet exports from the same query a list view
// uses, with paging lifted.
type Assembler struct {
	fetcher *leads.Fetcher
	maxRows int
	loc     *time.Location
	now     func() time.Time
	logger  *log.Logger
}

func NewAssembler(l leads.Lister, opts Options) *Assembler {
	a := &Assembler{
		fetcher: leads.NewFetcher(l),
		maxRows: opts.MaxRows,
		loc:     opts.Location,
		now:     opts.Now,
		logger:  opts.Logger,
	}
	if a.maxRows <= 0 {
		a.maxRows = DefaultMaxRows
	}
	if a.loc == nil {
		a.loc = time.Local
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.logger == nil {
		a.logger = log.Default()
	}
	return a
}

// ExportAll fetches every lead matching f (page 1, limit = ceiling) and
// renders the workbook in memory. Any failure returns ErrExportFailed and
// no file.
func (a *Assembler) ExportAll(ctx context.Context, f leads.FilterState) (File, error) {
	q := leads.BuildQuery(f).
		With("page", "1").
		With("limit", strconv.Itoa(a.maxRows))

	res, err := a.fetcher.FetchQuery(ctx, q)
	if err != nil {
		a.logger.Printf("[export] fetch failed query=%q err=%v", q.Encode(), err)
		return File{}, fmt.Errorf("%w: %w", ErrExportFailed, err)
	}

	rows := make([][]string, 0, len(res.Items))
	for _, r := range res.Items {
		rows = append(rows, Flatten(r, a.loc))
	}

	data, err := Workbook(Header(), rows)
	if err != nil {
		a.logger.Printf("[export] workbook failed err=%v", err)
		return File{}, fmt.Errorf("%w: %w", ErrExportFailed, err)
	}

	now := a.now()
	out := File{
		Name:      FileName(now),
		Rows:      len(rows),
		Total:     res.Total,
		Query:     q.Encode(),
		CreatedAt: now,
		Data:      data,
	}
	if out.Truncated() {
		a.logger.Printf("[export] truncated rows=%d total=%d ceiling=%d", out.Rows, out.Total, a.maxRows)
	}
	return out, nil
}

// FileName is leads_export_ plus the UTC timestamp in ISO 8601 with the
// ':', '.' and '-' separators removed.
func FileName(t time.Time) string {
	iso := t.UTC().Format("2006-01-02T15:04:05.000Z")
	iso = strings.NewReplacer(":", "", ".", "", "-", "").Replace(iso)
	return "leads_export_" + iso + ".xlsx"
}

// Workbook renders one "Leads" sheet with a bold header row.
func Workbook(header []string, rows [][]string) ([]byte, error) {
	x := excelize.NewFile()
	defer x.Close()

	if err := x.SetSheetName(x.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	bold, err := x.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	sw, err := x.NewStreamWriter(SheetName)
	if err != nil {
		return nil, fmt.Errorf("stream writer: %w", err)
	}
	if err := sw.SetColWidth(1, len(header), 20); err != nil {
		return nil, fmt.Errorf("column width: %w", err)
	}
	if err := sw.SetRow("A1", toCells(header), excelize.RowOpts{StyleID: bold}); err != nil {
		return nil, fmt.Errorf("header row: %w", err)
	}
	for i, row := range rows {
		ref, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := sw.SetRow(ref, toCells(row)); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("flush sheet: %w", err)
	}

	buf, err := x.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func toCells(xs []string) []interface{} {
	out := make([]interface{}, len(xs))
	for i, s := range xs {
		out[i] = s
	}
	return out
}

// WriteFile stores f in dir. The write is atomic: readers see the whole
// file or nothing.
func WriteFile(dir string, f File) (string, error) {
	if f.Name == "" || len(f.Data) == 0 {
		return "", fmt.Errorf("%w: empty file", ErrExportFailed)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %w", ErrExportFailed, err)
	}
	path := filepath.Join(dir, f.Name)
	if err := atomic.WriteFile(path, bytes.NewReader(f.Data)); err != nil {
		return "", fmt.Errorf("%w: %w", ErrExportFailed, err)
	}
	return path, nil
}
