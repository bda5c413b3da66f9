// Command checkcatalog verifies a normalized earthquake catalog: the header,
// per-row validity, record parsing and event ID uniqueness.
//
// Usage:
//
//	go run ./cmd/checkcatalog -catalog data/quakes_checked.csv
package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/fatih/color"

	"github.com/couchcryptid/quake-catalog-etl/internal/domain"
)

// phase tracks pass/fail for a check.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// maxReported caps the detailed errors printed per phase.
const maxReported = 20

func main() {
	path := flag.String("catalog", "", "path to a *_checked.csv catalog")
	rejectNullIsland := flag.Bool("reject-null-island", false, "treat rows at exactly 0,0 as invalid")
	minRecords := flag.Int("min-records", 1, "minimum number of data rows expected")
	flag.Parse()

	if *path == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(os.Stdout, *path, domain.Validator{RejectNullIsland: *rejectNullIsland}, *minRecords))
}

func run(w io.Writer, path string, v domain.Validator, minRecords int) int {
	fmt.Fprintln(w, "=== Earthquake Catalog Check ===")
	fmt.Fprintln(w)

	rows, err := loadRows(path)
	if err != nil {
		fmt.Fprintf(w, "FATAL: load catalog: %v\n", err)
		return 1
	}

	var header []string
	data := rows
	if len(rows) > 0 {
		header, data = rows[0], rows[1:]
	}

	phases := []*phase{
		checkHeader(header),
		checkRows(data, v, minRecords),
		checkRecords(data),
		checkUniqueIDs(data),
	}

	allPassed := true
	for _, p := range phases {
		status := color.GreenString("PASS")
		if !p.passed() {
			status = color.RedString("FAIL (%d errors)", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-32s %s\n", p.name, status)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Records: %d\n", len(data))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i == maxReported {
				fmt.Fprintf(w, "  ... %d more\n", len(p.errors)-maxReported)
				break
			}
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll checks passed.")
		return 0
	}
	fmt.Fprintln(w, "\nCheck FAILED.")
	return 1
}

func loadRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	var rows [][]string
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}

// ── Checks ──

func checkHeader(header []string) *phase {
	p := &phase{name: "Canonical header"}
	if header == nil {
		p.errorf("catalog is empty, no header line")
		return p
	}
	if !slices.Equal(header, domain.CanonicalHeader) {
		p.errorf("header %v does not match canonical %v", header, domain.CanonicalHeader)
	}
	return p
}

func checkRows(data [][]string, v domain.Validator, minRecords int) *phase {
	p := &phase{name: "Row validity"}
	if len(data) < minRecords {
		p.errorf("catalog has %d rows, want at least %d", len(data), minRecords)
	}
	for i, row := range data {
		line := i + 2
		if len(row) != len(domain.CanonicalHeader) {
			p.errorf("line %d: %d fields, want %d", line, len(row), len(domain.CanonicalHeader))
			continue
		}
		if !v.Keep(row) {
			p.errorf("line %d: row would have been dropped by validation", line)
		}
	}
	return p
}

func checkRecords(data [][]string) *phase {
	p := &phase{name: "Record parsing"}
	for i, row := range data {
		rec, err := domain.ParseRecord(row)
		if err != nil {
			p.errorf("line %d: %v", i+2, err)
			continue
		}
		if rec.ID == "" {
			p.errorf("line %d: empty event id", i+2)
		}
		if rec.Time.IsZero() {
			p.errorf("line %d (%s): zero event time", i+2, rec.ID)
		}
	}
	return p
}

func checkUniqueIDs(data [][]string) *phase {
	p := &phase{name: "Unique event IDs"}
	idCol := slices.Index(domain.CanonicalHeader, "id")
	seen := make(map[string]int, len(data))
	for i, row := range data {
		if len(row) <= idCol || row[idCol] == "" {
			continue
		}
		id := row[idCol]
		if first, ok := seen[id]; ok {
			p.errorf("line %d: event %s already seen on line %d", i+2, id, first)
			continue
		}
		seen[id] = i + 2
	}
	return p
}
