package data

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/BayesianBoi/methods-2-course/pkg/dataprep"
)

// Option configures CSV reading.
type Option func(*csv.Reader)

// WithComma sets the field delimiter (default ',').
func WithComma(r rune) Option { return func(c *csv.Reader) { c.Comma = r } }

// LoadCSV reads a delimited file with a header row into a Frame.
func LoadCSV(path string, opts ...Option) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	f, err := ReadCSV(file, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// ReadCSV reads a header row followed by records. A column whose non-missing
// cells all parse as numbers is numeric; anything else is categorical.
func ReadCSV(r io.Reader, opts ...Option) (*Frame, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.TrimLeadingSpace = true
	for _, o := range opts {
		o(reader)
	}

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("data: empty input")
	}
	if err != nil {
		return nil, fmt.Errorf("data: read header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.Trim(strings.TrimSpace(h), `"`)
	}

	raw := make([][]string, len(header))
	line := 1
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("data: line %d: %w", line, err)
		}
		for j := range header {
			raw[j] = append(raw[j], strings.TrimSpace(rec[j]))
		}
	}

	cols := make([]Column, len(header))
	for j, name := range header {
		cols[j] = parseColumn(name, raw[j])
	}
	return NewFrame(cols...)
}

func parseColumn(name string, cells []string) Column {
	c := Column{Name: name, Missing: make([]bool, len(cells))}
	numeric := true
	nums := make([]float64, len(cells))
	for i, s := range cells {
		if dataprep.IsMissing(s) {
			c.Missing[i] = true
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			numeric = false
			continue
		}
		nums[i] = v
	}
	if numeric {
		c.Kind = Numeric
		c.Num = nums
		return c
	}
	c.Kind = Categorical
	c.Str = make([]string, len(cells))
	for i, s := range cells {
		if !c.Missing[i] {
			c.Str[i] = s
		}
	}
	return c
}

// FromRecords builds a frame from in-memory rows such as a new-data table
// declared in configuration. Column order follows the sorted key set. Values
// are parsed the same way as CSV cells.
func FromRecords(records []map[string]any) (*Frame, error) {
	if len(records) == 0 {
		return nil, errors.New("data: no records")
	}
	keys := make(map[string]struct{})
	for _, r := range records {
		for k := range r {
			keys[k] = struct{}{}
		}
	}
	names := make([]string, 0, len(keys))
	for k := range keys {
		names = append(names, k)
	}
	sort.Strings(names)

	cols := make([]Column, len(names))
	for j, name := range names {
		cells := make([]string, len(records))
		for i, r := range records {
			v, ok := r[name]
			if !ok || v == nil {
				cells[i] = "NA"
				continue
			}
			cells[i] = strings.TrimSpace(fmt.Sprint(v))
		}
		cols[j] = parseColumn(name, cells)
	}
	return NewFrame(cols...)
}
