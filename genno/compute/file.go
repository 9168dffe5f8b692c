package compute

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/LauWien/genno/genno/quantity"
	"github.com/LauWien/genno/genno/units"
	"github.com/LauWien/genno/genno/util"
)

// LoadFile reads the file at path and returns contents in the form its
// extension implies.
//
// CSV files become quantities. The first row names the columns; a
// "value" column is required. A "unit" column, any case, must hold one
// unique unit string, which is parsed and attached to the result. All
// other columns are dimensions. Lines beginning with '#' are skipped.
// A non-empty dims mapping restricts the dimensions to its keys and
// renames them to its values; otherwise the global dimension renames
// apply. unit supplies the unit when the file carries no unit column,
// and must agree with the column when both are present.
//
// YAML files decode to a map. Any other file is returned as a string.
func LoadFile(path string, dims map[string]string, unit string) (any, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		q, err := loadCSV(path, dims, unit)
		if err != nil {
			return nil, err
		}
		return q, nil
	case ".yaml", ".yml":
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var out map[string]any
		if err := yaml.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return out, nil
	default:
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return string(raw), nil
	}
}

func loadCSV(path string, dims map[string]string, unit string) (*quantity.Quantity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comment = '#'
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: no header row: %w", path, quantity.ErrShape)
	}
	header := records[0]
	body := records[1:]

	valueCol, unitCol := -1, -1
	for i, c := range header {
		switch {
		case c == "value":
			valueCol = i
		case strings.EqualFold(c, "unit"):
			unitCol = i
		}
	}
	if valueCol < 0 {
		return nil, fmt.Errorf("%s: no value column in %v: %w", path, header, quantity.ErrShape)
	}

	// One unit for the whole file, from the unit column, the unit
	// argument, or both in agreement.
	var u units.Unit
	haveUnit := false
	if unitCol >= 0 {
		col := make([]string, len(body))
		for i, rec := range body {
			col[i] = rec[unitCol]
		}
		if u, err = units.Default().ParseColumn(col); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		haveUnit = true
		if unit != "" {
			want, err := units.Default().Parse(units.Clean(unit))
			if err != nil {
				return nil, err
			}
			if !want.Equal(u) {
				return nil, fmt.Errorf("%s: unit %q in file does not match requested %q: %w",
					path, u, want, units.ErrMixed)
			}
		}
	} else if unit != "" {
		if u, err = units.Default().Parse(units.Clean(unit)); err != nil {
			return nil, err
		}
		haveUnit = true
	}

	var dimCols []int
	var dimNames []string
	for i, c := range header {
		if i == valueCol || i == unitCol {
			continue
		}
		if len(dims) > 0 {
			target, ok := dims[c]
			if !ok {
				continue
			}
			dimCols = append(dimCols, i)
			dimNames = append(dimNames, target)
			continue
		}
		if c == "lvl" || c == "mrg" {
			continue
		}
		dimCols = append(dimCols, i)
		dimNames = append(dimNames, util.RenamedDim(c))
	}

	rows := make([]quantity.Row, 0, len(body))
	for n, rec := range body {
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[valueCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("%s: record %d: bad value %q: %w",
				path, n+1, rec[valueCol], quantity.ErrShape)
		}
		labels := make([]string, len(dimCols))
		for j, c := range dimCols {
			labels[j] = rec[c]
		}
		rows = append(rows, quantity.Row{Labels: labels, Value: v})
	}

	var opts []quantity.Option
	if haveUnit {
		opts = append(opts, quantity.WithUnit(u))
	}
	return quantity.New(dimNames, rows, opts...)
}

// WriteReport writes a computed value to path. Quantities are written as
// CSV, one column per dimension plus a trailing value column; strings
// are written verbatim.
func WriteReport(value any, path string) error {
	switch v := value.(type) {
	case *quantity.Quantity:
		if strings.ToLower(filepath.Ext(path)) != ".csv" {
			return fmt.Errorf("write %q: quantities are written as .csv: %w", path, ErrOperand)
		}
		return writeCSV(v, path)
	case string:
		return os.WriteFile(path, []byte(v), 0o644)
	case fmt.Stringer:
		return os.WriteFile(path, []byte(v.String()), 0o644)
	default:
		return fmt.Errorf("write %q: cannot write %T: %w", path, value, ErrOperand)
	}
}

func writeCSV(q *quantity.Quantity, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(append(q.Dims(), "value")); err != nil {
		return err
	}
	for _, r := range q.Rows() {
		rec := append(r.Labels, strconv.FormatFloat(r.Value, 'g', -1, 64))
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
