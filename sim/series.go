package sim

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// ReadColumns parses a whitespace separated numeric file written by the
// engine. Blank lines and lines starting with '#' are skipped. Every row must
// carry at least minCols values.
func ReadColumns(path string, minCols int) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows [][]float64
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < minCols {
			return nil, fmt.Errorf("%s:%d: expected at least %d columns, got %d", path, line, minCols, len(fields))
		}
		row := make([]float64, len(fields))
		for i, field := range fields {
			v, err := parseValue(field)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: column %d: %w", path, line, i+1, err)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &BackendFailure{Diagnostic: fmt.Sprintf("%s:%d: column %d is %s", path, line, i+1, field)}
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return rows, nil
}

// parseValue parses one engine number. LAMMPS prints a negative NaN as
// "-nan", which strconv rejects.
func parseValue(field string) (float64, error) {
	v, err := strconv.ParseFloat(field, 64)
	if err != nil && strings.EqualFold(strings.TrimLeft(field, "+-"), "nan") {
		return math.NaN(), nil
	}
	return v, err
}

// column extracts column i from rows.
func column(rows [][]float64, i int) []float64 {
	out := make([]float64, len(rows))
	for r, row := range rows {
		out[r] = row[i]
	}
	return out
}
