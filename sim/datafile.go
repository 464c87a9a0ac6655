package sim

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DataHeader is the part of a LAMMPS data file the workflow needs.
type DataHeader struct {
	Atoms      int
	AtomTypes  int
	Box        Box
	TypeCounts []int // atoms per type, index 0 is type 1
}

// Concentration returns the fraction of atoms of each type.
func (h DataHeader) Concentration() []float64 {
	out := make([]float64, len(h.TypeCounts))
	if h.Atoms == 0 {
		return out
	}
	for i, c := range h.TypeCounts {
		out[i] = float64(c) / float64(h.Atoms)
	}
	return out
}

// ReadDataHeader parses counts, cell bounds and the per-type atom census of
// an atomic-style LAMMPS data file.
func ReadDataHeader(path string) (DataHeader, error) {
	f, err := os.Open(path)
	if err != nil {
		return DataHeader{}, err
	}
	defer f.Close()

	var h DataHeader
	section := ""
	scanner := bufio.NewScanner(f)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			// first line is a free-form title
			first = false
			continue
		}
		if i := strings.IndexByte(line, '#'); i >= 0 {
			if strings.TrimSpace(line[:i]) == "Atoms" {
				section = "Atoms"
				continue
			}
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) == 1 {
			section = fields[0]
			continue
		}
		if section == "" {
			if err := parseHeaderLine(&h, fields); err != nil {
				return DataHeader{}, fmt.Errorf("%s: %w", path, err)
			}
			continue
		}
		if section == "Atoms" {
			typ, err := strconv.Atoi(fields[1])
			if err != nil || typ < 1 || typ > h.AtomTypes {
				return DataHeader{}, fmt.Errorf("%s: invalid atom type %q", path, fields[1])
			}
			h.TypeCounts[typ-1]++
		}
	}
	if err := scanner.Err(); err != nil {
		return DataHeader{}, fmt.Errorf("reading %s: %w", path, err)
	}
	if h.Atoms <= 0 {
		return DataHeader{}, fmt.Errorf("%s: no atom count in header", path)
	}
	return h, nil
}

func parseHeaderLine(h *DataHeader, fields []string) error {
	switch {
	case len(fields) >= 2 && fields[1] == "atoms":
		n, err := strconv.Atoi(fields[0])
		if err != nil {
			return fmt.Errorf("atom count: %w", err)
		}
		h.Atoms = n
	case len(fields) >= 3 && fields[1] == "atom" && fields[2] == "types":
		n, err := strconv.Atoi(fields[0])
		if err != nil {
			return fmt.Errorf("atom types: %w", err)
		}
		h.AtomTypes = n
		h.TypeCounts = make([]int, n)
	case len(fields) >= 4 && strings.HasSuffix(fields[2], "lo"):
		lo, err1 := strconv.ParseFloat(fields[0], 64)
		hi, err2 := strconv.ParseFloat(fields[1], 64)
		if err1 != nil || err2 != nil {
			return fmt.Errorf("invalid bounds %q", strings.Join(fields, " "))
		}
		switch fields[2] {
		case "xlo":
			h.Box.Lx = hi - lo
		case "ylo":
			h.Box.Ly = hi - lo
		case "zlo":
			h.Box.Lz = hi - lo
		}
	}
	return nil
}
