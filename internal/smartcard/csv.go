// Package smartcard turns smart-card check-in/check-out exports into
// detections and estimates one-way trips over them.
package smartcard

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/errors"
)

// Column names of the export.
const (
	ColCheckIn    = "check_in"
	ColCheckOut   = "check_out"
	ColInStation  = "in_p_gis"
	ColOutStation = "out_p_gis"
	ColCardID     = "binary_ids"
)

// Record is one card journey. Times are minutes since midnight.
type Record struct {
	CardID     string
	CheckIn    int
	CheckOut   int
	InStation  string
	OutStation string
}

// ParseHHMM parses a clock time written as HHMM, with or without a leading
// zero, into minutes since midnight. 2400 is accepted as the end of the day.
func ParseHHMM(s string) (int, error) {
	s = strings.TrimSpace(s)
	if len(s) < 3 || len(s) > 4 {
		return 0, apperrors.Newf(apperrors.ErrInvalidInput, "time %q is not HHMM", s)
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, apperrors.Newf(apperrors.ErrInvalidInput, "time %q is not HHMM", s)
	}
	h, m := v/100, v%100
	if m >= 60 || h > 24 || (h == 24 && m > 0) {
		return 0, apperrors.Newf(apperrors.ErrInvalidInput, "time %q out of range", s)
	}
	return h*60 + m, nil
}

// Read parses a delimited export with a header row. Columns are located by
// name, so extra columns and any column order are accepted.
func Read(r io.Reader, delimiter rune) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.Comma = delimiter
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperrors.New(apperrors.ErrInvalidInput, "smart-card export is empty")
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}
	cols, err := locate(header)
	if err != nil {
		return nil, err
	}
	cr.FieldsPerRecord = len(header)

	var records []Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrInvalidInput, "line %d: %v", line, err)
		}
		rec, err := parseRow(row, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Load reads the export at path.
func Load(path string, delimiter rune) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening smart-card export: %w", err)
	}
	defer f.Close()
	return Read(f, delimiter)
}

type columns struct {
	checkIn, checkOut, in, out, card int
}

func locate(header []string) (columns, error) {
	pos := make(map[string]int, len(header))
	for i, name := range header {
		pos[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	var missing []string
	get := func(name string) int {
		i, ok := pos[name]
		if !ok {
			missing = append(missing, name)
		}
		return i
	}
	cols := columns{
		checkIn:  get(ColCheckIn),
		checkOut: get(ColCheckOut),
		in:       get(ColInStation),
		out:      get(ColOutStation),
		card:     get(ColCardID),
	}
	if len(missing) > 0 {
		return columns{}, apperrors.Newf(apperrors.ErrInvalidInput, "missing columns %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

func parseRow(row []string, cols columns) (Record, error) {
	in, err := ParseHHMM(row[cols.checkIn])
	if err != nil {
		return Record{}, err
	}
	out, err := ParseHHMM(row[cols.checkOut])
	if err != nil {
		return Record{}, err
	}
	card := strings.TrimSpace(row[cols.card])
	if card == "" {
		return Record{}, apperrors.New(apperrors.ErrInvalidInput, "empty card id")
	}
	return Record{
		CardID:     card,
		CheckIn:    in,
		CheckOut:   out,
		InStation:  strings.TrimSpace(row[cols.in]),
		OutStation: strings.TrimSpace(row[cols.out]),
	}, nil
}
