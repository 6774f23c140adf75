package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/WessleyAI/tourvec/engine/domain"
)

const utf8BOM = "\ufeff"

// ReadPlaces parses a tourist-site CSV. The header must carry every required
// column; other columns are ignored. Place ids are the 0-based data-row index.
// A malformed CreateDate fails the whole read. Quotes inside unquoted fields
// are taken literally, and text fields keep their surrounding whitespace.
func ReadPlaces(r io.Reader, fileName string, loc *time.Location) ([]domain.Place, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &domain.MissingColumnsError{Columns: domain.MissingColumns(nil)}
	}
	if err != nil {
		return nil, fmt.Errorf("ingest: read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	if err := domain.ValidateHeader(header); err != nil {
		return nil, err
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}

	var places []domain.Place
	for row := 0; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return places, nil
		}
		if err != nil {
			return nil, fmt.Errorf("ingest: read row %d: %w", row, err)
		}
		field := func(name string) string {
			if i := col[name]; i < len(rec) {
				return rec[i]
			}
			return ""
		}

		created, err := domain.ParseDate(strings.TrimSpace(field(domain.ColCreateDate)), loc)
		if err != nil {
			return nil, domain.NewValidationError(row, domain.ColCreateDate, field(domain.ColCreateDate), err)
		}
		places = append(places, domain.Place{
			ID:          strconv.Itoa(row),
			Name:        field(domain.ColName),
			Category:    field(domain.ColType),
			Address:     field(domain.ColAddress),
			Phone:       field(domain.ColTel),
			City:        field(domain.ColCity),
			Town:        field(domain.ColTown),
			CreatedAt:   created,
			Description: field(domain.ColHostWords),
			FileName:    fileName,
		})
	}
}
