// Package export writes the diary as a spreadsheet-friendly CSV document.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/atinyakov/FoodDiary/internal/models"
)

// ErrNothingToExport is returned for an empty diary.
var ErrNothingToExport = errors.New("nothing to export")

// ContentType is the MIME type of the exported document.
const ContentType = "text/csv; charset=utf-8"

const (
	bom        = "\ufeff"
	dateLayout = "02.01.2006 15:04"
	fileLayout = "02-01-2006"
)

var header = []string{"Дата и время", "Продукты", "Аллергия"}

// Write renders entries as a semicolon separated CSV preceded by a UTF-8 BOM,
// so spreadsheet tools pick the right encoding. Dates are shown in loc.
func Write(w io.Writer, entries []models.Entry, loc *time.Location) error {
	if len(entries) == 0 {
		return ErrNothingToExport
	}
	if loc == nil {
		loc = time.Local
	}

	if _, err := io.WriteString(w, bom); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}

	cw := csv.NewWriter(w)
	cw.Comma = ';'

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, e := range entries {
		row := []string{
			e.Date.In(loc).Format(dateLayout),
			strings.Join(e.Products, ", "),
			yesNo(e.HasAllergy),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write entry %s: %w", e.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// FileName returns the suggested download name for an export made at now.
func FileName(now time.Time) string {
	return "дневник_питания_" + now.Format(fileLayout) + ".csv"
}

func yesNo(b bool) string {
	if b {
		return "Да"
	}
	return "Нет"
}
