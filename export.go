package orgsite

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode"

	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"

	"github.com/eringen/orgsite/content"
)

const (
	upcomingSheet = "Upcoming Events"
	mimeXLSX      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var upcomingHeader = []string{"Title", "Date", "Time", "Location", "Registration"}

// upcomingRows lays out the upcoming events export, header first.
func upcomingRows(events []content.Event) [][]string {
	rows := [][]string{upcomingHeader}
	for _, e := range events {
		registration := e.RegistrationLink
		if registration == "" {
			registration = "N/A"
		}
		rows = append(rows, []string{
			e.Title,
			e.EventDate.Format("Mon Jan 02 2006"),
			fmt.Sprintf("%s - %s", e.StartTime, e.EndTime),
			e.Location,
			registration,
		})
	}
	return rows
}

// exportName builds "<Site_Name>_Upcoming_Events.<ext>" keeping only
// letters and digits from the site name.
func exportName(site, ext string) string {
	var b strings.Builder
	for _, word := range strings.Fields(site) {
		if b.Len() > 0 {
			b.WriteByte('_')
		}
		for _, r := range word {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				b.WriteRune(r)
			}
		}
	}
	if b.Len() > 0 {
		b.WriteByte('_')
	}
	return b.String() + "Upcoming_Events." + ext
}

func (a *App) upcomingEvents(c echo.Context) ([]content.Event, error) {
	events, err := a.Cache.Events(c.Request().Context())
	if err != nil {
		return nil, err
	}
	upcoming, _ := content.PartitionEvents(events, a.now(), content.StartOfDay)
	return upcoming, nil
}

// handleEventsWorkbook downloads the upcoming events as an Excel workbook.
func (a *App) handleEventsWorkbook(c echo.Context) error {
	upcoming, err := a.upcomingEvents(c)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := writeEventsWorkbook(&buf, upcoming); err != nil {
		return fmt.Errorf("build events workbook: %w", err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="%s"`, exportName(a.Config.Name, "xlsx")))
	return c.Blob(http.StatusOK, mimeXLSX, buf.Bytes())
}

func writeEventsWorkbook(w io.Writer, events []content.Event) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", upcomingSheet); err != nil {
		return err
	}
	for i, row := range upcomingRows(events) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(upcomingSheet, cell, &values); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(upcomingSheet, "A", "E", 24); err != nil {
		return err
	}
	return f.Write(w)
}

// handleEventsCSV serves the same export as plain CSV.
func (a *App) handleEventsCSV(c echo.Context) error {
	upcoming, err := a.upcomingEvents(c)
	if err != nil {
		return err
	}
	h := c.Response().Header()
	h.Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	h.Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="%s"`, exportName(a.Config.Name, "csv")))
	c.Response().WriteHeader(http.StatusOK)
	return writeEventsCSV(c.Response(), upcoming)
}

func writeEventsCSV(w io.Writer, events []content.Event) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(upcomingRows(events)); err != nil {
		return err
	}
	return cw.Error()
}
