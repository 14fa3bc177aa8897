package core

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDate is returned when a date string matches none of the accepted layouts.
var ErrInvalidDate = errors.New("invalid date")

// excelEpoch is day zero of the spreadsheet serial date system (1900 based).
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// maxSerialDate is the serial of 9999-12-31, the last day spreadsheets render.
const maxSerialDate = 2958465

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"1/2/2006",
	"01-02-06",
	"2006/01/02",
}

// ParseDate parses a transaction date as found in spreadsheets or JSON bodies.
// Plain numbers are read as spreadsheet serial dates and must fall between 1
// and the serial of 9999-12-31. A bare four-digit string such as "2024" is
// rejected rather than guessed at: it is as likely a year as a serial.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if isYearLike(s) || !(serial > 0 && serial < maxSerialDate+1) {
			return time.Time{}, ErrInvalidDate
		}
		days := int(serial)
		frac := serial - float64(days)
		t := excelEpoch.AddDate(0, 0, days).Add(time.Duration(frac * float64(24*time.Hour)))
		return t, nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, ErrInvalidDate
}

func isYearLike(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
