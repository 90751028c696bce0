package journal

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

const (
	// EntryDateLayout is the date line written at the top of every entry.
	EntryDateLayout = "2006/01/02"
	// DayLayout is the YYYY-MM-DD form used for digest ranges.
	DayLayout = "2006-01-02"
)

var ErrEmptyTemplate = errors.New("entry template is empty")

var entryDatePattern = regexp.MustCompile(`\d{4}/\d{2}/\d{2}`)

// EntryDate finds the first YYYY/MM/DD date in body.
func EntryDate(body string) (time.Time, bool) {
	for _, match := range entryDatePattern.FindAllString(body, -1) {
		parsed, err := time.Parse(EntryDateLayout, match)
		if err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// PreviousDay returns the calendar day before t in YYYY-MM-DD form.
func PreviousDay(t time.Time) string {
	return t.AddDate(0, 0, -1).Format(DayLayout)
}

// NewEntryBody builds the body of a new entry dated now from template.
func NewEntryBody(now time.Time, template string) (string, error) {
	if strings.TrimSpace(template) == "" {
		return "", ErrEmptyTemplate
	}
	return now.Format(EntryDateLayout) + "\n\n" + template, nil
}
