package roster

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"checkin-app-go/internal/domain/actor"
)

const formulaPrefixes = "=+-@\t\r"

var csvHeader = []string{
	"checked_in_at", "type", "name", "phone", "email", "adults", "children",
	"first_time", "contact_ok", "prayer_request", "picked_up_at",
	"emergency_contact", "emergency_phone", "allergies", "notes",
}

// ExportCSV writes the roster selected by query as CSV to w.
func (s *Service) ExportCSV(ctx context.Context, a *actor.Actor, query Query, w io.Writer) error {
	entries, err := s.ListRoster(ctx, a, query)
	if err != nil {
		return err
	}

	out := csv.NewWriter(w)
	if err := out.Write(csvHeader); err != nil {
		return err
	}
	for _, e := range entries {
		record := []string{
			e.CheckedInAt.UTC().Format(time.RFC3339),
			string(e.Type),
			text(&e.DisplayName),
			text(e.Phone),
			text(e.Email),
			strconv.Itoa(e.Adults),
			strconv.Itoa(e.Children),
			strconv.FormatBool(e.FirstTime),
			strconv.FormatBool(e.ContactOK),
			text(e.PrayerRequest),
			formatTime(e.PickedUpAt),
			text(e.EmergencyContactName),
			text(e.EmergencyContactPhone),
			text(e.Allergies),
			text(e.Notes),
		}
		if err := out.Write(record); err != nil {
			return err
		}
	}
	out.Flush()
	return out.Error()
}

// text renders a free-text cell. Values a spreadsheet would evaluate as a
// formula are prefixed with a quote.
func text(value *string) string {
	if value == nil {
		return ""
	}
	if *value != "" && strings.ContainsRune(formulaPrefixes, rune((*value)[0])) {
		return "'" + *value
	}
	return *value
}

func formatTime(value *time.Time) string {
	if value == nil {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}
