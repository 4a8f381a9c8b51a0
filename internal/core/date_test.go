package core

import "testing"

func TestDaysUntil(t *testing.T) {
	tests := []struct {
		name  string
		date  CalendarDate
		today CalendarDate
		want  int
	}{
		{"three days out", NewDate(2025, 1, 10), NewDate(2025, 1, 7), 3},
		{"one day past", NewDate(2025, 1, 10), NewDate(2025, 1, 11), -1},
		{"same day", NewDate(2025, 1, 10), NewDate(2025, 1, 10), 0},
		{"across month boundary", NewDate(2025, 2, 2), NewDate(2025, 1, 31), 2},
		{"across year boundary", NewDate(2026, 1, 1), NewDate(2025, 12, 30), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.date.DaysUntil(tt.today); got != tt.want {
				t.Errorf("DaysUntil = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAddMonthsClampsToMonthEnd(t *testing.T) {
	tests := []struct {
		from CalendarDate
		n    int
		want CalendarDate
	}{
		{NewDate(2025, 1, 31), 1, NewDate(2025, 2, 28)},
		{NewDate(2024, 1, 31), 1, NewDate(2024, 2, 29)}, // leap year
		{NewDate(2025, 1, 31), 3, NewDate(2025, 4, 30)},
		{NewDate(2025, 1, 15), 1, NewDate(2025, 2, 15)},
		{NewDate(2025, 11, 30), 3, NewDate(2026, 2, 28)},
	}
	for _, tt := range tests {
		if got := tt.from.AddMonths(tt.n); !got.Equal(tt.want.Time) {
			t.Errorf("%s + %d months = %s, want %s", tt.from, tt.n, got, tt.want)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-09")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.String() != "2025-03-09" {
		t.Errorf("round trip = %s", d)
	}
	if _, err := ParseDate("09/03/2025"); err == nil {
		t.Errorf("expected error for wrong layout")
	}
}

func TestCalendarDateJSON(t *testing.T) {
	b, err := NewDate(2025, 3, 9).MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2025-03-09"` {
		t.Errorf("marshal = %s", b)
	}
	var d CalendarDate
	if err := d.UnmarshalJSON([]byte("null")); err != nil || !d.IsEmpty() {
		t.Errorf("null must decode to empty date, err=%v", err)
	}
	if err := d.UnmarshalJSON([]byte(`"2025-03-09"`)); err != nil || d.String() != "2025-03-09" {
		t.Errorf("unmarshal = %s, err=%v", d, err)
	}
}
