package astrology

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestMeanNorthNodeAtJ2000(t *testing.T) {
	j2000 := time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)
	got := MeanNorthNode(j2000)
	if math.Abs(got-125.0445) > 0.01 {
		t.Fatalf("MeanNorthNode(J2000) = %f, want ~125.0445", got)
	}
}

func TestNodesForKnownDates(t *testing.T) {
	tests := []struct {
		date  string
		north Sign
		south Sign
	}{
		{date: "2000-01-01", north: Leo, south: Aquarius},
		{date: "1990-06-15", north: Aquarius, south: Leo},
		{date: "2019-01-01", north: Cancer, south: Capricorn},
	}
	for _, tt := range tests {
		b, err := ParseBirth(tt.date, "", 0, 0)
		if err != nil {
			t.Fatalf("ParseBirth(%s): %v", tt.date, err)
		}
		north, south := Nodes(b)
		if north != tt.north || south != tt.south {
			t.Fatalf("%s: nodes = %s/%s, want %s/%s", tt.date, north, south, tt.north, tt.south)
		}
	}
}

func TestSunSign(t *testing.T) {
	tests := []struct {
		when time.Time
		want Sign
	}{
		{when: time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC), want: Capricorn},
		{when: time.Date(1990, 6, 15, 12, 0, 0, 0, time.UTC), want: Gemini},
		{when: time.Date(2024, 8, 5, 12, 0, 0, 0, time.UTC), want: Leo},
		{when: time.Date(2024, 11, 10, 12, 0, 0, 0, time.UTC), want: Scorpio},
	}
	for _, tt := range tests {
		if got := SunSign(tt.when); got != tt.want {
			t.Fatalf("SunSign(%s) = %s, want %s", tt.when.Format("2006-01-02"), got, tt.want)
		}
	}
}

func TestSignOfWrapsLongitude(t *testing.T) {
	tests := []struct {
		lon  float64
		want Sign
	}{
		{0, Aries},
		{29.99, Aries},
		{30, Taurus},
		{359.9, Pisces},
		{360, Aries},
		{-1, Pisces},
		{725, Aries},
	}
	for _, tt := range tests {
		if got := SignOf(tt.lon); got != tt.want {
			t.Fatalf("SignOf(%v) = %s, want %s", tt.lon, got, tt.want)
		}
	}
}

func TestPositionsSouthNodeOpposite(t *testing.T) {
	b, err := ParseBirth("1985-03-10", "08:30", 40.7, -74.0)
	if err != nil {
		t.Fatalf("ParseBirth: %v", err)
	}
	if !b.HasTime || b.Time.Hour() != 8 || b.Time.Minute() != 30 {
		t.Fatalf("unexpected birth time %v", b.Time)
	}
	pos := Positions(b)
	if len(pos) != 4 {
		t.Fatalf("expected 4 placements, got %d", len(pos))
	}
	var north, south float64
	for _, p := range pos {
		if p.Longitude < 0 || p.Longitude >= 360 {
			t.Fatalf("%s longitude out of range: %f", p.Body, p.Longitude)
		}
		if p.SignName != p.Sign.String() {
			t.Fatalf("%s sign name mismatch", p.Body)
		}
		switch p.Body {
		case NorthNode:
			north = p.Longitude
		case SouthNode:
			south = p.Longitude
		}
	}
	diff := math.Mod(south-north+360, 360)
	if math.Abs(diff-180) > 0.02 {
		t.Fatalf("south node not opposite north: %f vs %f", north, south)
	}
}

func TestParseBirth(t *testing.T) {
	b, err := ParseBirth("03/10/1985", "bogus", 0, 0)
	if err != nil {
		t.Fatalf("ParseBirth: %v", err)
	}
	if b.HasTime || b.Time.Hour() != 12 {
		t.Fatalf("expected noon default for unparseable time, got %v", b.Time)
	}
	if b.Time.Month() != time.March || b.Time.Day() != 10 {
		t.Fatalf("unexpected date %v", b.Time)
	}

	b, err = ParseBirth("1985-03-10T23:15:00+02:00", "", 0, 0)
	if err != nil {
		t.Fatalf("ParseBirth rfc3339: %v", err)
	}
	if b.Time.Hour() != 21 || b.Time.Location() != time.UTC {
		t.Fatalf("expected UTC-normalized time, got %v", b.Time)
	}

	for _, bad := range []string{"", "yesterday", "1985-13-40"} {
		if _, err := ParseBirth(bad, "", 0, 0); !errors.Is(err, ErrInvalidBirthDate) {
			t.Fatalf("ParseBirth(%q) err = %v, want ErrInvalidBirthDate", bad, err)
		}
	}
}

func TestSeason(t *testing.T) {
	want := map[time.Month]string{
		time.January: "winter", time.February: "winter", time.March: "spring",
		time.May: "spring", time.June: "summer", time.August: "summer",
		time.September: "autumn", time.November: "autumn", time.December: "winter",
	}
	for m, s := range want {
		if got := Season(m); got != s {
			t.Fatalf("Season(%s) = %s, want %s", m, got, s)
		}
	}
}
