// Package astrology computes the handful of placements the compatibility
// report needs: Sun, Moon and the mean lunar nodes, using low-precision
// ephemeris formulas (Meeus, Astronomical Algorithms, ch. 25, 47).
package astrology

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Sign is a tropical zodiac sign.
type Sign int

const (
	Aries Sign = iota
	Taurus
	Gemini
	Cancer
	Leo
	Virgo
	Libra
	Scorpio
	Sagittarius
	Capricorn
	Aquarius
	Pisces
)

var signNames = [...]string{
	"Aries", "Taurus", "Gemini", "Cancer", "Leo", "Virgo",
	"Libra", "Scorpio", "Sagittarius", "Capricorn", "Aquarius", "Pisces",
}

func (s Sign) String() string {
	if s < Aries || s > Pisces {
		return "Unknown"
	}
	return signNames[s]
}

// Body names a computed point.
type Body string

const (
	Sun       Body = "Sun"
	Moon      Body = "Moon"
	NorthNode Body = "North Node"
	SouthNode Body = "South Node"
)

// Placement is an ecliptic longitude in degrees [0, 360) and its sign.
type Placement struct {
	Body      Body    `json:"body"`
	Longitude float64 `json:"longitude"`
	Sign      Sign    `json:"-"`
	SignName  string  `json:"sign"`
}

// Birth holds the inputs for a chart.
type Birth struct {
	Time      time.Time
	HasTime   bool
	Latitude  float64
	Longitude float64
}

// ErrInvalidBirthDate is returned for dates that cannot be parsed.
var ErrInvalidBirthDate = errors.New("invalid birth date")

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05", "01/02/2006", "2006/01/02"}

// ParseBirth parses a birth date, an optional "HH:MM" time and coordinates.
// Times without a zone are taken as UTC; a missing time defaults to noon.
func ParseBirth(date, clock string, lat, lon float64) (Birth, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return Birth{}, ErrInvalidBirthDate
	}
	var (
		t   time.Time
		err error
	)
	for _, layout := range dateLayouts {
		t, err = time.Parse(layout, date)
		if err == nil {
			break
		}
	}
	if err != nil {
		return Birth{}, fmt.Errorf("%w: %q", ErrInvalidBirthDate, date)
	}
	if strings.Contains(date, "T") {
		return Birth{Time: t.UTC(), HasTime: true, Latitude: lat, Longitude: lon}, nil
	}

	b := Birth{Latitude: lat, Longitude: lon}
	hour, minute := 12, 0
	if h, m, ok := parseClock(clock); ok {
		hour, minute = h, m
		b.HasTime = true
	}
	b.Time = time.Date(t.Year(), t.Month(), t.Day(), hour, minute, 0, 0, time.UTC)
	return b, nil
}

func parseClock(clock string) (int, int, bool) {
	clock = strings.TrimSpace(clock)
	if clock == "" {
		return 0, 0, false
	}
	parts := strings.SplitN(clock, ":", 3)
	if len(parts) < 2 {
		return 0, 0, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}

// SignOf returns the sign containing an ecliptic longitude.
func SignOf(longitude float64) Sign {
	return Sign(int(normalize(longitude) / 30))
}

// Positions returns Sun, Moon, North Node and South Node placements.
func Positions(b Birth) []Placement {
	t := b.Time
	north := MeanNorthNode(t)
	return []Placement{
		place(Sun, SunLongitude(t)),
		place(Moon, MoonLongitude(t)),
		place(NorthNode, north),
		place(SouthNode, north+180),
	}
}

// Nodes returns the North and South Node signs for a birth.
func Nodes(b Birth) (north, south Sign) {
	lon := MeanNorthNode(b.Time)
	return SignOf(lon), SignOf(lon + 180)
}

// MeanNorthNode returns the longitude of the mean ascending lunar node.
func MeanNorthNode(t time.Time) float64 {
	T := julianCenturies(t)
	omega := 125.0445479 -
		1934.1362891*T +
		0.0020754*T*T +
		T*T*T/467441 -
		T*T*T*T/60616000
	return normalize(omega)
}

// SunSign returns the tropical sign the Sun occupies at t.
func SunSign(t time.Time) Sign {
	return SignOf(SunLongitude(t))
}

// SunLongitude returns the Sun's apparent ecliptic longitude (about 0.01° accuracy).
func SunLongitude(t time.Time) float64 {
	T := julianCenturies(t)
	L0 := 280.46646 + 36000.76983*T + 0.0003032*T*T
	M := radians(357.52911 + 35999.05029*T - 0.0001537*T*T)
	C := (1.914602-0.004817*T-0.000014*T*T)*math.Sin(M) +
		(0.019993-0.000101*T)*math.Sin(2*M) +
		0.000289*math.Sin(3*M)
	omega := radians(125.04 - 1934.136*T)
	return normalize(L0 + C - 0.00569 - 0.00478*math.Sin(omega))
}

// MoonLongitude returns the Moon's ecliptic longitude from the principal terms
// (about 0.3° accuracy).
func MoonLongitude(t time.Time) float64 {
	d := julianDay(t) - 2451545.0
	L := 218.316 + 13.176396*d
	Mm := radians(134.963 + 13.064993*d)
	Ms := radians(357.529 + 0.98560028*d)
	D := radians(297.850 + 12.190749*d)
	return normalize(L +
		6.289*math.Sin(Mm) +
		1.274*math.Sin(2*D-Mm) +
		0.658*math.Sin(2*D) -
		0.186*math.Sin(Ms) -
		0.114*math.Sin(2*radians(93.272+13.229350*d)))
}

// Season buckets a month into the northern-hemisphere season name.
func Season(month time.Month) string {
	switch month {
	case time.March, time.April, time.May:
		return "spring"
	case time.June, time.July, time.August:
		return "summer"
	case time.September, time.October, time.November:
		return "autumn"
	default:
		return "winter"
	}
}

func place(body Body, lon float64) Placement {
	lon = normalize(lon)
	s := SignOf(lon)
	return Placement{Body: body, Longitude: math.Round(lon*100) / 100, Sign: s, SignName: s.String()}
}

func julianDay(t time.Time) float64 {
	return float64(t.UTC().UnixNano())/float64(24*time.Hour) + 2440587.5
}

func julianCenturies(t time.Time) float64 {
	return (julianDay(t) - 2451545.0) / 36525
}

func normalize(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
