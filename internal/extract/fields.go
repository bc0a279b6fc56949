package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Plausible field windows. Values outside them are treated as absent.
const (
	MinYear     = 1950
	MinPrice    = 5_000
	MaxPrice    = 500_000
	MinOdometer = 1
	MaxOdometer = 1_500_000
)

var (
	yearRe     = regexp.MustCompile(`\b(19[5-9]\d|20\d{2})\b`)
	priceRe    = regexp.MustCompile(`(?i)\$\s?(?:(\d{1,3}(?:,\d{3})+|\d{4,6})(?:\.\d{2})?|(\d{1,3}(?:\.\d+)?)\s?k)\b`)
	odometerRe = regexp.MustCompile(`(?i)\b(?:(\d{1,3}(?:,\d{3})+|\d{1,7})|(\d{1,4})\s?k)\s?(?:km|kms|klms|kilometres|kilometers)\b`)
	bareNumRe  = regexp.MustCompile(`^(\d{1,3}(?:,\d{3})+|\d{4,6})$`)
	stateRe    = regexp.MustCompile(`\b(NSW|VIC|QLD|WA|SA|TAS|NT|ACT|New South Wales|Victoria|Queensland|Western Australia|South Australia|Tasmania|Northern Territory|Australian Capital Territory)\b`)
)

var stateNames = map[string]string{
	"New South Wales":              "NSW",
	"Victoria":                     "VIC",
	"Queensland":                   "QLD",
	"Western Australia":            "WA",
	"South Australia":              "SA",
	"Tasmania":                     "TAS",
	"Northern Territory":           "NT",
	"Australian Capital Territory": "ACT",
}

// maxYear is the newest plausible model year.
func maxYear() int {
	return time.Now().Year() + 1
}

// Year returns the first plausible model year in s, or 0.
func Year(s string) int {
	hi := maxYear()
	for _, m := range yearRe.FindAllString(s, -1) {
		y, _ := strconv.Atoi(m)
		if y >= MinYear && y <= hi {
			return y
		}
	}
	return 0
}

// Price returns the first currency amount in s within the plausible window.
func Price(s string) int {
	for _, m := range priceRe.FindAllStringSubmatch(s, -1) {
		var v int
		switch {
		case m[1] != "":
			v = atoi(m[1])
		case m[2] != "":
			f, err := strconv.ParseFloat(m[2], 64)
			if err != nil {
				continue
			}
			v = int(f * 1000)
		}
		if v >= MinPrice && v <= MaxPrice {
			return v
		}
	}
	return 0
}

// Odometer returns the first distance reading in s that carries a unit.
func Odometer(s string) int {
	for _, m := range odometerRe.FindAllStringSubmatch(s, -1) {
		var v int
		switch {
		case m[1] != "":
			v = atoi(m[1])
		case m[2] != "":
			v = atoi(m[2]) * 1000
		}
		if v >= MinOdometer && v <= MaxOdometer {
			return v
		}
	}
	return 0
}

// bareOdometer accepts a line holding nothing but a 4-6 digit number. It is
// only trusted inside a results-page card, where such lines are mileage.
func bareOdometer(line string) int {
	line = strings.TrimSpace(line)
	if !bareNumRe.MatchString(line) {
		return 0
	}
	v := atoi(line)
	if v < 1_000 || v > 999_999 {
		return 0
	}
	if !strings.Contains(line, ",") && v >= MinYear && v <= maxYear() {
		return 0
	}
	return v
}

// State returns the first Australian state or territory code in s.
func State(s string) string {
	m := stateRe.FindString(s)
	if full, ok := stateNames[m]; ok {
		return full
	}
	return m
}

func atoi(s string) int {
	v, _ := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	return v
}
