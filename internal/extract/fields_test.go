package extract

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestYear(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{in: "2022 Toyota LandCruiser", want: 2022},
		{in: "Toyota LandCruiser GXL (1985)", want: 1985},
		{in: "Built 1949, restored", want: 0},
		{in: "Lot 61234567", want: 0},
		{in: "", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Year(tt.in)); diff != "" {
				t.Errorf("Year() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPrice(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{in: "Asking $78,000", want: 78000},
		{in: "$78000 drive away", want: 78000},
		{in: "Only $78k ono", want: 78000},
		{in: "$79.5K", want: 79500},
		{in: "$78,000.00 incl GST", want: 78000},
		{in: "Deposit $1,200 then $65,500", want: 65500},
		{in: "$4,500 parts car", want: 0},
		{in: "$1,234,567", want: 0},
		{in: "POA", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Price(tt.in)); diff != "" {
				t.Errorf("Price() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOdometer(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{in: "120,000 km", want: 120000},
		{in: "Odo 85000kms", want: 85000},
		{in: "only 120k km", want: 120000},
		{in: "64,250 kilometres", want: 64250},
		{in: "2.8L diesel", want: 0},
		{in: "$78,000", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Odometer(tt.in)); diff != "" {
				t.Errorf("Odometer() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBareOdometer(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{in: "123,456", want: 123456},
		{in: " 85000 ", want: 85000},
		{in: "2019", want: 0},
		{in: "999", want: 0},
		{in: "85000 km", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, bareOdometer(tt.in)); diff != "" {
				t.Errorf("bareOdometer() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestState(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Located Brisbane QLD 4000", want: "QLD"},
		{in: "Perth, Western Australia", want: "WA"},
		{in: "Dubbo NSW or Wagga VIC", want: "NSW"},
		{in: "nationwide delivery", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, State(tt.in)); diff != "" {
				t.Errorf("State() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
