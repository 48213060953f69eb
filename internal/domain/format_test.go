package domain

import "testing"

func TestFormatValuation(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	cases := []struct {
		name string
		in   *float64
		want string
	}{
		{"nil", nil, "N/A"},
		{"zero", f(0), "N/A"},
		{"millions", f(1_240_000), "$1.2M"},
		{"thousands", f(850_000), "$850K"},
		{"dollars", f(950), "$950"},
		{"rounds up into millions", f(999_999), "$1.0M"},
		{"rounds up into thousands", f(999.7), "$1K"},
		{"just under a thousand", f(999.4), "$999"},
		{"half thousand stays dollars", f(500), "$500"},
		{"thousands round half up", f(998_500), "$999K"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FormatValuation(tc.in); got != tc.want {
				t.Fatalf("FormatValuation=%q want=%q", got, tc.want)
			}
		})
	}
}

func TestFormatPriceGroupsDigits(t *testing.T) {
	if got := FormatPrice(1250000); got != "$1,250,000" {
		t.Fatalf("FormatPrice=%q want=%q", got, "$1,250,000")
	}
}
