package pdf

import "testing"

func TestFindDOI(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			"plain doi",
			"Anal. Chem. 2019 DOI: 10.1021/acs.analchem.9b01234 Received March 2019",
			"10.1021/acs.analchem.9b01234",
		},
		{
			"doi at sentence end",
			"available at https://doi.org/10.1021/ja0211508. All rights reserved.",
			"10.1021/ja0211508",
		},
		{
			"first of several",
			"see 10.1016/j.jasms.2020.01.001 and 10.1021/abc123",
			"10.1016/j.jasms.2020.01.001",
		},
		{
			"no doi",
			"Supplementary information for native mass spectrometry.",
			"",
		},
		{
			"bare prefix is not a doi",
			"section 10.2 of the manual",
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FindDOI(tt.text); got != tt.want {
				t.Errorf("FindDOI(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}
