package ixpcheck

import "testing"

func TestRateBands(t *testing.T) {
	cases := []struct {
		reachable, total int
		want             string
	}{
		{6, 6, "excellent"},
		{5, 6, "good"},
		{3, 6, "partial"},
		{2, 6, "poor"},
		{0, 0, "poor"},
	}
	for _, c := range cases {
		if got := rate(c.reachable, c.total); got != c.want {
			t.Errorf("rate(%d, %d) = %q, want %q", c.reachable, c.total, got, c.want)
		}
	}
}

func TestEndpointTable(t *testing.T) {
	if len(ixpEndpoints) < 5 {
		t.Errorf("endpoints = %d, want at least 5", len(ixpEndpoints))
	}
	for name, endpoint := range ixpEndpoints {
		if name == "" || endpoint == "" {
			t.Errorf("incomplete entry %q -> %q", name, endpoint)
		}
	}
}
