package buildinfo

import "testing"

func TestDisplayVersion(t *testing.T) {
	prev := Version
	t.Cleanup(func() { Version = prev })

	cases := map[string]string{
		"2026.1.1": "v2026.1.1",
		"v1.2.3":   "v1.2.3",
		"nightly":  "nightly",
	}
	for in, want := range cases {
		Version = in
		if got := DisplayVersion(); got != want {
			t.Fatalf("DisplayVersion(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestInfoInline(t *testing.T) {
	cases := []struct {
		in   Info
		want string
	}{
		{Info{Version: "v2026.1.2", Commit: "abcdef1234567890", Date: "2026-01-14T11:36:49Z"}, "v2026.1.2 · abcdef1 · 2026-01-14"},
		{Info{Version: "dev", Commit: "none", Date: "unknown"}, "dev"},
		{Info{Version: "v1.0.0", Commit: "abc", Date: "2026-02-03 10:00"}, "v1.0.0 · abc · 2026-02-03"},
	}
	for _, tc := range cases {
		if got := tc.in.Inline(); got != tc.want {
			t.Fatalf("Inline(%+v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
