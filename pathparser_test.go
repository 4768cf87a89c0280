package imgfs

import "testing"

func TestParsePath(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"/", nil},
		{"", nil},
		{"/a", []string{"a"}},
		{"/a/b", []string{"a", "b"}},
		{"/a/", []string{"a"}},
		{"//a//b//", []string{"a", "b"}},
	}

	for _, tc := range cases {
		got := parsePath(tc.in)
		if len(got) != len(tc.want) {
			t.Errorf("parsePath(%q) = %v, want %v", tc.in, got, tc.want)
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("parsePath(%q) = %v, want %v", tc.in, got, tc.want)
				break
			}
		}
	}
}

func TestBasename(t *testing.T) {
	cases := map[string]string{
		"/":        "",
		"/a":       "a",
		"/a/b":     "b",
		"/a/b/c/":  "c",
	}
	for in, want := range cases {
		if got := basename(in); got != want {
			t.Errorf("basename(%q) = %q, want %q", in, got, want)
		}
	}
}
