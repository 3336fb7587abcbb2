package textnorm

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Hello", "Hello."},
		{"already terminated", "Hello.", "Hello."},
		{"question mark kept", "Ready?", "Ready?"},
		{"comma kept", "well,", "well,"},
		{"whitespace trimmed", "  Hello  ", "Hello."},
		{"crlf flattened", "line one\r\nline two", "line one line two."},
		{"lf flattened", "line one\nline two", "line one line two."},
		{"curly single quotes", "it’s fine", "it's fine."},
		{"curly double quotes", "she said “hi”", `she said "hi".`},
		{"empty", "", ""},
		{"whitespace only", "  \r\n \n ", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.in); got != tc.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"Hello", "multi\nline text", "quoted “text”", "done!"}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Fatalf("not idempotent: %q -> %q -> %q", in, once, twice)
		}
	}
}
