package sanitize

import (
	"strings"
	"testing"
)

func TestText(t *testing.T) {
	cases := map[string]string{
		"  Sunset   cruise\n for 12 ": "Sunset cruise for 12",
		"<b>Birthday</b> party":       "Birthday party",
		"&lt;script&gt;x":             "x",
		"Champagne & caviar":          "Champagne & caviar",
	}
	for in, want := range cases {
		if got := Text(in); got != want {
			t.Errorf("%q: expected %q, got %q", in, want, got)
		}
	}
}

func TestTextTruncates(t *testing.T) {
	got := Text(strings.Repeat("a", MaxTextLength+50))
	if len(got) != MaxTextLength {
		t.Fatalf("expected %d runes, got %d", MaxTextLength, len(got))
	}
}

func TestTextPtr(t *testing.T) {
	if TextPtr(nil) != nil {
		t.Fatal("expected nil")
	}
	blank := "  <br> "
	if TextPtr(&blank) != nil {
		t.Fatal("expected blank input to collapse to nil")
	}
}
