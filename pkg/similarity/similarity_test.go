package similarity

import (
	"testing"
)

func TestNormalizeIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"J0hn_D0e", "john_doe"},
		{"  Jane Doe ", "janedoe"},
		{"l33t $p3ak", "leetspeak"},
		{"a@b", "aab"},
		{"5t1ll", "stlll"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeIdentifier(tt.in); got != tt.want {
			t.Errorf("NormalizeIdentifier(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestConfusability(t *testing.T) {
	s := Confusability("john_doe", "jhon_doe")
	if s.Ratio == nil || s.EditDistance == nil {
		t.Fatal("Confusability returned nil scores for non-empty input")
	}
	if *s.Ratio < 0.92 {
		t.Errorf("ratio(john_doe, jhon_doe) = %.4f, want >= 0.92", *s.Ratio)
	}
	if *s.EditDistance != 2 {
		t.Errorf("edit distance = %d, want 2", *s.EditDistance)
	}

	same := Confusability("J0HN_DOE", "john_doe")
	if same.Ratio == nil || *same.Ratio != 1 || *same.EditDistance != 0 {
		t.Errorf("lookalike-folded identifiers should be identical, got %+v", same)
	}

	far := Confusability("john_doe", "alice")
	if far.Ratio == nil || *far.Ratio >= 0.92 {
		t.Errorf("unrelated identifiers should not be confusable, got ratio %v", far.Ratio)
	}
}

func TestConfusabilityEmpty(t *testing.T) {
	for _, pair := range [][2]string{{"", "x"}, {"x", "  "}, {"", ""}} {
		s := Confusability(pair[0], pair[1])
		if s.Ratio != nil || s.EditDistance != nil {
			t.Errorf("Confusability(%q, %q) = %+v, want nil scores", pair[0], pair[1], s)
		}
	}
}

func TestConfusabilitySymmetric(t *testing.T) {
	pairs := [][2]string{
		{"john_doe", "jhon_doe"},
		{"martha", "marhta"},
		{"abc", "abcdefgh"},
		{"dixon", "dicksonx"},
		{"x", "yz"},
	}
	for _, p := range pairs {
		ab := Confusability(p[0], p[1])
		ba := Confusability(p[1], p[0])
		if *ab.Ratio != *ba.Ratio || *ab.EditDistance != *ba.EditDistance {
			t.Errorf("Confusability(%q, %q) = (%v, %d), reversed = (%v, %d)",
				p[0], p[1], *ab.Ratio, *ab.EditDistance, *ba.Ratio, *ba.EditDistance)
		}
		if *ab.Ratio < 0 || *ab.Ratio > 1 {
			t.Errorf("ratio out of range: %v", *ab.Ratio)
		}
	}
}

func TestRatio(t *testing.T) {
	if got := Ratio("", ""); got != 0 {
		t.Errorf("Ratio of empty strings = %v, want 0", got)
	}
	if got := Ratio("jane", "jane"); got != 1 {
		t.Errorf("Ratio of equal strings = %v, want 1", got)
	}
	if got := Ratio("jane doe", ""); got != 0 {
		t.Errorf("Ratio with empty side = %v, want 0", got)
	}
}

func TestNormalizeIdentifierIdempotent(t *testing.T) {
	inputs := []string{
		"J0hn D0e",
		"l33t $p3ak",
		"İK",
		"\xff@$",
		"  MiXeD\tCase\n",
		"7w1773r_5ux",
		"ÅSA",
		"",
	}
	for _, in := range inputs {
		once := NormalizeIdentifier(in)
		if twice := NormalizeIdentifier(once); twice != once {
			t.Errorf("NormalizeIdentifier(%q) = %q, applied again = %q", in, once, twice)
		}
	}
}

func TestConfusabilitySelf(t *testing.T) {
	for _, s := range []string{"jane", "john_doe", "a"} {
		got := Confusability(s, s)
		if got.Ratio == nil || got.EditDistance == nil {
			t.Fatalf("Confusability(%q, %q) returned nil scores", s, s)
		}
		if *got.Ratio != 1 || *got.EditDistance != 0 {
			t.Errorf("Confusability(%q, %q) = (%v, %d), want (1, 0)", s, s, *got.Ratio, *got.EditDistance)
		}
	}
}
