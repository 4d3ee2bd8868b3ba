package version

import "testing"

func TestCompareOrdering(t *testing.T) {
	// Each row must sort strictly before the next.
	ordered := []string{
		"1.0.dev0",
		"1.0a1",
		"1.0",
		"1.0.post1",
		"1.0.1",
		"1!0.1",
	}
	for i := 0; i < len(ordered)-1; i++ {
		a := MustParse(ordered[i])
		b := MustParse(ordered[i+1])
		if !a.LessThan(b) {
			t.Errorf("expected %q < %q", ordered[i], ordered[i+1])
		}
		if !b.GreaterThan(a) {
			t.Errorf("expected %q > %q", ordered[i+1], ordered[i])
		}
	}
}

func TestCompareEquivalentPadding(t *testing.T) {
	a := MustParse("1.0")
	b := MustParse("1.0.0")
	if a.Compare(b) != 0 {
		t.Fatalf("expected 1.0 == 1.0.0, got %d", a.Compare(b))
	}
}

func TestTotalOrder(t *testing.T) {
	versions := []string{"1.0", "1.0.1", "2.0", "1.0a1", "0.9", "1.0.dev1", "1.0+local1", "1.0+local2"}
	for _, sa := range versions {
		for _, sb := range versions {
			a, b := MustParse(sa), MustParse(sb)
			lt, eq, gt := a.LessThan(b), a.Equal(b), a.GreaterThan(b)
			count := 0
			for _, v := range []bool{lt, eq, gt} {
				if v {
					count++
				}
			}
			if count != 1 {
				t.Errorf("total order violated for %q vs %q: lt=%v eq=%v gt=%v", sa, sb, lt, eq, gt)
			}
		}
	}
}

func TestStartsWithAndBump(t *testing.T) {
	a := MustParse("1.2.3")
	prefix := MustParse("1.2")
	if !a.StartsWith(prefix) {
		t.Fatalf("expected %q to start with %q", a, prefix)
	}
	if !a.LessThan(prefix.Bump()) {
		t.Fatalf("expected %q < bump(%q) = %q", a, prefix, prefix.Bump())
	}
	if !a.GreaterThan(prefix) && !a.Equal(prefix) {
		// StartsWith implies a >= prefix.
		t.Fatalf("expected %q >= %q", a, prefix)
	}
}

func TestCompatibleWith(t *testing.T) {
	base := MustParse("2.2")
	if !MustParse("2.3").CompatibleWith(base) {
		t.Errorf("expected 2.3 to be compatible with ~=2.2")
	}
	if MustParse("3.0").CompatibleWith(base) {
		t.Errorf("expected 3.0 to not be compatible with ~=2.2")
	}
	if MustParse("2.1").CompatibleWith(base) {
		t.Errorf("expected 2.1 to not be compatible with ~=2.2")
	}
}

func TestRoundTrip(t *testing.T) {
	canonical := []string{"1.2.3", "1.0.a.1", "2!1.0", "1.0+local.1", "1.0.post.1", "1.0.dev.0"}
	for _, s := range canonical {
		v := MustParse(s)
		if v.String() != s {
			t.Errorf("round-trip mismatch: parsed %q, rendered %q", s, v.String())
		}
		reparsed := MustParse(v.String())
		if !v.Equal(reparsed) {
			t.Errorf("round-trip value mismatch for %q", s)
		}
	}
}

func TestParseErrors(t *testing.T) {
	cases := []string{"", "abc!1.0", "1.0+"}
	for _, c := range cases {
		if _, err := Parse(c); err == nil {
			t.Errorf("expected error parsing %q", c)
		}
	}
}
