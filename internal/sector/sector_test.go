package sector

import (
	"sort"
	"testing"
)

func TestLookup_CaseInsensitive(t *testing.T) {
	ref := NewReference()

	for _, name := range []string{"technology", "Technology", "TECHNOLOGY"} {
		symbols, ok := ref.Lookup(name)
		if !ok {
			t.Fatalf("Lookup(%q) failed", name)
		}
		if len(symbols) == 0 {
			t.Fatalf("Lookup(%q) returned no symbols", name)
		}
	}
}

func TestLookup_Aliases(t *testing.T) {
	ref := NewReference()

	cases := map[string]string{
		"tech":       "technology",
		"financials": "finance",
		"banking":    "finance",
		"health":     "healthcare",
		"retail":     "consumer",
	}
	for alias, canonical := range cases {
		if got := ref.Canonical(alias); got != canonical {
			t.Errorf("Canonical(%q) = %q, want %q", alias, got, canonical)
		}
		aliased, ok := ref.Lookup(alias)
		if !ok {
			t.Errorf("Lookup(%q) failed", alias)
			continue
		}
		direct, _ := ref.Lookup(canonical)
		if len(aliased) != len(direct) {
			t.Errorf("alias %q resolves to a different universe than %q", alias, canonical)
		}
	}
}

func TestLookup_UnknownSector(t *testing.T) {
	ref := NewReference()

	if _, ok := ref.Lookup("gaming"); ok {
		t.Error("expected gaming to be unsupported")
	}
	if got := ref.Canonical("gaming"); got != "" {
		t.Errorf("Canonical(gaming) = %q, want empty", got)
	}
}

func TestSupported_SortedAndComplete(t *testing.T) {
	ref := NewReference()

	names := ref.Supported()
	if len(names) != 5 {
		t.Fatalf("expected 5 sectors, got %d: %v", len(names), names)
	}
	if !sort.StringsAreSorted(names) {
		t.Errorf("supported sectors not sorted: %v", names)
	}
	for _, name := range names {
		symbols, ok := ref.Lookup(name)
		if !ok {
			t.Errorf("supported sector %q has no universe", name)
			continue
		}
		if len(symbols) < 10 || len(symbols) > 25 {
			t.Errorf("sector %q universe size %d out of expected range", name, len(symbols))
		}
		seen := make(map[string]bool, len(symbols))
		for _, s := range symbols {
			if seen[s] {
				t.Errorf("sector %q lists %s twice", name, s)
			}
			seen[s] = true
		}
	}
}
