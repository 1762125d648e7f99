package registry

import (
	"testing"
)

func TestSplitParagraphs(t *testing.T) {
	paras := SplitParagraphs("A\n\nB\n\nC")
	if len(paras) != 3 {
		t.Fatalf("expected 3 paragraphs, got %d", len(paras))
	}
	want := []string{"A", "B", "C"}
	for i, p := range paras {
		if p.Order != i+1 {
			t.Errorf("paragraph %d: expected order %d, got %d", i, i+1, p.Order)
		}
		if p.Text != want[i] {
			t.Errorf("paragraph %d: expected text %q, got %q", i, want[i], p.Text)
		}
	}
}

func TestSplitParagraphs_TrimsAndSkipsBlank(t *testing.T) {
	paras := SplitParagraphs("  first  \n\n   \n\n second\nstill second \n\n")
	if len(paras) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d", len(paras))
	}
	if paras[0].Text != "first" {
		t.Errorf("expected %q, got %q", "first", paras[0].Text)
	}
	if paras[1].Text != "second\nstill second" {
		t.Errorf("expected joined lines, got %q", paras[1].Text)
	}
	if paras[0].Order != 1 || paras[1].Order != 2 {
		t.Errorf("expected dense orders 1,2 got %d,%d", paras[0].Order, paras[1].Order)
	}
}

func TestSplitParagraphs_Empty(t *testing.T) {
	if paras := SplitParagraphs(""); len(paras) != 0 {
		t.Errorf("expected no paragraphs, got %d", len(paras))
	}
	if paras := SplitParagraphs("   \n\n  \n  "); len(paras) != 0 {
		t.Errorf("expected no paragraphs for whitespace input, got %d", len(paras))
	}
}

func TestSplitParagraphs_SingleParagraph(t *testing.T) {
	paras := SplitParagraphs("Hello world.")
	if len(paras) != 1 {
		t.Fatalf("expected 1 paragraph, got %d", len(paras))
	}
	if paras[0].Order != 1 || paras[0].Text != "Hello world." {
		t.Errorf("unexpected paragraph: %+v", paras[0])
	}
}

func TestVoiceSummary_ExcludesLegacyFields(t *testing.T) {
	v := &VoiceSample{
		ID:       "v1",
		Name:     "Narrator",
		Language: "en",
		Passage:  "should not leak",
		VoiceMap: VoiceMap{"1": {Lang: "en", Voice: "default"}},
	}

	s := v.Summary()
	if s.ID != "v1" || s.Name != "Narrator" || s.Language != "en" {
		t.Errorf("unexpected summary: %+v", s)
	}
}

func TestVoiceMap_ValueScanRoundtrip(t *testing.T) {
	m := VoiceMap{"1": {Lang: "en", Voice: "default"}, "2": {Lang: "de", Voice: "alt"}}

	val, err := m.Value()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var out VoiceMap
	if err := out.Scan(val); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 || out["1"].Voice != "default" || out["2"].Lang != "de" {
		t.Errorf("roundtrip mismatch: %+v", out)
	}
}

func TestVoiceMap_NilValue(t *testing.T) {
	var m VoiceMap
	val, err := m.Value()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != nil {
		t.Errorf("expected nil value for empty map, got %v", val)
	}

	var out VoiceMap
	if err := out.Scan(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != nil {
		t.Errorf("expected nil map, got %+v", out)
	}
}
