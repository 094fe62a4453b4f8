package data

import "testing"

func TestParseSkinTable(t *testing.T) {
	tbl, err := ParseSkinTable([]byte(`
skins:
  - name: Doge
  - name: earth
    note: planet
`))
	if err != nil {
		t.Fatal(err)
	}
	if tbl.Count() != 2 {
		t.Fatalf("count %d", tbl.Count())
	}
	if name, ok := tbl.Lookup("doge"); !ok || name != "Doge" {
		t.Errorf("lookup doge: %q %v", name, ok)
	}
	if _, ok := tbl.Lookup("nope"); ok {
		t.Error("unknown skin found")
	}
	var nilTable *SkinTable
	if _, ok := nilTable.Lookup("doge"); ok {
		t.Error("nil table must find nothing")
	}

	if _, err := ParseSkinTable([]byte("skins:\n  - note: x\n")); err == nil {
		t.Error("nameless skin accepted")
	}
}

func TestParseTeamPalette(t *testing.T) {
	p, err := ParseTeamPalette([]byte(`
teams:
  - { name: Red, color: 0xFF0000 }
  - { name: Blue, color: 0x0000FF }
`))
	if err != nil {
		t.Fatal(err)
	}
	if p.Count() != 2 || p.Teams[1].Color != 0x0000FF {
		t.Fatalf("palette %+v", p.Teams)
	}
	if _, err := ParseTeamPalette([]byte("teams:\n  - { name: Solo, color: 1 }\n")); err == nil {
		t.Error("single team accepted")
	}
	if _, err := ParseTeamPalette([]byte("teams:\n  - { name: A, color: 0x1000000 }\n  - { name: B, color: 1 }\n")); err == nil {
		t.Error("out of range color accepted")
	}
}
