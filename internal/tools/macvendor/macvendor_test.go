package macvendor

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNormalizeMAC(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"aa:bb:cc:dd:ee:ff", "AABBCCDDEEFF", true},
		{"AA-BB-CC-DD-EE-FF", "AABBCCDDEEFF", true},
		{"aabb.ccdd.eeff", "AABBCCDDEEFF", true},
		{"aabbccddeeff", "AABBCCDDEEFF", true},
		{" aa:bb:cc:dd:ee:ff ", "AABBCCDDEEFF", true},
		{"aa bb cc dd ee ff", "AABBCCDDEEFF", true},
		{"aa:bb:cc:dd:ee", "", false},
		{"aa:bb:cc:dd:ee:ff:00", "", false},
		{"gg:bb:cc:dd:ee:ff", "", false},
		{"", "", false},
		{"not a mac", "", false},
	}
	for _, c := range cases {
		got, ok := NormalizeMAC(c.in)
		if ok != c.ok || got != c.want {
			t.Errorf("NormalizeMAC(%q) = %q/%v, want %q/%v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func writeTestDB(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manuf")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const testManuf = `# Wireshark manuf file
00:00:0C	Cisco	Cisco Systems, Inc
AA:BB:CC	Acme	Acme Widgets
00:55:DA:80/28	Short	Masked Vendor Inc
`

func TestLoadAndLookup(t *testing.T) {
	db, err := LoadDB(writeTestDB(t, testManuf))
	if err != nil {
		t.Fatal(err)
	}

	vendor, ok := db.Lookup("00000C123456")
	if !ok || vendor != "Cisco Systems, Inc" {
		t.Errorf("cisco lookup = %q/%v", vendor, ok)
	}

	// The /28 masked entry is longer than the plain OUI and must win for
	// addresses inside its range.
	vendor, ok = db.Lookup("0055DA8FFFFF")
	if !ok || vendor != "Masked Vendor Inc" {
		t.Errorf("masked lookup = %q/%v", vendor, ok)
	}

	if _, ok := db.Lookup("FFFFFF000000"); ok {
		t.Error("unknown OUI matched")
	}
}

func TestLookupPrefersLongestPrefix(t *testing.T) {
	content := "00:55:DA\tPlain\tPlain Vendor\n00:55:DA:80/28\tMasked\tMasked Vendor\n"
	db, err := LoadDB(writeTestDB(t, content))
	if err != nil {
		t.Fatal(err)
	}
	if vendor, _ := db.Lookup("0055DA811111"); vendor != "Masked Vendor" {
		t.Errorf("in-range lookup = %q, want the masked entry", vendor)
	}
	if vendor, _ := db.Lookup("0055DA711111"); vendor != "Plain Vendor" {
		t.Errorf("out-of-range lookup = %q, want the plain OUI", vendor)
	}
}

func TestStale(t *testing.T) {
	db := &DB{ModTime: time.Now().Add(-100 * 24 * time.Hour)}
	if !db.Stale(time.Now()) {
		t.Error("100-day-old database must be stale")
	}
	db.ModTime = time.Now().Add(-time.Hour)
	if db.Stale(time.Now()) {
		t.Error("fresh database flagged stale")
	}
	if (&DB{}).Stale(time.Now()) {
		t.Error("unknown mod time must not be stale")
	}
}

func TestWriteAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "manuf")
	if err := writeAtomic(path, []byte("data")); err != nil {
		t.Fatal(err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "data" {
		t.Errorf("content = %q", content)
	}
	// No temp files left behind.
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want 1", len(entries))
	}
}

func TestLookupDataUnknownMarker(t *testing.T) {
	db, err := LoadDB(writeTestDB(t, testManuf))
	if err != nil {
		t.Fatal(err)
	}

	miss := lookupData(db, "FFFFFF000000", "manuf", time.Now())
	if miss["found"] != false {
		t.Errorf("found = %v", miss["found"])
	}
	if miss["manufacturer"] != "Unknown" {
		t.Errorf("manufacturer = %v, want Unknown", miss["manufacturer"])
	}

	hit := lookupData(db, "00000C123456", "manuf", time.Now())
	if hit["found"] != true || hit["manufacturer"] != "Cisco Systems, Inc" {
		t.Errorf("hit row = %v", hit)
	}
}
