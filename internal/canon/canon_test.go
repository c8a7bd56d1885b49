package canon

import (
	"strings"
	"testing"
	"time"
)

func TestToUTC(t *testing.T) {
	want := time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)

	tests := []struct {
		name  string
		input any
	}{
		{"rfc3339", "2025-03-14T15:09:26Z"},
		{"rfc3339 offset", "2025-03-14T10:09:26-05:00"},
		{"rfc2822", "Fri, 14 Mar 2025 15:09:26 +0000"},
		{"rfc2822 short day", "Fri, 14 Mar 2025 10:09:26 -0500"},
		{"rfc2822 tz comment", "Fri, 14 Mar 2025 15:09:26 +0000 (UTC)"},
		{"epoch seconds", int64(1741964966)},
		{"epoch millis", int64(1741964966000)},
		{"epoch float", float64(1741964966000)},
		{"time.Time", want},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToUTC(tt.input)
			if err != nil {
				t.Fatalf("ToUTC(%v): %v", tt.input, err)
			}
			if !got.Equal(want) {
				t.Errorf("ToUTC(%v) = %v, want %v", tt.input, got, want)
			}
			if got.Location() != time.UTC {
				t.Errorf("ToUTC(%v) location = %v, want UTC", tt.input, got.Location())
			}
		})
	}
}

func TestToUTC_Unparseable(t *testing.T) {
	if _, err := ToUTC("next tuesday"); err == nil {
		t.Error("ToUTC accepted garbage input")
	}
	if _, err := ToUTC(struct{}{}); err == nil {
		t.Error("ToUTC accepted unsupported type")
	}
}

func TestStableJSON_Deterministic(t *testing.T) {
	v := map[string]any{"b": 2, "a": 1, "nested": map[string]any{"z": true, "a": false}}
	first, err := StableJSON(v)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, err := StableJSON(v)
		if err != nil {
			t.Fatal(err)
		}
		if string(first) != string(again) {
			t.Fatalf("StableJSON not deterministic: %s vs %s", first, again)
		}
	}
	if got := string(first); got != `{"a":1,"b":2,"nested":{"a":false,"z":true}}` {
		t.Errorf("StableJSON order = %s", got)
	}
}

func TestChecksum(t *testing.T) {
	// sha256("") is a fixed vector.
	if got := Checksum(nil); got != "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Errorf("Checksum(nil) = %s", got)
	}
	if Checksum([]byte("a")) == Checksum([]byte("b")) {
		t.Error("distinct payloads produced equal checksums")
	}
}

func TestDedupeKey(t *testing.T) {
	if DedupeKey("ab", "c") == DedupeKey("a", "bc") {
		t.Error("part boundaries not preserved")
	}
	if DedupeKey("x", "y") != DedupeKey("x", "y") {
		t.Error("dedupe key not deterministic")
	}
}

func TestCleanTokens(t *testing.T) {
	got := CleanTokens([]string{" CLM-1", "", "clm-1", "  ", "Oak St", "oak st", "CLM-2"})
	want := []string{"CLM-1", "Oak St", "CLM-2"}
	if len(got) != len(want) {
		t.Fatalf("CleanTokens = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("CleanTokens[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParseAddressList(t *testing.T) {
	tests := []struct {
		header string
		want   []string
	}{
		{`"Jane Adjuster" <jane@statefarm.com>, bob@example.com`, []string{"jane@statefarm.com", "bob@example.com"}},
		{"jane@statefarm.com", []string{"jane@statefarm.com"}},
		{"", nil},
		{"Undisclosed recipients <broken@@, jane@statefarm.com", []string{"jane@statefarm.com"}},
	}
	for _, tt := range tests {
		got := ParseAddressList(tt.header)
		if len(got) != len(tt.want) {
			t.Errorf("ParseAddressList(%q) = %v, want %v", tt.header, got, tt.want)
			continue
		}
		for i := range tt.want {
			if got[i] != tt.want[i] {
				t.Errorf("ParseAddressList(%q)[%d] = %q, want %q", tt.header, i, got[i], tt.want[i])
			}
		}
	}
}

func TestCarrierDomain(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"State Farm", "statefarm.com"},
		{"claims@allstate.com", "allstate.com"},
		{"USAA", "usaa.com"},
		{"Farmers & Co.", "farmersco.com"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tt := range tests {
		if got := CarrierDomain(tt.name); got != tt.want {
			t.Errorf("CarrierDomain(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestAddressFragment(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"123 Oak St, Tampa FL", "123 Oak St"},
		{"123 Oak St # 4, Tampa FL 33601", "123 Oak St"},
		{"500 Main Street", "500 Main Street"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := AddressFragment(tt.addr); got != tt.want {
			t.Errorf("AddressFragment(%q) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}

func TestLastName(t *testing.T) {
	if got := LastName("John Q. Smith"); got != "Smith" {
		t.Errorf("LastName = %q", got)
	}
	if got := LastName("  "); got != "" {
		t.Errorf("LastName on blank = %q", got)
	}
}

func TestChecksumJSON_OrderIndependent(t *testing.T) {
	a := map[string]int{"x": 1, "y": 2}
	b := map[string]int{"y": 2, "x": 1}
	ca, err := ChecksumJSON(a)
	if err != nil {
		t.Fatal(err)
	}
	cb, err := ChecksumJSON(b)
	if err != nil {
		t.Fatal(err)
	}
	if ca != cb {
		t.Error("equivalent maps produced different checksums")
	}
	if !strings.EqualFold(ca, cb) {
		t.Error("checksum casing mismatch")
	}
}
