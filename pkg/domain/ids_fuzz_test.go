//go:build go1.18

package domain

import (
	"strings"
	"testing"
)

// FuzzParseAddress tests that parsing never panics on arbitrary input
// and that accepted addresses are canonical.
func FuzzParseAddress(f *testing.F) {
	f.Add("")
	f.Add("0xabcdef0123456789abcdef0123456789abcdef01")
	f.Add("0XABCDEF0123456789ABCDEF0123456789ABCDEF01")
	f.Add("0x")
	f.Add("'; DROP TABLE tokens;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))
	f.Add("0xabcdef0123456789abcdef0123456789abcdef01\x00suffix")

	f.Fuzz(func(t *testing.T, input string) {
		addr, err := ParseAddress(input)
		if err != nil {
			return
		}
		if len(addr) != 2+addressHexLen {
			t.Errorf("accepted address has length %d", len(addr))
		}
		if strings.ToLower(addr.String()) != addr.String() {
			t.Error("accepted address is not lowercase")
		}
		roundTrip, err := ParseAddress(addr.String())
		if err != nil {
			t.Errorf("valid address failed round-trip: %v", err)
		}
		if roundTrip != addr {
			t.Error("round-trip changed address value")
		}
	})
}

// FuzzParseHandle checks that accepted handles are stable under re-parsing.
func FuzzParseHandle(f *testing.F) {
	f.Add("")
	f.Add("p4hwf8t")
	f.Add("  padded  ")
	f.Add("with/slash")
	f.Add(strings.Repeat("x", 65))

	f.Fuzz(func(t *testing.T, input string) {
		h, err := ParseHandle(input)
		if err != nil {
			return
		}
		if strings.ContainsAny(h.String(), " \t\r\n/") {
			t.Errorf("accepted handle %q contains whitespace or a slash", h)
		}
		roundTrip, err := ParseHandle(h.String())
		if err != nil {
			t.Errorf("valid handle failed round-trip: %v", err)
		}
		if roundTrip != h {
			t.Error("round-trip changed handle value")
		}
	})
}

// FuzzParseTokenID ensures zero is never accepted and ids round-trip.
func FuzzParseTokenID(f *testing.F) {
	f.Add("")
	f.Add("0")
	f.Add("1")
	f.Add("-1")
	f.Add("18446744073709551615")
	f.Add("18446744073709551616")

	f.Fuzz(func(t *testing.T, input string) {
		tid, err := ParseTokenID(input)
		if err != nil {
			return
		}
		if tid.IsZero() {
			t.Error("zero token id was accepted")
		}
		roundTrip, err := ParseTokenID(tid.String())
		if err != nil {
			t.Errorf("valid token id failed round-trip: %v", err)
		}
		if roundTrip != tid {
			t.Error("round-trip changed token id value")
		}
	})
}
