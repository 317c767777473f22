package datachannel

import (
	"net"
	"testing"
)

func TestParsePORT(t *testing.T) {
	ep, err := ParsePORT("192,168,1,5,19,136")
	if err != nil {
		t.Fatalf("ParsePORT: %v", err)
	}
	if !ep.IP.Equal(net.IPv4(192, 168, 1, 5)) || ep.Port != 19*256+136 {
		t.Fatalf("got %v", ep)
	}
}

func TestParsePORTRejectsMalformed(t *testing.T) {
	cases := []string{"1,2,3,4,5", "256,1,1,1,1,1", "1,1,1,1,1,1,1"}
	for _, c := range cases {
		if _, err := ParsePORT(c); err == nil {
			t.Fatalf("expected error for %q", c)
		}
	}
}

func TestParseEPRTIPv4(t *testing.T) {
	ep, err := ParseEPRT("|1|132.235.1.2|6275|")
	if err != nil {
		t.Fatalf("ParseEPRT: %v", err)
	}
	if !ep.IP.Equal(net.ParseIP("132.235.1.2")) || ep.Port != 6275 {
		t.Fatalf("got %v", ep)
	}
}

func TestParseEPRTIPv6(t *testing.T) {
	ep, err := ParseEPRT("|2|::1|6275|")
	if err != nil {
		t.Fatalf("ParseEPRT: %v", err)
	}
	if !ep.IP.Equal(net.ParseIP("::1")) {
		t.Fatalf("got %v", ep)
	}
}

func TestParseEPRTFamilyMismatch(t *testing.T) {
	if _, err := ParseEPRT("|1|::1|21|"); err == nil {
		t.Fatal("expected family mismatch error")
	}
}

func TestFamilyMatches(t *testing.T) {
	v4 := Endpoint{IP: net.ParseIP("1.2.3.4")}
	if !FamilyMatches(v4, net.ParseIP("5.6.7.8")) {
		t.Fatal("expected IPv4/IPv4 match")
	}
	if FamilyMatches(v4, net.ParseIP("::1")) {
		t.Fatal("expected IPv4/IPv6 mismatch")
	}
}

func TestFormatPASVAndEPSV(t *testing.T) {
	s, err := FormatPASV(net.IPv4(10, 0, 0, 1), 5000)
	if err != nil {
		t.Fatalf("FormatPASV: %v", err)
	}
	if s != "(10,0,0,1,19,136)" {
		t.Fatalf("got %q", s)
	}
	if FormatEPSV(5000) != "(|||5000|)" {
		t.Fatalf("got %q", FormatEPSV(5000))
	}
}
