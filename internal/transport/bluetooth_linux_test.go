//go:build linux

package transport

import "testing"

func TestParseBluetoothAddrByteOrder(t *testing.T) {
	got, err := parseBluetoothAddr("00:16:53:01:02:03")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := [6]byte{0x03, 0x02, 0x01, 0x53, 0x16, 0x00}
	if got != want {
		t.Fatalf("bdaddr = %#v, want %#v", got, want)
	}

	if _, err := parseBluetoothAddr("not-an-address"); err == nil {
		t.Fatal("expected error for malformed address")
	}
}
