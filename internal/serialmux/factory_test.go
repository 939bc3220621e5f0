package serialmux

import (
	"testing"
)

func TestNewRealSerialMux_NonExistentPort(t *testing.T) {
	// We can't open a real serial port in a unit test, but the open path
	// should fail cleanly for a device that does not exist.
	mux, err := NewRealSerialMux("/dev/nonexistent-serial-port-12345", PortOptions{})
	if err == nil {
		t.Error("Expected error when opening non-existent serial port")
		if mux != nil {
			mux.Close()
		}
	}
	if err != nil && mux != nil {
		t.Error("Expected nil mux when error is returned")
	}
}

func TestNewRealSerialMux_InvalidOptions(t *testing.T) {
	// Invalid options fail before any device access is attempted.
	_, err := NewRealSerialMux("/dev/nonexistent-serial-port-12345", PortOptions{Parity: "M"})
	if err == nil {
		t.Error("Expected error for invalid parity")
	}
}
