package common

import (
	"strings"
	"testing"
)

func TestNewRunID(t *testing.T) {
	id := NewRunID()
	if !strings.HasPrefix(id, "run_") {
		t.Errorf("expected run_ prefix, got %q", id)
	}
	if id == NewRunID() {
		t.Error("expected distinct run IDs")
	}
}

func TestUniqueValue(t *testing.T) {
	a := UniqueValue("contact")
	b := UniqueValue("contact")

	if !strings.HasPrefix(a, "contact-") {
		t.Errorf("expected contact- prefix, got %q", a)
	}
	if a == b {
		t.Errorf("expected distinct values, got %q twice", a)
	}
}

func TestUniqueEmail(t *testing.T) {
	email := UniqueEmail("example.com")
	if !strings.HasSuffix(email, "@example.com") {
		t.Errorf("expected @example.com suffix, got %q", email)
	}
	if UniqueEmail("example.com") == email {
		t.Error("expected distinct emails")
	}
}

func TestUniquePhone(t *testing.T) {
	phone := UniquePhone()
	if !strings.HasPrefix(phone, "05") {
		t.Errorf("expected 05 prefix, got %q", phone)
	}
	if len(phone) != 10 {
		t.Errorf("expected 10 digits, got %d (%q)", len(phone), phone)
	}
}
