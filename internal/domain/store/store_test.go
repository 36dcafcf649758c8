package store

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/kailas-cloud/ebtlocator/internal/domain"
	"github.com/kailas-cloud/ebtlocator/internal/domain/geo"
)

func validAttrs() Attrs {
	return Attrs{
		ID:        "12345",
		Name:      "  Food 4 Less ",
		Address:   "1700 W Slauson Ave",
		City:      "Los Angeles",
		State:     "CA",
		Zip:       "90047 ",
		StoreType: "Supermarket",
		Location:  &geo.Point{Lat: 33.989, Lon: -118.307},
		Hours:     json.RawMessage(`{"mon":"6-23"}`),
	}
}

func TestNew_Valid(t *testing.T) {
	r, err := New(validAttrs())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Name() != "Food 4 Less" {
		t.Errorf("Name() = %q, want trimmed", r.Name())
	}
	if r.Zip() != "90047" {
		t.Errorf("Zip() = %q, want trimmed", r.Zip())
	}
	loc, ok := r.Location()
	if !ok || loc.Lat != 33.989 {
		t.Errorf("Location() = %+v, %v", loc, ok)
	}
	if !r.HasIdentity() {
		t.Error("HasIdentity() = false")
	}
}

func TestNew_MissingIdentity(t *testing.T) {
	for _, tc := range []struct {
		name string
		mod  func(*Attrs)
	}{
		{"no id", func(a *Attrs) { a.ID = "" }},
		{"blank name", func(a *Attrs) { a.Name = "   " }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			a := validAttrs()
			tc.mod(&a)
			_, err := New(a)
			if !errors.Is(err, domain.ErrMalformedRecord) {
				t.Fatalf("expected ErrMalformedRecord, got %v", err)
			}
		})
	}
}

func TestNew_InvalidFields(t *testing.T) {
	for _, tc := range []struct {
		name string
		mod  func(*Attrs)
	}{
		{"bad id chars", func(a *Attrs) { a.ID = "a b" }},
		{"coordinates out of range", func(a *Attrs) { a.Location = &geo.Point{Lat: 100} }},
		{"hours not json", func(a *Attrs) { a.Hours = json.RawMessage(`{mon`) }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			a := validAttrs()
			tc.mod(&a)
			_, err := New(a)
			if !errors.Is(err, domain.ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
}

func TestNew_ZeroCoordinateIsPresent(t *testing.T) {
	a := validAttrs()
	a.Location = &geo.Point{}
	r, err := New(a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := r.Location(); !ok {
		t.Error("(0,0) must count as a present coordinate")
	}
}

func TestReconstruct_CopiesInputs(t *testing.T) {
	a := validAttrs()
	r := Reconstruct(a)

	a.Location.Lat = 1
	a.Hours[0] = '['

	loc, _ := r.Location()
	if loc.Lat != 33.989 {
		t.Error("record shares the caller's location")
	}
	if string(r.Hours()) != `{"mon":"6-23"}` {
		t.Error("record shares the caller's hours buffer")
	}
}

func TestHasIdentity_Reconstructed(t *testing.T) {
	r := Reconstruct(Attrs{ID: "1"})
	if r.HasIdentity() {
		t.Error("record without name must not have identity")
	}
}

func TestZip5(t *testing.T) {
	tests := map[string]string{
		"90047":      "90047",
		"90047-1234": "90047",
		" 123 ":      "123",
		"":           "",
	}
	for in, want := range tests {
		if got := Zip5(in); got != want {
			t.Errorf("Zip5(%q) = %q, want %q", in, got, want)
		}
	}
}
