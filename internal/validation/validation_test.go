package validation

import (
	"testing"
	"time"
)

func TestViolations(t *testing.T) {
	v := Violations{}
	Required("nom", "  ", v)
	PositiveFloat("montant", 0, v)
	NonNegativeFloat("solde", 0, v)
	PositiveInt("annee", 2024, v)
	if len(v) != 2 {
		t.Fatalf("expected 2 violations got %v", v)
	}
	if got := v.Error(); got != "montant: must_be_positive, nom: required" {
		t.Fatalf("unexpected message %q", got)
	}
	if v.Err() == nil {
		t.Fatal("expected an error")
	}
	if (Violations{}).Err() != nil {
		t.Fatal("empty violations must not be an error")
	}
}

func TestDatesAndChoices(t *testing.T) {
	start := time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)
	before := start.Add(-time.Hour)
	after := start.Add(time.Hour)
	v := Violations{}
	RequiredTime("date_debut", time.Time{}, v)
	NotBefore("date_fin", &after, start, v)
	NotBefore("date_fin", nil, start, v)
	OneOf("mode", "cb", func(s string) bool { return s == "cb" }, v)
	if len(v) != 1 || v["date_debut"] != "required" {
		t.Fatalf("unexpected violations %v", v)
	}
	NotBefore("date_fin", &before, start, v)
	OneOf("mode", "troc", func(s string) bool { return s == "cb" }, v)
	if v["date_fin"] != "before_start" || v["mode"] != "invalid_choice" {
		t.Fatalf("unexpected violations %v", v)
	}
}
