package models

import "strings"

// Blutgruppen in der Reihenfolge, in der sie im Formular angeboten werden.
var BloodGroups = []string{"A+", "A-", "B+", "B-", "O+", "O-", "AB+", "AB-"}

// Donor repräsentiert eine Zeile der Spendertabelle.
// Row ist die 1-basierte Position aus dem letzten Lesen und wird nicht gespeichert.
type Donor struct {
	Row        int    `json:"row" gorm:"-"`
	ID         string `json:"id"`
	Name       string `json:"name"`
	Age        int    `json:"age"`
	BloodGroup string `json:"blood_group"`
	Contact    string `json:"contact"`
	Location   string `json:"location"`
	Version    int    `json:"version"`
}

// SameIdentity vergleicht die fachliche Identität (Name ohne Groß-/Kleinschreibung, Telefonnummer).
func (d Donor) SameIdentity(name, contact string) bool {
	return strings.EqualFold(d.Name, name) && d.Contact == contact
}

// MaskedContact ersetzt die letzten vier Ziffern der Telefonnummer durch Sterne.
func (d Donor) MaskedContact() string {
	if len(d.Contact) > 4 {
		return d.Contact[:len(d.Contact)-4] + "****"
	}
	return "****"
}

// IsBloodGroup meldet, ob g eine der acht bekannten Blutgruppen ist.
func IsBloodGroup(g string) bool {
	for _, bg := range BloodGroups {
		if bg == g {
			return true
		}
	}
	return false
}
