package services

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"blood-bank/models"
)

// Grenzen für Alter und Ort.
const (
	MinAge            = 18
	MaxAge            = 65
	ContactLength     = 10
	MaxLocationLength = 20
)

// Fehlermeldungen pro Feld, so wie sie im Formular angezeigt werden.
const (
	msgName       = "Name must contain only alphabetic characters and spaces."
	msgAge        = "Age must be between 18 and 65."
	msgBloodGroup = "Blood group must be one of A+, A-, B+, B-, O+, O-, AB+, AB-."
	msgContact    = "Phone number must be exactly 10 digits."
	msgLocation   = "Location must be alphabetic and up to 20 characters."
)

var validate = validator.New()

// DonorInput sind die rohen Formularwerte vor jeder Umwandlung.
type DonorInput struct {
	Name       string `json:"name"`
	Age        string `json:"age"`
	BloodGroup string `json:"blood_group"`
	Contact    string `json:"contact"`
	Location   string `json:"location"`
}

// FieldReport enthält die Gültigkeit jedes einzelnen Feldes.
type FieldReport struct {
	Name       bool `json:"name"`
	Age        bool `json:"age"`
	BloodGroup bool `json:"blood_group"`
	Contact    bool `json:"contact"`
	Location   bool `json:"location"`
}

// Valid ist true, wenn alle Felder gültig sind.
func (r FieldReport) Valid() bool {
	return r.Name && r.Age && r.BloodGroup && r.Contact && r.Location
}

// Messages liefert die Meldungen der ungültigen Felder, nach JSON-Feldnamen.
func (r FieldReport) Messages() map[string]string {
	out := map[string]string{}
	if !r.Name {
		out["name"] = msgName
	}
	if !r.Age {
		out["age"] = msgAge
	}
	if !r.BloodGroup {
		out["blood_group"] = msgBloodGroup
	}
	if !r.Contact {
		out["contact"] = msgContact
	}
	if !r.Location {
		out["location"] = msgLocation
	}
	return out
}

// ValidateDonor prüft alle Felder. Keine Seiteneffekte.
func ValidateDonor(in DonorInput) FieldReport {
	return FieldReport{
		Name:       ValidName(in.Name),
		Age:        ValidAge(in.Age),
		BloodGroup: ValidBloodGroup(in.BloodGroup),
		Contact:    ValidContact(in.Contact),
		Location:   ValidLocation(in.Location),
	}
}

// ValidName: nicht leer, nur Buchstaben und Leerzeichen.
func ValidName(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ValidAge: reine Ziffernfolge mit Wert in [18, 65].
func ValidAge(s string) bool {
	if !isDigits(s) {
		return false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return false
	}
	return n >= MinAge && n <= MaxAge
}

// ValidBloodGroup: eine der acht Blutgruppen.
func ValidBloodGroup(s string) bool {
	return models.IsBloodGroup(s)
}

// ValidContact: genau zehn Ziffern.
func ValidContact(s string) bool {
	return len(s) == ContactLength && isDigits(s)
}

// ValidLocation: nur Buchstaben, höchstens 20 Zeichen.
func ValidLocation(s string) bool {
	if s == "" || utf8.RuneCountInString(s) > MaxLocationLength {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// ValidEmail prüft die Syntax der Empfängeradresse.
func ValidEmail(addr string) bool {
	return validate.Var(addr, "required,email") == nil
}

func capitalize(s string) string {
	return cases.Title(language.Und).String(strings.ToLower(s))
}

// NormalizeName schreibt jedes Wort groß und reduziert Leerraum auf einzelne Leerzeichen.
func NormalizeName(s string) string {
	parts := strings.Fields(s)
	for i, p := range parts {
		parts[i] = capitalize(p)
	}
	return strings.Join(parts, " ")
}

// NormalizeLocation schneidet Leerraum ab und schreibt den ersten Buchstaben groß.
func NormalizeLocation(s string) string {
	return capitalize(strings.TrimSpace(s))
}
