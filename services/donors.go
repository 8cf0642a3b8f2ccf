package services

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"blood-bank/models"
	"blood-bank/storage"
)

const (
	msgDuplicateAdd    = "Donor already exists with the same name and phone number!"
	msgDuplicateUpdate = "Another donor already exists with the same name and phone number!"
	msgInvalidIndex    = "Invalid donor index selected."
	msgStaleRecord     = "Donor changed since it was shown; review it again before saving."
	msgConfirmDelete   = "Are you sure you want to delete this donor? Repeat the request with its confirmation token."
)

// DonorRef adressiert einen Spender. Ist ID gesetzt, gewinnt sie gegen Row, damit
// verschobene Zeilen nach einem Löschen trotzdem gefunden werden.
type DonorRef struct {
	Row int    `json:"row"`
	ID  string `json:"id,omitempty"`
}

// UpdateRequest ersetzt alle Felder eines Spenders.
type UpdateRequest struct {
	Ref   DonorRef
	Input DonorInput
	// ExpectedVersion schaltet die optimistische Prüfung ein, wenn gesetzt.
	ExpectedVersion *int
}

// DeletePrompt ist die erste Phase des Löschens: der Datensatz und das Token zur Bestätigung.
type DeletePrompt struct {
	Donor models.Donor       `json:"donor"`
	Token string             `json:"token"`
	State models.ManageState `json:"manage"`
}

// DonorService orchestriert Anlegen, Ändern und Löschen über das Gateway.
type DonorService struct {
	Gateway storage.Gateway
	Logger  *zap.Logger
	NewID   func() string
}

// NewDonorService erstellt eine neue Instanz des DonorService.
func NewDonorService(gw storage.Gateway, logger *zap.Logger) *DonorService {
	return &DonorService{
		Gateway: gw,
		Logger:  logger,
		NewID:   func() string { return uuid.NewString() },
	}
}

func storageError(err error, msg string) error {
	switch {
	case errors.Is(err, storage.ErrRowNotFound):
		return wrapError(err, CodeNotFound, msgInvalidIndex)
	case errors.Is(err, storage.ErrNotConfigured):
		return wrapError(err, CodeNotConfigured, "donor table is not configured")
	default:
		return wrapError(err, CodeUnavailable, msg)
	}
}

func validationError(report FieldReport) error {
	return &Error{Code: CodeValidation, Message: "donor fields are invalid", Fields: report.Messages()}
}

func donorFromInput(in DonorInput) models.Donor {
	age, _ := strconv.Atoi(in.Age)
	return models.Donor{
		Name:       NormalizeName(in.Name),
		Age:        age,
		BloodGroup: in.BloodGroup,
		Contact:    in.Contact,
		Location:   NormalizeLocation(in.Location),
	}
}

// findDuplicate sucht einen anderen Spender mit gleichem Namen und Telefon; skipRow wird ignoriert.
func findDuplicate(donors []models.Donor, name, contact string, skipRow int) (models.Donor, bool) {
	for _, d := range donors {
		if d.Row == skipRow {
			continue
		}
		if d.SameIdentity(name, contact) {
			return d, true
		}
	}
	return models.Donor{}, false
}

func resolve(donors []models.Donor, ref DonorRef) (models.Donor, error) {
	if ref.ID != "" {
		for _, d := range donors {
			if d.ID == ref.ID {
				return d, nil
			}
		}
		return models.Donor{}, newError(CodeNotFound, "donor not found")
	}
	if ref.Row < 1 || ref.Row > len(donors) {
		return models.Donor{}, newError(CodeNotFound, msgInvalidIndex)
	}
	return donors[ref.Row-1], nil
}

func (s *DonorService) readAll(ctx context.Context) ([]models.Donor, error) {
	donors, err := s.Gateway.ReadAll(ctx)
	if err != nil {
		s.Logger.Warn("Reading donor table failed", zap.Error(err))
		return nil, storageError(err, "donor table unavailable")
	}
	return donors, nil
}

// List liefert alle Spender in Tabellenreihenfolge.
func (s *DonorService) List(ctx context.Context) ([]models.Donor, error) {
	return s.readAll(ctx)
}

// Get löst eine Referenz gegen den aktuellen Tabellenstand auf.
func (s *DonorService) Get(ctx context.Context, ref DonorRef) (models.Donor, error) {
	donors, err := s.readAll(ctx)
	if err != nil {
		return models.Donor{}, err
	}
	return resolve(donors, ref)
}

// Add validiert, normalisiert und hängt einen neuen Spender an, sofern kein Duplikat existiert.
func (s *DonorService) Add(ctx context.Context, in DonorInput) (models.Donor, error) {
	report := ValidateDonor(in)
	if !report.Valid() {
		return models.Donor{}, validationError(report)
	}
	d := donorFromInput(in)

	donors, err := s.readAll(ctx)
	if err != nil {
		return models.Donor{}, err
	}
	if existing, dup := findDuplicate(donors, d.Name, d.Contact, 0); dup {
		s.Logger.Info("Rejected duplicate donor", zap.Int("existing_row", existing.Row))
		return models.Donor{}, newError(CodeDuplicate, msgDuplicateAdd)
	}

	d.ID = s.NewID()
	d.Version = 1
	if err := s.Gateway.Append(ctx, d); err != nil {
		s.Logger.Error("Appending donor failed", zap.Error(err))
		return models.Donor{}, storageError(err, "could not save donor")
	}
	d.Row = len(donors) + 1
	s.Logger.Info("Donor added", zap.String("donor_id", d.ID), zap.Int("row", d.Row))
	return d, nil
}

// Update überschreibt einen Spender vollständig. Der Spender selbst zählt nicht als Duplikat.
func (s *DonorService) Update(ctx context.Context, req UpdateRequest) (models.Donor, models.ManageState, error) {
	open := models.ManageState{Open: true, Action: models.ManageUpdate, Row: req.Ref.Row}

	report := ValidateDonor(req.Input)
	if !report.Valid() {
		return models.Donor{}, open, validationError(report)
	}

	donors, err := s.readAll(ctx)
	if err != nil {
		return models.Donor{}, open, err
	}
	current, err := resolve(donors, req.Ref)
	if err != nil {
		return models.Donor{}, open, err
	}
	open.Row = current.Row
	if req.ExpectedVersion != nil && *req.ExpectedVersion != current.Version {
		return current, open, newError(CodeVersionConflict, msgStaleRecord)
	}

	d := donorFromInput(req.Input)
	if _, dup := findDuplicate(donors, d.Name, d.Contact, current.Row); dup {
		return current, open, newError(CodeDuplicate, msgDuplicateUpdate)
	}

	d.ID = current.ID
	if d.ID == "" {
		d.ID = s.NewID()
	}
	d.Version = current.Version + 1
	if err := s.Gateway.UpdateRow(ctx, current.Row, d); err != nil {
		s.Logger.Error("Updating donor failed", zap.Int("row", current.Row), zap.Error(err))
		return current, open, storageError(err, "could not update donor")
	}
	d.Row = current.Row
	s.Logger.Info("Donor updated", zap.String("donor_id", d.ID), zap.Int("row", d.Row), zap.Int("version", d.Version))
	return d, models.Closed(), nil
}

// DeleteToken ist ein Fingerabdruck des Zeileninhalts. Ändert sich die Zeile, ändert sich das Token.
func DeleteToken(d models.Donor) string {
	h := xxhash.Sum64String(strings.Join([]string{
		d.ID, d.Name, strconv.Itoa(d.Age), d.BloodGroup, d.Contact, d.Location, strconv.Itoa(d.Version),
	}, "\x1f"))
	return strconv.FormatUint(h, 16)
}

// PrepareDelete zeigt den Datensatz zur Bestätigung an, ohne etwas zu ändern.
func (s *DonorService) PrepareDelete(ctx context.Context, ref DonorRef) (DeletePrompt, error) {
	d, err := s.Get(ctx, ref)
	if err != nil {
		return DeletePrompt{}, err
	}
	return DeletePrompt{
		Donor: d,
		Token: DeleteToken(d),
		State: models.ManageState{Open: true, Action: models.ManageDelete, Row: d.Row},
	}, nil
}

// ConfirmDelete entfernt die Zeile, wenn das Token zum aktuellen Inhalt passt.
func (s *DonorService) ConfirmDelete(ctx context.Context, ref DonorRef, token string) (models.Donor, models.ManageState, error) {
	open := models.ManageState{Open: true, Action: models.ManageDelete, Row: ref.Row}
	if token == "" {
		return models.Donor{}, open, newError(CodeConfirmationRequired, msgConfirmDelete)
	}

	donors, err := s.readAll(ctx)
	if err != nil {
		return models.Donor{}, open, err
	}
	current, err := resolve(donors, ref)
	if err != nil {
		return models.Donor{}, open, err
	}
	open.Row = current.Row
	if DeleteToken(current) != token {
		return current, open, newError(CodeVersionConflict, msgStaleRecord)
	}

	if err := s.Gateway.DeleteRow(ctx, current.Row); err != nil {
		s.Logger.Error("Deleting donor failed", zap.Int("row", current.Row), zap.Error(err))
		return current, open, storageError(err, "could not delete donor")
	}
	s.Logger.Info("Donor deleted", zap.String("donor_id", current.ID), zap.Int("row", current.Row))
	return current, models.Closed(), nil
}

// CancelDelete schließt den Verwaltungsbereich, ohne die Tabelle anzufassen.
func (s *DonorService) CancelDelete() models.ManageState {
	return models.Closed()
}
