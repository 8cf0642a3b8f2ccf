package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"blood-bank/models"
	"blood-bank/providers"
	"blood-bank/storage"
)

const (
	exportSubject    = "Your Donor List Download"
	exportBody       = "Here is your requested donor list."
	exportAttachment = "donors.csv"
)

// Archiver legt eine Kopie jedes Exports ab.
type Archiver interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
}

// ExportRequest sind die Eingaben des Export-Formulars.
type ExportRequest struct {
	Email      string   `json:"email"`
	BloodGroup string   `json:"blood_group"`
	Locations  []string `json:"locations"`
	Confirm    bool     `json:"confirm"`
}

// ExportResult beschreibt, was beim Export tatsächlich passiert ist.
type ExportResult struct {
	Count      int                `json:"count"`
	Sent       bool               `json:"sent"`
	SendError  string             `json:"send_error,omitempty"`
	Logged     bool               `json:"logged"`
	LogError   string             `json:"log_error,omitempty"`
	ArchiveURL string             `json:"archive_url,omitempty"`
	Entry      models.DownloadLog `json:"log_entry"`
}

// ExportOptions sind die Auswahlwerte des Formulars, abgeleitet aus den vorhandenen Daten.
type ExportOptions struct {
	BloodGroups []string `json:"blood_groups"`
	Locations   []string `json:"locations"`
}

// ExportService filtert Spender, verschickt sie als CSV und protokolliert die Anfrage.
type ExportService struct {
	Gateway storage.Gateway
	Mailer  providers.Mailer
	Archive Archiver
	Logger  *zap.Logger
	Now     func() time.Time
}

// NewExportService erstellt den Service. mailer und archive dürfen nil sein.
func NewExportService(gw storage.Gateway, mailer providers.Mailer, archive Archiver, logger *zap.Logger) *ExportService {
	return &ExportService{Gateway: gw, Mailer: mailer, Archive: archive, Logger: logger, Now: time.Now}
}

// FilterDonors wendet Blutgruppen- und Ortsfilter an. "All" bzw. "All Locations" oder leer heißt: kein Filter.
func FilterDonors(donors []models.Donor, bloodGroup string, locations []string) []models.Donor {
	filterGroup := bloodGroup != "" && bloodGroup != models.AllBloodGroups
	var locSet map[string]bool
	if len(locations) > 0 {
		locSet = map[string]bool{}
		for _, l := range locations {
			if l == models.AllLocations {
				locSet = nil
				break
			}
			locSet[l] = true
		}
	}

	out := []models.Donor{}
	for _, d := range donors {
		if filterGroup && d.BloodGroup != bloodGroup {
			continue
		}
		if locSet != nil && !locSet[d.Location] {
			continue
		}
		out = append(out, d)
	}
	return out
}

// NewLogEntry baut den Log-Eintrag für eine Anfrage.
func NewLogEntry(req ExportRequest, at time.Time) models.DownloadLog {
	group := req.BloodGroup
	if group == "" {
		group = models.AllBloodGroups
	}
	locations := models.AllLocations
	if len(req.Locations) > 0 {
		locations = strings.Join(req.Locations, ", ")
	}
	return models.DownloadLog{
		RecipientEmail:   req.Email,
		BloodGroupFilter: group,
		LocationFilter:   locations,
		Timestamp:        at.Format(models.TimestampLayout),
	}
}

// Options liefert die sortierten, eindeutigen Blutgruppen und Orte der Tabelle.
func (s *ExportService) Options(ctx context.Context) (ExportOptions, error) {
	donors, err := s.Gateway.ReadAll(ctx)
	if err != nil {
		return ExportOptions{BloodGroups: []string{}, Locations: []string{}}, storageError(err, "donor table unavailable")
	}
	return ExportOptions{
		BloodGroups: distinct(donors, func(d models.Donor) string { return d.BloodGroup }),
		Locations:   distinct(donors, func(d models.Donor) string { return d.Location }),
	}, nil
}

func distinct(donors []models.Donor, field func(models.Donor) string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, d := range donors {
		v := field(d)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Send führt den Export aus. Eine ungültige Adresse, fehlende Bestätigung oder fehlende
// Mail-Zugangsdaten brechen vor Versand und Log ab. Ein Transportfehler beim Versand
// verhindert den Log-Eintrag nicht.
func (s *ExportService) Send(ctx context.Context, req ExportRequest) (ExportResult, error) {
	req.Email = strings.TrimSpace(req.Email)
	if !ValidEmail(req.Email) {
		return ExportResult{}, newError(CodeInvalidRecipient, "Please provide a valid email address.")
	}
	if req.BloodGroup != "" && req.BloodGroup != models.AllBloodGroups && !models.IsBloodGroup(req.BloodGroup) {
		return ExportResult{}, &Error{Code: CodeValidation, Message: "unknown blood group filter", Fields: map[string]string{"blood_group": msgBloodGroup}}
	}
	if !req.Confirm {
		return ExportResult{}, newError(CodeConfirmationRequired, "Please tick the checkbox to confirm sending the donor list.")
	}
	if s.Mailer == nil {
		return ExportResult{}, newError(CodeNotConfigured, "Email credentials not found")
	}

	donors, err := s.Gateway.ReadAll(ctx)
	if err != nil {
		return ExportResult{}, storageError(err, "donor table unavailable")
	}
	filtered := FilterDonors(donors, req.BloodGroup, req.Locations)
	data, err := EncodeCSV(filtered)
	if err != nil {
		return ExportResult{}, fmt.Errorf("encode csv: %w", err)
	}

	now := s.Now()
	result := ExportResult{Count: len(filtered), Entry: NewLogEntry(req, now)}
	log := s.Logger.With(zap.String("recipient", req.Email), zap.Int("count", result.Count))

	sendErr := s.Mailer.Send(ctx, providers.Message{
		To:      req.Email,
		Subject: exportSubject,
		Body:    exportBody,
		Attachments: []providers.Attachment{{
			Name:        exportAttachment,
			ContentType: "text/csv",
			Data:        data,
		}},
	})
	if sendErr != nil {
		log.Warn("Export mail failed", zap.String("provider", s.Mailer.Name()), zap.Error(sendErr))
		result.SendError = sendErr.Error()
	} else {
		result.Sent = true
	}

	if s.Archive != nil && result.Sent {
		key := fmt.Sprintf("exports/%s-%s.csv", now.UTC().Format("2006-01-02T15-04-05Z"), uuid.NewString()[:8])
		if url, err := s.Archive.Put(ctx, key, data); err != nil {
			log.Warn("Archiving export failed", zap.String("key", key), zap.Error(err))
		} else {
			result.ArchiveURL = url
		}
	}

	if err := s.Gateway.AppendLog(ctx, result.Entry); err != nil {
		log.Warn("Appending download log failed", zap.Error(err))
		result.LogError = err.Error()
	} else {
		result.Logged = true
	}

	if sendErr != nil {
		return result, wrapError(sendErr, CodeUnavailable, "Failed to send email")
	}
	log.Info("Export sent", zap.Bool("logged", result.Logged))
	return result, nil
}

// IsUnavailable meldet degradierte Zustände, in denen die Oberfläche weiterarbeiten soll.
func IsUnavailable(err error) bool {
	return HasCode(err, CodeUnavailable) || HasCode(err, CodeNotConfigured) ||
		errors.Is(err, storage.ErrUnavailable) || errors.Is(err, storage.ErrNotConfigured)
}
