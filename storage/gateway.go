package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"blood-bank/models"
)

var (
	// ErrUnavailable wird bei Transportfehlern zurückgegeben (Sheets-API, Datenbank nicht erreichbar).
	ErrUnavailable = errors.New("storage unavailable")
	// ErrNotConfigured meldet fehlende Zugangsdaten oder Konfiguration für das Backend.
	ErrNotConfigured = errors.New("storage not configured")
	// ErrRowNotFound meldet einen Zeilenindex außerhalb der Tabelle.
	ErrRowNotFound = errors.New("row not found")
)

// DonorHeader ist die Kopfzeile der Spendertabelle. Die ersten fünf Spalten sind das
// ursprüngliche Layout, id und version wurden angehängt.
var DonorHeader = []string{"name", "age", "blood_group", "contact", "location", "id", "version"}

// LogHeader ist die Kopfzeile der Log-Tabelle.
var LogHeader = []string{"recipient", "blood_group_filter", "location_filter", "timestamp"}

// Gateway kapselt die zeilenbasierten Operationen auf Spender- und Log-Tabelle.
// Zeilenindizes sind 1-basiert und zählen ab der ersten Datenzeile nach der Kopfzeile.
type Gateway interface {
	// Append hängt einen Spender an. Keine Prüfung auf Duplikate.
	Append(ctx context.Context, d models.Donor) error
	// ReadAll liefert alle Datenzeilen in Tabellenreihenfolge mit gesetztem Row.
	ReadAll(ctx context.Context) ([]models.Donor, error)
	// UpdateRow überschreibt die komplette Zeile an index.
	UpdateRow(ctx context.Context, index int, d models.Donor) error
	// DeleteRow entfernt die Zeile an index; alle folgenden Zeilen rücken auf.
	DeleteRow(ctx context.Context, index int) error
	// AppendLog hängt einen Eintrag an die Log-Tabelle an.
	AppendLog(ctx context.Context, entry models.DownloadLog) error
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

// donorCells serialisiert einen Spender in die Spaltenreihenfolge von DonorHeader.
func donorCells(d models.Donor) []interface{} {
	return []interface{}{d.Name, d.Age, d.BloodGroup, d.Contact, d.Location, d.ID, d.Version}
}

// donorFromCells liest eine Tabellenzeile. Fehlende Spalten bleiben leer.
func donorFromCells(cells []interface{}, row int) models.Donor {
	get := func(i int) string {
		if i >= len(cells) {
			return ""
		}
		return cellString(cells[i])
	}
	age, _ := strconv.Atoi(get(1))
	version, _ := strconv.Atoi(get(6))
	return models.Donor{
		Row:        row,
		Name:       get(0),
		Age:        age,
		BloodGroup: get(2),
		Contact:    get(3),
		Location:   get(4),
		ID:         get(5),
		Version:    version,
	}
}

func logCells(e models.DownloadLog) []interface{} {
	return []interface{}{e.RecipientEmail, e.BloodGroupFilter, e.LocationFilter, e.Timestamp}
}

func cellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func checkIndex(index, count int) error {
	if index < 1 || index > count {
		return fmt.Errorf("%w: index %d of %d", ErrRowNotFound, index, count)
	}
	return nil
}

// Disabled ist das Gateway, wenn Zugangsdaten fehlen. Jeder Aufruf schlägt mit ErrNotConfigured fehl.
type Disabled struct {
	Reason string
}

func (d Disabled) err() error {
	if d.Reason == "" {
		return ErrNotConfigured
	}
	return fmt.Errorf("%w: %s", ErrNotConfigured, d.Reason)
}

func (d Disabled) Append(context.Context, models.Donor) error { return d.err() }
func (d Disabled) ReadAll(context.Context) ([]models.Donor, error) { return nil, d.err() }
func (d Disabled) UpdateRow(context.Context, int, models.Donor) error { return d.err() }
func (d Disabled) DeleteRow(context.Context, int) error { return d.err() }
func (d Disabled) AppendLog(context.Context, models.DownloadLog) error { return d.err() }
