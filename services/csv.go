package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"blood-bank/models"
	"blood-bank/storage"
)

// ExportColumns sind die Spalten der exportierten CSV-Datei.
var ExportColumns = []string{"name", "age", "blood_group", "contact", "location"}

// BackupColumns sind alle Spalten der Spendertabelle, inklusive id und version.
var BackupColumns = storage.DonorHeader

// EncodeCSV schreibt die Spender mit Kopfzeile im Exportformat.
func EncodeCSV(donors []models.Donor) ([]byte, error) {
	return encodeCSV(ExportColumns, donors, func(d models.Donor) []string {
		return []string{d.Name, strconv.Itoa(d.Age), d.BloodGroup, d.Contact, d.Location}
	})
}

// EncodeBackupCSV schreibt die vollständige Tabelle, damit id und version eine Wiederherstellung überstehen.
func EncodeBackupCSV(donors []models.Donor) ([]byte, error) {
	return encodeCSV(BackupColumns, donors, func(d models.Donor) []string {
		return []string{d.Name, strconv.Itoa(d.Age), d.BloodGroup, d.Contact, d.Location, d.ID, strconv.Itoa(d.Version)}
	})
}

func encodeCSV(columns []string, donors []models.Donor, record func(models.Donor) []string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(columns); err != nil {
		return nil, err
	}
	for _, d := range donors {
		if err := w.Write(record(d)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeCSV liest Export- und Backup-Format zurück. Spalten werden über die Kopfzeile zugeordnet,
// id und version sind optional.
func DecodeCSV(r io.Reader) ([]models.Donor, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err == io.EOF {
		return []models.Donor{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	idx := map[string]int{}
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	for _, col := range ExportColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("csv column %q missing", col)
		}
	}

	donors := []models.Donor{}
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		age, err := strconv.Atoi(rec[idx["age"]])
		if err != nil {
			return nil, fmt.Errorf("csv line %d: invalid age %q", line, rec[idx["age"]])
		}
		d := models.Donor{
			Name:       rec[idx["name"]],
			Age:        age,
			BloodGroup: rec[idx["blood_group"]],
			Contact:    rec[idx["contact"]],
			Location:   rec[idx["location"]],
		}
		if i, ok := idx["id"]; ok {
			d.ID = rec[i]
		}
		if i, ok := idx["version"]; ok && rec[i] != "" {
			if d.Version, err = strconv.Atoi(rec[i]); err != nil {
				return nil, fmt.Errorf("csv line %d: invalid version %q", line, rec[i])
			}
		}
		donors = append(donors, d)
	}
	return donors, nil
}
