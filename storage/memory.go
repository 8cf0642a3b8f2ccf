package storage

import (
	"context"
	"sync"

	"blood-bank/models"
)

// Memory hält beide Tabellen im Speicher. Für Tests und lokale Demos.
type Memory struct {
	mu     sync.Mutex
	donors []models.Donor
	logs   []models.DownloadLog
	fail   error
}

// NewMemory erstellt ein Gateway mit optionalen Startdaten.
func NewMemory(seed ...models.Donor) *Memory {
	m := &Memory{}
	for _, d := range seed {
		d.Row = 0
		m.donors = append(m.donors, d)
	}
	return m
}

// FailWith lässt alle folgenden Aufrufe mit ErrUnavailable fehlschlagen; nil setzt zurück.
func (m *Memory) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

func (m *Memory) check(op string) error {
	if m.fail != nil {
		return unavailable(op, m.fail)
	}
	return nil
}

func (m *Memory) Append(_ context.Context, d models.Donor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("append donor"); err != nil {
		return err
	}
	d.Row = 0
	m.donors = append(m.donors, d)
	return nil
}

func (m *Memory) ReadAll(_ context.Context) ([]models.Donor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("read donors"); err != nil {
		return nil, err
	}
	out := make([]models.Donor, len(m.donors))
	for i, d := range m.donors {
		d.Row = i + 1
		out[i] = d
	}
	return out, nil
}

func (m *Memory) UpdateRow(_ context.Context, index int, d models.Donor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("update donor"); err != nil {
		return err
	}
	if err := checkIndex(index, len(m.donors)); err != nil {
		return err
	}
	d.Row = 0
	m.donors[index-1] = d
	return nil
}

func (m *Memory) DeleteRow(_ context.Context, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("delete donor"); err != nil {
		return err
	}
	if err := checkIndex(index, len(m.donors)); err != nil {
		return err
	}
	m.donors = append(m.donors[:index-1], m.donors[index:]...)
	return nil
}

func (m *Memory) AppendLog(_ context.Context, entry models.DownloadLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("append log"); err != nil {
		return err
	}
	m.logs = append(m.logs, entry)
	return nil
}

// Logs liefert eine Kopie der Log-Tabelle.
func (m *Memory) Logs() []models.DownloadLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.DownloadLog(nil), m.logs...)
}
