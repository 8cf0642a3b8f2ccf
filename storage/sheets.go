package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"blood-bank/models"
)

const (
	valueInputRaw = "RAW"
	donorRange    = "A:G"
	logRange      = "A:D"
)

// SheetsGateway speichert Spender und Log-Einträge in zwei Tabellenblättern eines Google Sheets.
type SheetsGateway struct {
	svc           *sheets.Service
	spreadsheetID string
	donorSheet    string
	logSheet      string
	logger        *zap.Logger

	mu       sync.Mutex
	sheetIDs map[string]int64
}

// NewSheetsGateway erstellt den Sheets-Client mit dem Service-Account-JSON.
func NewSheetsGateway(ctx context.Context, serviceAccount []byte, spreadsheetID, donorSheet, logSheet string, logger *zap.Logger) (*SheetsGateway, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("%w: SPREADSHEET_ID is empty", ErrNotConfigured)
	}
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsJSON(serviceAccount),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return newSheetsGateway(svc, spreadsheetID, donorSheet, logSheet, logger), nil
}

func newSheetsGateway(svc *sheets.Service, spreadsheetID, donorSheet, logSheet string, logger *zap.Logger) *SheetsGateway {
	return &SheetsGateway{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		donorSheet:    donorSheet,
		logSheet:      logSheet,
		logger:        logger.With(zap.String("spreadsheet_id", spreadsheetID)),
		sheetIDs:      map[string]int64{},
	}
}

func a1(sheet, cells string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(sheet, "'", "''"), cells)
}

func headerCells(header []string) []interface{} {
	out := make([]interface{}, len(header))
	for i, h := range header {
		out[i] = h
	}
	return out
}

// EnsureHeaders schreibt die Kopfzeilen in leere Blätter, damit die erste Datenzeile nicht als Kopf gelesen wird.
func (g *SheetsGateway) EnsureHeaders(ctx context.Context) error {
	for sheet, header := range map[string][]string{g.donorSheet: DonorHeader, g.logSheet: LogHeader} {
		resp, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, a1(sheet, "1:1")).Context(ctx).Do()
		if err != nil {
			return unavailable("read header "+sheet, err)
		}
		if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
			continue
		}
		vr := &sheets.ValueRange{Values: [][]interface{}{headerCells(header)}}
		if _, err := g.svc.Spreadsheets.Values.Update(g.spreadsheetID, a1(sheet, "A1"), vr).
			ValueInputOption(valueInputRaw).Context(ctx).Do(); err != nil {
			return unavailable("write header "+sheet, err)
		}
		g.logger.Info("Wrote missing header row", zap.String("sheet", sheet))
	}
	return nil
}

func (g *SheetsGateway) Append(ctx context.Context, d models.Donor) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{donorCells(d)}}
	_, err := g.svc.Spreadsheets.Values.Append(g.spreadsheetID, a1(g.donorSheet, donorRange), vr).
		ValueInputOption(valueInputRaw).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return unavailable("append donor", err)
	}
	return nil
}

// dataRows liest alle Datenzeilen ohne Kopfzeile. ReadAll und die Indexprüfung müssen
// denselben Bereich lesen: die API kürzt am Ende Zeilen, die im Bereich leer sind.
func (g *SheetsGateway) dataRows(ctx context.Context, op string) ([][]interface{}, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, a1(g.donorSheet, donorRange)).Context(ctx).Do()
	if err != nil {
		return nil, unavailable(op, err)
	}
	if len(resp.Values) <= 1 {
		return nil, nil
	}
	return resp.Values[1:], nil
}

func (g *SheetsGateway) ReadAll(ctx context.Context) ([]models.Donor, error) {
	rows, err := g.dataRows(ctx, "read donors")
	if err != nil {
		return nil, err
	}
	donors := make([]models.Donor, 0, len(rows))
	for i, cells := range rows {
		donors = append(donors, donorFromCells(cells, i+1))
	}
	return donors, nil
}

func (g *SheetsGateway) rowCount(ctx context.Context) (int, error) {
	rows, err := g.dataRows(ctx, "count donors")
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (g *SheetsGateway) UpdateRow(ctx context.Context, index int, d models.Donor) error {
	count, err := g.rowCount(ctx)
	if err != nil {
		return err
	}
	if err := checkIndex(index, count); err != nil {
		return err
	}
	sheetRow := index + 1
	vr := &sheets.ValueRange{Values: [][]interface{}{donorCells(d)}}
	_, err = g.svc.Spreadsheets.Values.Update(g.spreadsheetID, a1(g.donorSheet, fmt.Sprintf("A%d:G%d", sheetRow, sheetRow)), vr).
		ValueInputOption(valueInputRaw).
		Context(ctx).Do()
	if err != nil {
		return unavailable("update donor", err)
	}
	return nil
}

func (g *SheetsGateway) DeleteRow(ctx context.Context, index int) error {
	count, err := g.rowCount(ctx)
	if err != nil {
		return err
	}
	if err := checkIndex(index, count); err != nil {
		return err
	}
	sheetID, err := g.sheetID(ctx, g.donorSheet)
	if err != nil {
		return err
	}
	// Zeile index+1 im Blatt ist nullbasiert index.
	req := &sheets.BatchUpdateSpreadsheetRequest{Requests: []*sheets.Request{{
		DeleteDimension: &sheets.DeleteDimensionRequest{Range: &sheets.DimensionRange{
			SheetId:         sheetID,
			Dimension:       "ROWS",
			StartIndex:      int64(index),
			EndIndex:        int64(index + 1),
			ForceSendFields: []string{"SheetId", "StartIndex"},
		}},
	}}}
	if _, err := g.svc.Spreadsheets.BatchUpdate(g.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return unavailable("delete donor", err)
	}
	return nil
}

func (g *SheetsGateway) AppendLog(ctx context.Context, entry models.DownloadLog) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{logCells(entry)}}
	_, err := g.svc.Spreadsheets.Values.Append(g.spreadsheetID, a1(g.logSheet, logRange), vr).
		ValueInputOption(valueInputRaw).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return unavailable("append log", err)
	}
	return nil
}

// sheetID löst den Blattnamen in die numerische ID auf, die BatchUpdate braucht.
func (g *SheetsGateway) sheetID(ctx context.Context, title string) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if id, ok := g.sheetIDs[title]; ok {
		return id, nil
	}
	ss, err := g.svc.Spreadsheets.Get(g.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, unavailable("read sheet properties", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			g.sheetIDs[title] = sh.Properties.SheetId
			return sh.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("%w: sheet %q not found", ErrNotConfigured, title)
}
