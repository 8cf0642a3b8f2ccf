package storage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"blood-bank/models"
)

const testSpreadsheet = "sheet-123"

type sheetsCall struct {
	Method string
	Range  string
	Query  map[string]string
	Body   string
}

// fakeSheetsAPI beantwortet die Values- und BatchUpdate-Aufrufe aus festen Bereichen.
type fakeSheetsAPI struct {
	mu     sync.Mutex
	values map[string][][]interface{}
	calls  []sheetsCall
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	prefix := "/v4/spreadsheets/" + testSpreadsheet
	rest := strings.TrimPrefix(r.URL.Path, prefix)

	call := sheetsCall{Method: r.Method, Body: string(body), Query: map[string]string{}}
	for k := range r.URL.Query() {
		call.Query[k] = r.URL.Query().Get(k)
	}
	if strings.HasPrefix(rest, "/values/") {
		call.Range = strings.TrimPrefix(rest, "/values/")
	} else {
		call.Range = rest
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	rows := f.values[call.Range]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && rest == "":
		_, _ = io.WriteString(w, `{"sheets":[{"properties":{"sheetId":0,"title":"Sheet1"}},{"properties":{"sheetId":42,"title":"Sheet2"}}]}`)
	case r.Method == http.MethodGet:
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"range": call.Range, "values": rows})
	default:
		_, _ = io.WriteString(w, `{}`)
	}
}

func (f *fakeSheetsAPI) callsWith(method string) []sheetsCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sheetsCall
	for _, c := range f.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

type SheetsGatewaySuite struct {
	suite.Suite
	api *fakeSheetsAPI
	srv *httptest.Server
	gw  *SheetsGateway
}

func TestSheetsGatewaySuite(t *testing.T) {
	suite.Run(t, new(SheetsGatewaySuite))
}

func (s *SheetsGatewaySuite) SetupTest() {
	s.api = &fakeSheetsAPI{values: map[string][][]interface{}{
		"'Sheet1'!A:G": {
			{"name", "age", "blood_group", "contact", "location", "id", "version"},
			{"Anu", "30", "O+", "9876543210", "Kochi", "d1", "1"},
			{"Biju", "41", "B-", "9123456780", "Kannur", "d2", "3"},
		},
	}}
	s.srv = httptest.NewServer(s.api)

	svc, err := sheets.NewService(context.Background(),
		option.WithEndpoint(s.srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(s.srv.Client()),
	)
	s.Require().NoError(err)
	s.gw = newSheetsGateway(svc, testSpreadsheet, "Sheet1", "Sheet2", zap.NewNop())
}

func (s *SheetsGatewaySuite) TearDownTest() {
	s.srv.Close()
}

func (s *SheetsGatewaySuite) TestReadAllSkipsHeaderAndNumbersRows() {
	donors, err := s.gw.ReadAll(context.Background())

	s.Require().NoError(err)
	s.Require().Len(donors, 2)
	s.Equal(models.Donor{Row: 1, ID: "d1", Name: "Anu", Age: 30, BloodGroup: "O+", Contact: "9876543210", Location: "Kochi", Version: 1}, donors[0])
	s.Equal(2, donors[1].Row)
	s.Equal(3, donors[1].Version)
}

func (s *SheetsGatewaySuite) TestReadAllEmptySheet() {
	s.api.values = map[string][][]interface{}{}

	donors, err := s.gw.ReadAll(context.Background())

	s.Require().NoError(err)
	s.Empty(donors)
}

func (s *SheetsGatewaySuite) TestUpdateRowWritesBelowHeader() {
	d := models.Donor{ID: "d2", Name: "Biju Thomas", Age: 42, BloodGroup: "B-", Contact: "9123456780", Location: "Kannur", Version: 4}

	s.Require().NoError(s.gw.UpdateRow(context.Background(), 2, d))

	puts := s.api.callsWith(http.MethodPut)
	s.Require().Len(puts, 1)
	s.Equal("'Sheet1'!A3:G3", puts[0].Range)
	s.Equal("RAW", puts[0].Query["valueInputOption"])

	var vr sheets.ValueRange
	s.Require().NoError(json.Unmarshal([]byte(puts[0].Body), &vr))
	s.Equal([]interface{}{"Biju Thomas", float64(42), "B-", "9123456780", "Kannur", "d2", float64(4)}, vr.Values[0])
}

func (s *SheetsGatewaySuite) TestDeleteRowSendsZeroBasedDimension() {
	s.Require().NoError(s.gw.DeleteRow(context.Background(), 1))

	posts := s.api.callsWith(http.MethodPost)
	s.Require().Len(posts, 1)
	s.Equal(":batchUpdate", posts[0].Range)
	// sheetId 0 muss explizit mitgeschickt werden.
	s.Contains(posts[0].Body, `"sheetId":0`)

	var req sheets.BatchUpdateSpreadsheetRequest
	s.Require().NoError(json.Unmarshal([]byte(posts[0].Body), &req))
	s.Require().Len(req.Requests, 1)
	rng := req.Requests[0].DeleteDimension.Range
	s.Equal("ROWS", rng.Dimension)
	s.Equal(int64(1), rng.StartIndex)
	s.Equal(int64(2), rng.EndIndex)
}

func (s *SheetsGatewaySuite) TestDeleteRowOutOfRange() {
	err := s.gw.DeleteRow(context.Background(), 3)

	s.ErrorIs(err, ErrRowNotFound)
	s.Empty(s.api.callsWith(http.MethodPost))
}

func (s *SheetsGatewaySuite) TestRowsWithBlankNameStayAddressable() {
	s.api.values["'Sheet1'!A:G"] = append(s.api.values["'Sheet1'!A:G"],
		[]interface{}{"", "50", "A+", "9000000000", "Kollam", "d3", "1"})
	// Spalte A allein endet vor der Zeile mit leerem Namen.
	s.api.values["'Sheet1'!A:A"] = [][]interface{}{{"name"}, {"Anu"}, {"Biju"}}

	donors, err := s.gw.ReadAll(context.Background())
	s.Require().NoError(err)
	s.Require().Len(donors, 3)

	s.NoError(s.gw.UpdateRow(context.Background(), 3, donors[2]))
	s.NoError(s.gw.DeleteRow(context.Background(), 3))

	var req sheets.BatchUpdateSpreadsheetRequest
	posts := s.api.callsWith(http.MethodPost)
	s.Require().Len(posts, 1)
	s.Require().NoError(json.Unmarshal([]byte(posts[0].Body), &req))
	s.Equal(int64(3), req.Requests[0].DeleteDimension.Range.StartIndex)
}

func (s *SheetsGatewaySuite) TestAppendInsertsRows() {
	s.Require().NoError(s.gw.Append(context.Background(), models.Donor{Name: "Chitra", Age: 25, ID: "d9", Version: 1}))
	s.Require().NoError(s.gw.AppendLog(context.Background(), models.DownloadLog{RecipientEmail: "a@b.co"}))

	posts := s.api.callsWith(http.MethodPost)
	s.Require().Len(posts, 2)
	s.Equal("'Sheet1'!A:G:append", posts[0].Range)
	s.Equal("INSERT_ROWS", posts[0].Query["insertDataOption"])
	s.Equal("'Sheet2'!A:D:append", posts[1].Range)
	s.Contains(posts[1].Body, "a@b.co")
}

func (s *SheetsGatewaySuite) TestEnsureHeadersWritesOnlyEmptySheets() {
	s.api.values["'Sheet1'!1:1"] = [][]interface{}{{"name", "age"}}

	s.Require().NoError(s.gw.EnsureHeaders(context.Background()))

	puts := s.api.callsWith(http.MethodPut)
	s.Require().Len(puts, 1)
	s.Equal("'Sheet2'!A1", puts[0].Range)
	s.Contains(puts[0].Body, "blood_group_filter")
}

func (s *SheetsGatewaySuite) TestSheetIDIsCached() {
	s.Require().NoError(s.gw.DeleteRow(context.Background(), 1))
	s.Require().NoError(s.gw.DeleteRow(context.Background(), 1))

	gets := 0
	for _, c := range s.api.callsWith(http.MethodGet) {
		if c.Range == "" {
			gets++
		}
	}
	s.Equal(1, gets)
}
