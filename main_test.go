package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"blood-bank/config"
	"blood-bank/models"
	"blood-bank/providers"
	"blood-bank/services"
	"blood-bank/storage"
)

type stubMailer struct {
	sent []providers.Message
	err  error
}

func (s *stubMailer) Name() string { return "stub" }

func (s *stubMailer) Send(_ context.Context, msg providers.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

type RouterSuite struct {
	suite.Suite
	cfg    *config.Config
	store  *storage.Memory
	mailer *stubMailer
	router *gin.Engine
}

func (s *RouterSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
}

func (s *RouterSuite) SetupTest() {
	s.cfg = &config.Config{StorageBackend: config.BackendMemory, APISecretKey: "secret"}
	s.store = storage.NewMemory(
		models.Donor{ID: "d1", Name: "Anu Mathew", Age: 29, BloodGroup: "O+", Contact: "9876543210", Location: "Kochi", Version: 1},
		models.Donor{ID: "d2", Name: "Biju", Age: 41, BloodGroup: "B-", Contact: "9123456780", Location: "Kannur", Version: 1},
	)
	s.mailer = &stubMailer{}
	s.build(s.store)
}

func (s *RouterSuite) build(gw storage.Gateway) {
	log := zap.NewNop()
	s.router = newRouter(s.cfg,
		services.NewDonorService(gw, log),
		services.NewExportService(gw, s.mailer, nil, log),
		log)
}

func (s *RouterSuite) do(method, path string, body any, authed bool) (*httptest.ResponseRecorder, map[string]any) {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("X-API-KEY", "secret")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w, out
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) TestListMasksContacts() {
	w, body := s.do(http.MethodGet, "/donors", nil, false)

	s.Equal(http.StatusOK, w.Code)
	s.EqualValues(2, body["count"])
	first := body["donors"].([]any)[0].(map[string]any)
	s.Equal("987654****", first["contact"])
	s.EqualValues(1, first["row"])
}

func (s *RouterSuite) TestListUnmaskedNeedsKey() {
	w, _ := s.do(http.MethodGet, "/donors?unmasked=true", nil, false)
	s.Equal(http.StatusUnauthorized, w.Code)

	w, body := s.do(http.MethodGet, "/donors?unmasked=true", nil, true)
	s.Equal(http.StatusOK, w.Code)
	first := body["donors"].([]any)[0].(map[string]any)
	s.Equal("9876543210", first["contact"])
}

func (s *RouterSuite) TestListDegradesWhenStorageDisabled() {
	s.build(storage.Disabled{Reason: "no service account"})

	w, body := s.do(http.MethodGet, "/donors", nil, false)

	s.Equal(http.StatusOK, w.Code)
	s.Empty(body["donors"])
	s.Contains(body["warning"], "no service account")
}

func (s *RouterSuite) TestAddRequiresKey() {
	w, _ := s.do(http.MethodPost, "/donors", gin.H{"name": "Chitra"}, false)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *RouterSuite) TestAddCreated() {
	w, body := s.do(http.MethodPost, "/donors", gin.H{
		"name": "  chitra  nair ", "age": 30, "blood_group": "AB+", "contact": "9988776655", "location": "kochi",
	}, true)

	s.Equal(http.StatusCreated, w.Code)
	d := body["donor"].(map[string]any)
	s.Equal("Chitra Nair", d["name"])
	s.Equal("Kochi", d["location"])
	s.EqualValues(3, d["row"])
	s.NotEmpty(d["id"])
}

func (s *RouterSuite) TestAddValidationReturnsFieldMap() {
	w, body := s.do(http.MethodPost, "/donors", gin.H{
		"name": "R2D2", "age": "seventeen", "blood_group": "O+", "contact": "123", "location": "Kochi",
	}, true)

	s.Equal(http.StatusUnprocessableEntity, w.Code)
	s.Equal(string(services.CodeValidation), body["code"])
	fields := body["fields"].(map[string]any)
	s.Contains(fields, "name")
	s.Contains(fields, "age")
	s.Contains(fields, "contact")
	s.NotContains(fields, "location")
}

func (s *RouterSuite) TestAddDuplicateConflict() {
	w, body := s.do(http.MethodPost, "/donors", gin.H{
		"name": "anu mathew", "age": "35", "blood_group": "A+", "contact": "9876543210", "location": "Thrissur",
	}, true)

	s.Equal(http.StatusConflict, w.Code)
	s.Equal("Donor already exists with the same name and phone number!", body["error"])
}

func (s *RouterSuite) TestUpdateAndVersionConflict() {
	payload := gin.H{
		"id": "d2", "version": 1,
		"name": "Biju Thomas", "age": 42, "blood_group": "B-", "contact": "9123456780", "location": "Kannur",
	}
	w, body := s.do(http.MethodPut, "/donors/2", payload, true)
	s.Equal(http.StatusOK, w.Code)
	s.Equal(false, body["manage"].(map[string]any)["open"])
	s.EqualValues(2, body["donor"].(map[string]any)["version"])

	w, body = s.do(http.MethodPut, "/donors/2", payload, true)
	s.Equal(http.StatusConflict, w.Code)
	s.Equal(string(services.CodeVersionConflict), body["code"])
	s.Equal(true, body["manage"].(map[string]any)["open"])
}

func (s *RouterSuite) TestUpdateInvalidIndex() {
	w, body := s.do(http.MethodPut, "/donors/9", gin.H{
		"name": "Biju", "age": 42, "blood_group": "B-", "contact": "9123456780", "location": "Kannur",
	}, true)

	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("Invalid donor index selected.", body["error"])

	w, _ = s.do(http.MethodPut, "/donors/x", gin.H{}, true)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *RouterSuite) TestDeleteTwoPhase() {
	w, _ := s.do(http.MethodDelete, "/donors/1", nil, true)
	s.Equal(http.StatusBadRequest, w.Code, "no token")

	w, prompt := s.do(http.MethodGet, "/donors/1/delete", nil, true)
	s.Require().Equal(http.StatusOK, w.Code)
	token := prompt["token"].(string)
	s.Equal("delete", prompt["manage"].(map[string]any)["action"])

	w, _ = s.do(http.MethodDelete, "/donors/1?token=stale", nil, true)
	s.Equal(http.StatusConflict, w.Code)

	w, body := s.do(http.MethodDelete, "/donors/1?token="+token, nil, true)
	s.Equal(http.StatusOK, w.Code)
	s.Equal("Anu Mathew", body["donor"].(map[string]any)["name"])

	donors, err := s.store.ReadAll(context.Background())
	s.Require().NoError(err)
	s.Len(donors, 1)
	s.Equal("Biju", donors[0].Name)
}

func (s *RouterSuite) TestCancelDelete() {
	w, body := s.do(http.MethodPost, "/donors/1/delete/cancel", nil, true)

	s.Equal(http.StatusOK, w.Code)
	s.Equal(false, body["manage"].(map[string]any)["open"])
	donors, _ := s.store.ReadAll(context.Background())
	s.Len(donors, 2)
}

func (s *RouterSuite) TestExportSendsAndLogs() {
	w, body := s.do(http.MethodPost, "/exports", gin.H{
		"email": "reader@example.com", "blood_group": "O+", "confirm": true,
	}, true)

	s.Equal(http.StatusOK, w.Code)
	s.EqualValues(1, body["result"].(map[string]any)["count"])
	s.Len(s.mailer.sent, 1)
	s.Len(s.store.Logs(), 1)
}

func (s *RouterSuite) TestExportInvalidEmail() {
	w, body := s.do(http.MethodPost, "/exports", gin.H{"email": "not-an-email", "confirm": true}, true)

	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal(string(services.CodeInvalidRecipient), body["code"])
	s.Empty(s.mailer.sent)
	s.Empty(s.store.Logs())
}

func (s *RouterSuite) TestExportTransportFailureStillLogged() {
	s.mailer.err = errors.New("connection refused")

	w, body := s.do(http.MethodPost, "/exports", gin.H{"email": "reader@example.com", "confirm": true}, true)

	s.Equal(http.StatusServiceUnavailable, w.Code)
	s.Equal(true, body["result"].(map[string]any)["logged"])
	s.Len(s.store.Logs(), 1)
}

func (s *RouterSuite) TestExportOptions() {
	w, body := s.do(http.MethodGet, "/exports/options", nil, false)

	s.Equal(http.StatusOK, w.Code)
	opts := body["options"].(map[string]any)
	s.Equal([]any{"Kannur", "Kochi"}, opts["locations"])
}

func (s *RouterSuite) TestChartsAboutHealth() {
	w, body := s.do(http.MethodGet, "/charts", nil, false)
	s.Equal(http.StatusOK, w.Code)
	s.EqualValues(2, body["summary"].(map[string]any)["total"])

	w, body = s.do(http.MethodGet, "/about", nil, false)
	s.Equal(http.StatusOK, w.Code)
	s.Equal(models.DefaultProfile.Name, body["name"])

	w, body = s.do(http.MethodGet, "/healthz", nil, false)
	s.Equal(http.StatusOK, w.Code)
	s.Equal(true, body["mail"])
}

func (s *RouterSuite) TestMetricsEndpoint() {
	w, _ := s.do(http.MethodGet, "/metrics", nil, false)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "donor_duplicates_rejected_total")
}
