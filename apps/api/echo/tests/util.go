package tests

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xuri/excelize/v2"

	. "github.com/trezcool/gradebook/apps/api/echo"
	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/account"
	"github.com/trezcool/gradebook/core/analysis"
	"github.com/trezcool/gradebook/core/attendance"
	"github.com/trezcool/gradebook/core/semester"
	"github.com/trezcool/gradebook/core/sheet"
	sqlxrepos "github.com/trezcool/gradebook/storage/database/sqlx"
	testutil "github.com/trezcool/gradebook/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	Server
	conf    *core.Config
	accRepo account.Repository
}

func setup(t *testing.T) testApp {
	conf := testutil.NewConfig()
	logger := testutil.NewLogger(conf)
	validate, translator := testutil.NewValidator()

	// set up DB & repos
	db := testutil.PrepareDB(t, conf)
	locks := core.NewKeyedRWMutex()
	accRepo, err := sqlxrepos.NewAccountRepository(db)
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	semRepo, err := sqlxrepos.NewSemesterRepository(db, locks)
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	attRepo, err := sqlxrepos.NewAttendanceRepository(db, locks)
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}

	// set up services
	semSvc := semester.NewService(semRepo, logger)
	attSvc := attendance.NewService(attRepo, logger, conf)

	// set up server
	srv := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		AccountSvc:     account.NewService(accRepo, validate, translator),
		SemesterSvc:    semSvc,
		AttendanceSvc:  attSvc,
		AnalysisSvc:    analysis.NewService(semSvc, attSvc),
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})
	return testApp{Server: srv, conf: conf, accRepo: accRepo}
}

func (app testApp) token(t *testing.T, acc account.Account) string {
	token, err := GenerateToken(app.conf, acc)
	if err != nil {
		t.Fatalf("token() failed: %v", err)
	}
	return token
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// newUploadRequest posts content as the multipart "file" field named filename.
func newUploadRequest(t *testing.T, path, token, filename string, content []byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("newUploadRequest() failed: %v", err)
	}
	if _, err = fw.Write(content); err != nil {
		t.Fatalf("newUploadRequest() failed: %v", err)
	}
	if err = mw.Close(); err != nil {
		t.Fatalf("newUploadRequest() failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

// workbook renders s as an xlsx file.
func workbook(t *testing.T, s *sheet.Sheet) []byte {
	f := excelize.NewFile()
	name := f.GetSheetName(0)
	rows := append([][]string{s.Headers}, s.Rows...)
	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		axis, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("workbook() failed: %v", err)
		}
		if err = f.SetSheetRow(name, axis, &cells); err != nil {
			t.Fatalf("workbook() failed: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("workbook() failed: %v", err)
	}
	return buf.Bytes()
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

// decode unmarshals the recorded JSON body into v.
func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	if !assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String()) {
		t.FailNow()
	}
}
