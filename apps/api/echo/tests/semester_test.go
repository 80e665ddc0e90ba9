package tests

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/gradebook/core/account"
	"github.com/trezcool/gradebook/core/analysis"
	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/core/semester"
	"github.com/trezcool/gradebook/core/sheet"
	testutil "github.com/trezcool/gradebook/tests"
)

func csvFile(t *testing.T, s *sheet.Sheet) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(s.Headers); err != nil {
		t.Fatalf("csvFile() failed: %v", err)
	}
	if err := w.WriteAll(s.Rows); err != nil {
		t.Fatalf("csvFile() failed: %v", err)
	}
	return buf.Bytes()
}

// uploadMarks uploads the gradebook fixture to sem as teacher.
func (app testApp) uploadMarks(t *testing.T, sem, token string) {
	req, rec := newUploadRequest(t, "/v1/semesters/"+sem+"/marks", token, "marks.xlsx", workbook(t, testutil.GradebookSheet()))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("uploadMarks() failed: %d %s", rec.Code, rec.Body.String())
	}
}

func Test_semesterApi_upload(t *testing.T) {
	app := setup(t)
	teacher := app.token(t, testutil.CreateAccount(t, app.accRepo, "teach", "s3cr3t-pass", account.RoleTeacher))
	student := app.token(t, testutil.CreateAccount(t, app.accRepo, "stud", "s3cr3t-pass", account.RoleStudent))

	xlsx := workbook(t, testutil.GradebookSheet())
	noSubjects := workbook(t, sheet.New("marks", []string{"USN", "Student Name", "Remarks"}, []string{"1XX01", "Alice", "ok"}))
	badMark := csvFile(t, sheet.New("marks", []string{"USN", "Student Name", "Mathematics (4)"}, []string{"1XX01", "Alice", "abc"}))

	tests := []struct {
		httpTest
		filename string
		content  []byte
	}{
		{httpTest: httpTest{name: "auth required", wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)}, filename: "marks.xlsx", content: xlsx},
		{
			httpTest: httpTest{name: "teacher required", token: student, wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: "permission denied"})},
			filename: "marks.xlsx", content: xlsx,
		},
		{
			httpTest: httpTest{name: "unsupported format", token: teacher, wantCode: http.StatusBadRequest, wantData: marshallObj(t, map[string]string{"file": "unsupported file format (expected .xlsx or .csv)"})},
			filename: "marks.txt", content: []byte("USN,Student Name"),
		},
		{
			httpTest: httpTest{name: "no subject column", token: teacher, wantCode: http.StatusBadRequest},
			filename: "marks.xlsx", content: noSubjects,
		},
		{
			httpTest: httpTest{name: "malformed mark", token: teacher, wantCode: http.StatusBadRequest},
			filename: "marks.csv", content: badMark,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newUploadRequest(t, "/v1/semesters/sem1/marks", tt.token, tt.filename, tt.content)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt.httpTest, rec)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/semesters/sem1/marks", teacher)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marshallObj(t, map[string]string{"file": "this field is required"})}, rec)
	})

	for _, tc := range []struct {
		name, filename string
		content        []byte
	}{
		{"xlsx", "marks.xlsx", xlsx},
		{"csv", "marks.csv", csvFile(t, testutil.GradebookSheet())},
	} {
		t.Run(tc.name, func(t *testing.T) {
			req, rec := newUploadRequest(t, "/v1/semesters/Sem-1/marks", teacher, tc.filename, tc.content)
			app.ServeHTTP(rec, req)
			if !assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String()) {
				return
			}

			var res semester.UploadResult
			decode(t, rec, &res)
			assert.Equal(t, semester.NewTable("sem_1"), res.Table)
			assert.Equal(t, 4, res.Inserted)
			assert.Len(t, res.Subjects, 2)
			assert.Empty(t, res.Warnings)
		})
	}

	t.Run("list", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/semesters", teacher)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshallObj(t, []string{"sem_1"})}, rec)
	})
}

func Test_semesterApi_queries(t *testing.T) {
	app := setup(t)
	teacher := app.token(t, testutil.CreateAccount(t, app.accRepo, "teach", "s3cr3t-pass", account.RoleTeacher))
	student := app.token(t, testutil.CreateAccount(t, app.accRepo, "stud", "s3cr3t-pass", account.RoleStudent))
	app.uploadMarks(t, "sem1", teacher)

	t.Run("access", func(t *testing.T) {
		tests := []httpTest{
			{name: "auth required", path: "/v1/semesters/sem1/statistics", wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)},
			{
				name: "teacher required", path: "/v1/semesters/sem1/report", token: student,
				wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: "permission denied"}),
			},
			{
				name: "invalid semester", path: "/v1/semesters/__/statistics", token: teacher,
				wantCode: http.StatusBadRequest, wantData: marshallObj(t, map[string]string{"semester": "invalid semester"}),
			},
			{
				name: "unknown semester", path: "/v1/semesters/sem9/statistics", token: teacher,
				wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: `semester "sem9" not found`}),
			},
			{name: "unknown student", path: "/v1/semesters/sem1/students/1XX99", token: student, wantCode: http.StatusNotFound},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
				app.ServeHTTP(rec, req)
				checkCodeAndData(t, tt, rec)
			})
		}
	})

	t.Run("statistics", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/semesters/sem1/statistics", teacher)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshallObj(t, semester.Statistics{
			Total:          4,
			Passed:         3,
			Failed:         1,
			PassPercentage: 75,
			AverageSGPA:    null.Float64From(6.67),
			HighestSGPA:    null.Float64From(9.57),
			LowestSGPA:     null.Float64From(2.86),
		})}, rec)
	})

	t.Run("grades", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/semesters/sem1/grades", teacher)
		app.ServeHTTP(rec, req)
		if !assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String()) {
			return
		}
		var dist []semester.GradeCount
		decode(t, rec, &dist)
		counts := make(map[grade.OverallGrade]int)
		for _, gc := range dist {
			counts[gc.Grade] = gc.Count
		}
		assert.Equal(t, 1, counts[grade.OverallGrade("A+")])
		assert.Equal(t, 1, counts[grade.OverallGrade("B+")])
		assert.Equal(t, 2, counts[grade.OverallGrade("F")])
	})

	t.Run("histogram", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/semesters/sem1/histogram", teacher)
		app.ServeHTTP(rec, req)
		if !assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String()) {
			return
		}
		var hist []semester.HistogramBucket
		decode(t, rec, &hist)
		if assert.Len(t, hist, len(semester.HistogramBuckets)) {
			assert.Equal(t, "9-10", hist[6].Label)
			assert.Equal(t, 1, hist[6].Count)
		}
	})

	t.Run("subjects", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/semesters/sem1/subjects", teacher)
		app.ServeHTTP(rec, req)
		if !assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String()) {
			return
		}
		var subjects []semester.SubjectAnalysis
		decode(t, rec, &subjects)
		if assert.Len(t, subjects, 2) {
			assert.Equal(t, "Mathematics", subjects[0].Subject.SubjectName)
			assert.Equal(t, 3, subjects[0].PassCount)
			assert.Equal(t, 1, subjects[0].FailCount)
		}
	})

	t.Run("report", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/semesters/sem1/report", teacher)
		app.ServeHTTP(rec, req)
		if !assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String()) {
			return
		}
		var rep analysis.SemesterReport
		decode(t, rec, &rep)
		assert.Equal(t, "sem1", rep.Semester)
		assert.Equal(t, 4, rep.Statistics.Total)
		if assert.NotEmpty(t, rep.TopPerformers) {
			assert.Equal(t, "1XX01", rep.TopPerformers[0].USN)
		}
	})

	t.Run("student report", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/semesters/sem1/students/1xx02", student)
		app.ServeHTTP(rec, req)
		if !assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String()) {
			return
		}
		var rep analysis.StudentReport
		decode(t, rec, &rep)
		assert.Equal(t, "Bob", rep.Student.StudentName)
		assert.Equal(t, 7.57, rep.Student.SGPA)
		assert.Len(t, rep.Subjects, 2)
		assert.Nil(t, rep.Attendance)
	})
}
