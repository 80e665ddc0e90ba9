package testutil

import (
	"context"
	"io"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/account"
	"github.com/trezcool/gradebook/core/sheet"
	logsvc "github.com/trezcool/gradebook/services/logger"
	"github.com/trezcool/gradebook/storage/database"
)

// NewConfig returns a configuration backed by an in-memory sqlite database.
func NewConfig() *core.Config {
	return &core.Config{
		Env:                 "TEST",
		Build:               "test",
		TestMode:            true,
		AppName:             "Gradebook",
		SecretKey:           "test-secret",
		AttendanceThreshold: 80,
		Database: core.DatabaseConfig{
			Engine: database.EngineSQLite,
			Name:   ":memory:",
		},
		Server: core.ServerConfig{
			Address:            ":0",
			ShutdownTimeout:    time.Second,
			JWTExpirationDelta: time.Hour,
			MaxUploadSize:      1 << 20,
		},
	}
}

// PrepareDB opens a fresh, migrated in-memory database, closed when the test ends.
func PrepareDB(t *testing.T, conf *core.Config) *sqlx.DB {
	t.Helper()

	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

// NewLogger returns a logger writing nowhere, with rollbar disabled.
func NewLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(io.Discard, "TEST", conf)
	logger.Enable(false)
	return logger
}

func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	account.InitValidators(validate, translator)
	return validate, translator
}

func CreateAccount(t *testing.T, repo account.Repository, uname, pwd string, role account.Role, createdAt ...time.Time) account.Account {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	acc := account.Account{
		ID:        uname + "-id",
		Username:  uname,
		Role:      role,
		CreatedAt: tstamp,
	}
	if err := acc.SetPassword(pwd); err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}
	acc, err := repo.CreateAccount(context.Background(), acc)
	if err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}
	return acc
}

// GradebookSheet is a small gradebook: two subjects, one student failing outright.
func GradebookSheet() *sheet.Sheet {
	return sheet.New("marks",
		[]string{"USN", "Student Name", "Mathematics (4)", "Physics (3)"},
		[]string{"1XX01", "Alice", "95", "85"},
		[]string{"1XX02", "Bob", "72", "64"},
		[]string{"1XX03", "Carol", "20", "90"},
		[]string{"1XX04", "Dave", "45", ""},
	)
}

// AttendanceSheet covers three sessions for the students of GradebookSheet.
func AttendanceSheet() *sheet.Sheet {
	return sheet.New("attendance",
		[]string{"USN", "Student Name", "2024-01-05", "2024-01-06", "2024-01-07"},
		[]string{"1XX01", "Alice", "P", "P", "P"},
		[]string{"1XX02", "Bob", "P", "a", "A"},
		[]string{"1XX03", "Carol", "P", "P", ""},
		[]string{"1XX04", "Dave", "A", "A", "A"},
	)
}
