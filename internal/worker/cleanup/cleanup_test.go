package cleanup

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func newMock(t *testing.T) (*CleanupJob, sqlmock.Sqlmock, *bytes.Buffer) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	var buf bytes.Buffer
	return NewCleanupJob(db, newTestLogger(&buf), 24*time.Hour), mock, &buf
}

func TestNewCleanupJob_DefaultRetention(t *testing.T) {
	job := NewCleanupJob(nil, nil, 0)
	if job.CodeRetention != 24*time.Hour {
		t.Errorf("CodeRetention = %v, want 24h", job.CodeRetention)
	}
}

func TestCleanupJob_Run_DeletesSessionsAndCodes(t *testing.T) {
	job, mock, buf := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta(deleteExpiredSessionsQuery)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta(deleteOldCodesQuery)).
		WithArgs("86400 seconds").
		WillReturnResult(sqlmock.NewResult(0, 7))

	res, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Sessions != 3 || res.Codes != 7 {
		t.Errorf("result = %+v, want {3 7}", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
	if !strings.Contains(buf.String(), "cleanup job completed") {
		t.Errorf("completion log missing: %s", buf.String())
	}
}

func TestCleanupJob_Run_NothingToDelete(t *testing.T) {
	job, mock, _ := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta(deleteExpiredSessionsQuery)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(deleteOldCodesQuery)).WillReturnResult(sqlmock.NewResult(0, 0))

	if _, err := job.Run(context.Background()); err != nil {
		t.Errorf("Run: %v", err)
	}
}

func TestCleanupJob_Run_SessionFailureStillCleansCodes(t *testing.T) {
	job, mock, buf := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta(deleteExpiredSessionsQuery)).WillReturnError(errors.New("lock timeout"))
	mock.ExpectExec(regexp.QuoteMeta(deleteOldCodesQuery)).WillReturnResult(sqlmock.NewResult(0, 2))

	res, err := job.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "sessions") {
		t.Fatalf("err = %v, want sessions error", err)
	}
	if res.Codes != 2 {
		t.Errorf("Codes = %d, want 2", res.Codes)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
	if !strings.Contains(buf.String(), `"level":"ERROR"`) {
		t.Error("failure should be logged at ERROR")
	}
}

func TestCleanupJob_Start_StopsOnCancel(t *testing.T) {
	job, mock, _ := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(deleteExpiredSessionsQuery)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(deleteOldCodesQuery)).WillReturnResult(sqlmock.NewResult(0, 0))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx, time.Hour)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
