package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/collector-appraisal/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*ScanRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &ScanRepository{db: db}, mock, func() { _ = db.Close() }
}

var scanColumns = []string{
	"id", "filename", "mime_type", "storage_path", "status", "appraisal", "error_message", "created_at", "updated_at",
}

func TestCreateInsertsCapturedScan(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO scans").
		WithArgs("scan-1", "card.jpg", "image/jpeg", "scan-1_card.jpg", "captured", "", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &domain.Scan{
		ID:          "scan-1",
		Filename:    "card.jpg",
		MimeType:    "image/jpeg",
		StoragePath: "scan-1_card.jpg",
		Status:      domain.ScanStatusCaptured,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, filename, mime_type, storage_path").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrScanNotFound) {
		t.Fatalf("expected ErrScanNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDDecodesAppraisal(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	record := domain.AppraisalRecord{
		Category:         domain.CategoryCoin,
		Title:            "Coin/medal (1921)",
		Condition:        domain.ConditionSummary{Grade: "AU", Notes: "AU (62/100) - no visible defects detected"},
		PriceEstimateSEK: domain.PriceEstimate{Low: 100, Mid: 400, High: 900, Sources: []string{"heuristic"}},
	}
	raw, _ := json.Marshal(record)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT id, filename, mime_type, storage_path").
		WithArgs("scan-2").
		WillReturnRows(sqlmock.NewRows(scanColumns).
			AddRow("scan-2", "coin.png", "image/png", "scan-2_coin.png", "appraised", raw, "", now, now))

	scan, err := repo.GetByID(context.Background(), "scan-2")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if scan.Status != domain.ScanStatusAppraised {
		t.Fatalf("unexpected status %q", scan.Status)
	}
	if scan.Appraisal == nil || scan.Appraisal.Condition.Grade != "AU" || scan.Appraisal.PriceEstimateSEK.High != 900 {
		t.Fatalf("unexpected appraisal %+v", scan.Appraisal)
	}
}

func TestGetByIDWithoutAppraisal(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, filename, mime_type, storage_path").
		WithArgs("scan-3").
		WillReturnRows(sqlmock.NewRows(scanColumns).
			AddRow("scan-3", "toy.jpg", "image/jpeg", "scan-3_toy.jpg", "captured", nil, "", now, now))

	scan, err := repo.GetByID(context.Background(), "scan-3")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if scan.Appraisal != nil {
		t.Fatalf("expected no appraisal, got %+v", scan.Appraisal)
	}
}

func TestUpdateStatusReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE scans").
		WithArgs("missing", string(domain.ScanStatusAnalyzing), "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing", domain.ScanStatusAnalyzing, "")
	if !domain.IsKind(err, domain.ErrScanNotFound) {
		t.Fatalf("expected ErrScanNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveAppraisalMarksScanAppraised(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE scans").
		WithArgs("scan-4", "appraised", "cards", "NM", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SaveAppraisal(context.Background(), "scan-4", domain.AppraisalRecord{
		Category:  domain.CategoryCards,
		Condition: domain.ConditionSummary{Grade: "NM"},
	})
	if err != nil {
		t.Fatalf("SaveAppraisal() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveAppraisalReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE scans").
		WithArgs("missing", "appraised", "stamp", "VF", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SaveAppraisal(context.Background(), "missing", domain.AppraisalRecord{
		Category:  domain.CategoryStamp,
		Condition: domain.ConditionSummary{Grade: "VF"},
	})
	if !domain.IsKind(err, domain.ErrScanNotFound) {
		t.Fatalf("expected ErrScanNotFound, got %v", err)
	}
}
