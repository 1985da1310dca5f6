package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Redshadow31/tenf-v2-sub004/internal/app/apperr"
	"github.com/Redshadow31/tenf-v2-sub004/internal/domain/evaluation"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestInMemoryEvaluationUpsertMergesPatches(t *testing.T) {
	repo := NewInMemoryEvaluationRepo()
	ctx := context.Background()
	month := evaluation.MonthKey("2024-03")

	if _, err := repo.FindByMemberAndMonth(ctx, "alice", month); !errors.Is(err, apperr.ErrEvaluationNotFound) {
		t.Fatalf("expected not found before first write, got %v", err)
	}

	raid := 3
	first, err := repo.Upsert(ctx, "Alice", month, evaluation.Patch{RaidPoints: &raid})
	if err != nil {
		t.Fatalf("upsert error: %v", err)
	}
	if first.Login != "alice" || first.RaidPoints != 3 || first.CreatedAt.IsZero() {
		t.Fatalf("unexpected first row %+v", first)
	}

	bonuses := []evaluation.Bonus{{ID: "b1", Points: 2}}
	second, err := repo.Upsert(ctx, "alice", month, evaluation.Patch{Bonuses: &bonuses})
	if err != nil {
		t.Fatalf("upsert error: %v", err)
	}
	if second.RaidPoints != 3 || len(second.Bonuses) != 1 {
		t.Fatalf("patch must not clobber other sections: %+v", second)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("created at changed")
	}

	rows, _ := repo.FindByMonth(ctx, month)
	if len(rows) != 1 {
		t.Fatalf("expected one row, got %d", len(rows))
	}
	rows[0].RaidPoints = 99
	again, _ := repo.FindByMemberAndMonth(ctx, "alice", month)
	if again.RaidPoints != 3 {
		t.Fatalf("returned rows must be copies")
	}

	n, err := repo.DeleteByMonth(ctx, month)
	if err != nil || n != 1 {
		t.Fatalf("delete by month = %d, %v", n, err)
	}
}

func newGormWithMock(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("gorm open error: %v", err)
	}
	return db, mock
}

var evaluationColumnNames = []string{
	"id", "login", "month", "spotlights", "events", "raid_points", "spotlight_bonus", "engagement",
	"follow_validations", "bonuses", "section_a", "section_b", "section_c", "section_d", "total",
	"updated_by", "created_at", "updated_at",
}

func TestGormEvaluationFindByMonthDecodesSections(t *testing.T) {
	db, mock := newGormWithMock(t)
	repo := NewGormEvaluationRepo(db)
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(evaluationColumnNames).AddRow(
		1, "alice", "2024-03",
		[]byte(`[{"kind":"spotlight-attendance","id":"s1","roster":[{"login":"alice","present":true}]}]`),
		[]byte(`[]`), 4, 1,
		[]byte(`{"messages":160,"finalScore":3}`),
		[]byte(`[]`),
		[]byte(`[{"kind":"bonus","id":"b1","points":2}]`),
		0, 0, 0, 0, 0, "", now, now,
	)
	mock.ExpectQuery(`SELECT \* FROM "evaluations" WHERE month = \$1`).WillReturnRows(rows)

	got, err := repo.FindByMonth(context.Background(), "2024-03")
	if err != nil {
		t.Fatalf("FindByMonth error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one row, got %d", len(got))
	}
	e := got[0]
	if len(e.Spotlights) != 1 || e.Spotlights[0].ID != "s1" || e.Engagement.FinalScore != 3 || e.Bonuses[0].Points != 2 {
		t.Fatalf("unexpected evaluation %+v", e)
	}
	if total := e.ComputeTotals(evaluation.DefaultWeights); total.Total != 1+4+1+3+2 {
		t.Fatalf("unexpected totals %+v", total)
	}
}

func TestGormEvaluationRejectsMistaggedEntries(t *testing.T) {
	db, mock := newGormWithMock(t)
	repo := NewGormEvaluationRepo(db)
	now := time.Now().UTC()

	rows := sqlmock.NewRows(evaluationColumnNames).AddRow(
		1, "alice", "2024-03",
		[]byte(`[{"kind":"bonus","id":"s1"}]`),
		[]byte(`[]`), 0, 0, []byte(`{}`), []byte(`[]`), []byte(`[]`),
		0, 0, 0, 0, 0, "", now, now,
	)
	mock.ExpectQuery(`SELECT \* FROM "evaluations" WHERE login = \$1 AND month = \$2`).WillReturnRows(rows)

	_, err := repo.FindByMemberAndMonth(context.Background(), "alice", "2024-03")
	if !errors.Is(err, apperr.ErrDataIntegrity) {
		t.Fatalf("expected data integrity error, got %v", err)
	}
}

func TestGormEvaluationNotFound(t *testing.T) {
	db, mock := newGormWithMock(t)
	repo := NewGormEvaluationRepo(db)

	mock.ExpectQuery(`FROM "evaluations"`).WillReturnRows(sqlmock.NewRows(evaluationColumnNames))

	if _, err := repo.FindByMemberAndMonth(context.Background(), "ghost", "2024-03"); !errors.Is(err, apperr.ErrEvaluationNotFound) {
		t.Fatalf("expected evaluation not found, got %v", err)
	}
}

func TestGormEvaluationUpsertUpdatesOnlyPatchedColumns(t *testing.T) {
	db, mock := newGormWithMock(t)
	repo := NewGormEvaluationRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`(?s)INSERT INTO "evaluations".*ON CONFLICT \("login","month"\) DO UPDATE SET "updated_at"="excluded"."updated_at","raid_points"="excluded"."raid_points"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(`FROM "evaluations" WHERE login = \$1 AND month = \$2`).
		WillReturnRows(sqlmock.NewRows(evaluationColumnNames).AddRow(
			7, "alice", "2024-03", []byte(`[]`), []byte(`[]`), 5, 0, []byte(`{}`), []byte(`[]`), []byte(`[]`),
			0, 0, 0, 0, 0, "", now, now,
		))

	points := 5
	got, err := repo.Upsert(context.Background(), "Alice", "2024-03", evaluation.Patch{RaidPoints: &points})
	if err != nil {
		t.Fatalf("Upsert error: %v", err)
	}
	if got.RaidPoints != 5 {
		t.Fatalf("unexpected row %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInMemoryEvaluationListMonths(t *testing.T) {
	repo := NewInMemoryEvaluationRepo()
	ctx := context.Background()
	points := 1
	for _, month := range []evaluation.MonthKey{"2024-03", "2024-01", "2024-03"} {
		if _, err := repo.Upsert(ctx, "alice", month, evaluation.Patch{RaidPoints: &points}); err != nil {
			t.Fatalf("upsert %s: %v", month, err)
		}
	}
	if _, err := repo.Upsert(ctx, "bob", "2024-02", evaluation.Patch{RaidPoints: &points}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := repo.Delete(ctx, "bob", "2024-02"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	months, err := repo.ListMonths(ctx)
	if err != nil {
		t.Fatalf("ListMonths error: %v", err)
	}
	if len(months) != 2 || months[0] != "2024-01" || months[1] != "2024-03" {
		t.Fatalf("unexpected months %v", months)
	}
}

func TestGormEvaluationListMonths(t *testing.T) {
	db, mock := newGormWithMock(t)
	repo := NewGormEvaluationRepo(db)

	mock.ExpectQuery(`(?s)SELECT DISTINCT.*"month".*FROM "evaluations".*ORDER BY month`).
		WillReturnRows(sqlmock.NewRows([]string{"month"}).AddRow("2024-01").AddRow("2024-03"))

	months, err := repo.ListMonths(context.Background())
	if err != nil {
		t.Fatalf("ListMonths error: %v", err)
	}
	if len(months) != 2 || months[1] != "2024-03" {
		t.Fatalf("unexpected months %v", months)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
