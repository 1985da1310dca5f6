package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Redshadow31/tenf-v2-sub004/internal/app/apperr"
	"github.com/Redshadow31/tenf-v2-sub004/internal/domain/member"
	"github.com/lib/pq"
)

func newMemberRepoWithMock(t *testing.T) (MemberRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresMemberRepo(db), mock, db
}

var memberColumnNames = []string{
	"login", "display_name", "platform_id", "profile_url", "chat_id", "chat_handle", "role", "vip", "active",
	"badges", "description", "bio", "site_username", "list_id", "manual_override", "created_at", "updated_at",
}

func TestPostgresMemberCreateMapsUniqueViolation(t *testing.T) {
	repo, mock, db := newMemberRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+members\s*\(login,`).
		WillReturnError(&pq.Error{Code: "23505", Detail: "Key (login)=(alice) already exists."})

	err := repo.Create(context.Background(), &member.Member{Login: "alice"})
	if !errors.Is(err, apperr.ErrLoginTaken) || !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected login taken conflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresMemberFindByLogin(t *testing.T) {
	repo, mock, db := newMemberRepoWithMock(t)
	defer db.Close()

	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	rows := sqlmock.NewRows(memberColumnNames).AddRow(
		"alice", "Alice", "", "", "1021398088474169414", "alice.chat", "affiliate", true, true,
		[]byte("{founder,raider}"), "", "", "", 2, false, created, created,
	)
	mock.ExpectQuery(`(?s)^SELECT\s+login,.*FROM\s+members\s+WHERE\s+login\s*=\s*\$1$`).
		WithArgs("alice").
		WillReturnRows(rows)

	got, err := repo.FindByLogin(context.Background(), "  Alice ")
	if err != nil {
		t.Fatalf("FindByLogin error: %v", err)
	}
	if got.ChatID != "1021398088474169414" || got.Role != member.RoleAffiliate || !got.VIP {
		t.Fatalf("unexpected member %+v", got)
	}
	if len(got.Badges) != 2 || got.Badges[1] != "raider" {
		t.Fatalf("unexpected badges %v", got.Badges)
	}
}

func TestPostgresMemberFindByLoginNotFound(t *testing.T) {
	repo, mock, db := newMemberRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+members\s+WHERE\s+login`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.FindByLogin(context.Background(), "ghost"); !errors.Is(err, apperr.ErrMemberNotFound) {
		t.Fatalf("expected member not found, got %v", err)
	}
}

func TestPostgresMemberDeleteMissing(t *testing.T) {
	repo, mock, db := newMemberRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE\s+FROM\s+members`).
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), "ghost"); !errors.Is(err, apperr.ErrMemberNotFound) {
		t.Fatalf("expected member not found, got %v", err)
	}
}

func TestPostgresMemberMergeRunsInTransaction(t *testing.T) {
	repo, mock, db := newMemberRepoWithMock(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE\s+FROM\s+members`).WithArgs("bob").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)INSERT\s+INTO\s+members.*ON\s+CONFLICT\s+\(login\)`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	winner := &member.Member{Login: "alice", ManualOverride: true}
	if err := repo.Merge(context.Background(), winner, []string{"alice", "Bob"}); err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresMemberMergeRollsBackOnFailure(t *testing.T) {
	repo, mock, db := newMemberRepoWithMock(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE\s+FROM\s+members`).WithArgs("bob").WillReturnError(errors.New("db down"))
	mock.ExpectRollback()

	err := repo.Merge(context.Background(), &member.Member{Login: "alice"}, []string{"bob"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
