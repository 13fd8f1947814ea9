package tags

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/acme/imagestore/internal/common"
	"github.com/acme/imagestore/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreateBatch_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	entries := []*models.TagEntry{
		{Tag: "nature", ImageID: "img-1", OwnerID: "u1", CreatedAt: created},
		{Tag: "sky", ImageID: "img-1", OwnerID: "u1", CreatedAt: created},
	}

	q := `^INSERT\s+INTO\s+image_tags\s+\(tag,\s*image_id,\s*owner_id,\s*created_at\)\s+VALUES\s+\(\$1,\s*\$2,\s*\$3,\s*\$4\),\s*\(\$5,\s*\$6,\s*\$7,\s*\$8\)$`

	mock.ExpectExec(q).
		WithArgs("nature", "img-1", "u1", created, "sky", "img-1", "u1", created).
		WillReturnResult(sqlmock.NewResult(0, 2))

	if err := repo.CreateBatch(context.Background(), entries); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateBatch_EmptyIsNoop(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	if err := repo.CreateBatch(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no statements expected: %v", err)
	}
}

func TestCreateBatch_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`^INSERT\s+INTO\s+image_tags\b`).
		WillReturnError(errors.New("db down"))

	err := repo.CreateBatch(context.Background(), []*models.TagEntry{
		{Tag: "nature", ImageID: "img-1", OwnerID: "u1", CreatedAt: time.Now()},
	})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestDeleteByImage_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`^DELETE\s+FROM\s+image_tags\s+WHERE\s+image_id\s*=\s*\$1$`).
		WithArgs("img-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	if err := repo.DeleteByImage(context.Background(), "img-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDeleteByImage_NoRowsIsStillSuccess(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`^DELETE\s+FROM\s+image_tags\s+WHERE\s+image_id\s*=\s*\$1$`).
		WithArgs("img-gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.DeleteByImage(context.Background(), "img-gone"); err != nil {
		t.Fatalf("idempotent delete must not fail: %v", err)
	}
}

func TestQueryByTag_FirstPage_ReturnsCursorWhenFull(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"image_id"}).
		AddRow("img-1").
		AddRow("img-2")

	mock.ExpectQuery(`^SELECT\s+image_id\s+FROM\s+image_tags\s+WHERE\s+tag\s*=\s*\$1\s+ORDER\s+BY\s+image_id\s+LIMIT\s+\$2$`).
		WithArgs("nature", 2).
		WillReturnRows(rows)

	ids, next, err := repo.QueryByTag(context.Background(), "nature", 2, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 || ids[0] != "img-1" || ids[1] != "img-2" {
		t.Fatalf("ids mismatch: %v", ids)
	}
	if next == "" {
		t.Fatalf("expected non-empty cursor for a full page")
	}

	after, err := decodeTagCursor(next)
	if err != nil {
		t.Fatalf("cursor must round-trip: %v", err)
	}
	if after != "img-2" {
		t.Fatalf("cursor points at wrong row: %q", after)
	}
}

func TestQueryByTag_WithCursor_ResumesAfterLastID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"image_id"}).AddRow("img-3")

	mock.ExpectQuery(`^SELECT\s+image_id\s+FROM\s+image_tags\s+WHERE\s+tag\s*=\s*\$1\s+AND\s+image_id\s*>\s*\$2\s+ORDER\s+BY\s+image_id\s+LIMIT\s+\$3$`).
		WithArgs("nature", "img-2", 2).
		WillReturnRows(rows)

	ids, next, err := repo.QueryByTag(context.Background(), "nature", 2, encodeTagCursor("img-2"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 1 || ids[0] != "img-3" {
		t.Fatalf("ids mismatch: %v", ids)
	}
	if next != "" {
		t.Fatalf("expected empty cursor for a partial page, got %q", next)
	}
}

func TestQueryByTag_MalformedCursor(t *testing.T) {
	repo, _, db := newRepoWithMock(t)
	defer db.Close()

	_, _, err := repo.QueryByTag(context.Background(), "nature", 2, "%%%not-base64%%%")
	if !errors.Is(err, common.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput, got %v", err)
	}
}

func TestQueryByTag_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`^SELECT\s+image_id\s+FROM\s+image_tags\b`).
		WillReturnError(errors.New("db down"))

	_, _, err := repo.QueryByTag(context.Background(), "nature", 2, "")
	if err == nil || !regexp.MustCompile(`failed to select tag entries: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped select error, got %v", err)
	}
}
