package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gaborage/go-bricks/database"
	dbtest "github.com/gaborage/go-bricks/database/testing"
	dbtypes "github.com/gaborage/go-bricks/database/types"

	"github.com/ugawatch/ugawatch-api/internal/modules/trending/domain"
)

func repoWith(db database.Interface) *ViewRepository {
	return NewViewRepository(func(ctx context.Context) (database.Interface, error) {
		return db, nil
	})
}

func TestRecordView(t *testing.T) {
	ctx := context.Background()

	t.Run("successful insert", func(t *testing.T) {
		db := dbtest.NewTestDB(dbtypes.PostgreSQL)
		db.ExpectExec("INSERT INTO movie_views").WillReturnRowsAffected(1)

		view := domain.NewViewEvent("movie-1", domain.ViewPlay, time.Now())
		if err := repoWith(db).RecordView(ctx, view); err != nil {
			t.Errorf("RecordView() unexpected error = %v", err)
		}
		if view.ID == "" {
			t.Error("RecordView() did not assign an id")
		}
		dbtest.AssertExecExecuted(t, db, "INSERT")
	})

	t.Run("database error", func(t *testing.T) {
		db := dbtest.NewTestDB(dbtypes.PostgreSQL)
		db.ExpectExec("INSERT INTO movie_views").WillReturnError(errors.New("database error"))

		if err := repoWith(db).RecordView(ctx, domain.NewViewEvent("movie-1", domain.ViewVisit, time.Now())); err == nil {
			t.Error("RecordView() expected error, got nil")
		}
	})

	t.Run("analytics database unavailable", func(t *testing.T) {
		repo := NewViewRepository(func(ctx context.Context) (database.Interface, error) {
			return nil, errors.New("analytics database not configured")
		})
		if err := repo.RecordView(ctx, domain.NewViewEvent("movie-1", domain.ViewPlay, time.Now())); err == nil {
			t.Error("RecordView() expected error, got nil")
		}
	})
}

func TestHistories(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("merges recent events and totals", func(t *testing.T) {
		db := dbtest.NewTestDB(dbtypes.PostgreSQL)
		db.ExpectQuery("WHERE viewed_at").WillReturnRows(
			dbtest.NewRowSet("movie_id", "viewed_at").
				AddRow("a", now.Add(-time.Hour)).
				AddRow("a", now.Add(-2*time.Hour)).
				AddRow("b", now.Add(-3*time.Hour)),
		)
		db.ExpectQuery("UNION ALL").WillReturnRows(
			dbtest.NewRowSet("movie_id", "total").
				AddRow("a", int64(40)).
				AddRow("b", int64(1)).
				AddRow("c", int64(900)),
		)

		histories, err := repoWith(db).Histories(ctx, now.Add(-7*24*time.Hour))
		if err != nil {
			t.Fatalf("Histories() unexpected error = %v", err)
		}
		if len(histories["a"].Events) != 2 || histories["a"].Total != 40 {
			t.Errorf("history a = %+v", histories["a"])
		}
		if len(histories["c"].Events) != 0 || histories["c"].Total != 900 {
			t.Errorf("history c = %+v", histories["c"])
		}
	})

	t.Run("query error", func(t *testing.T) {
		db := dbtest.NewTestDB(dbtypes.PostgreSQL)
		db.ExpectQuery("WHERE viewed_at").WillReturnError(errors.New("database error"))

		if _, err := repoWith(db).Histories(ctx, now); err == nil {
			t.Error("Histories() expected error, got nil")
		}
	})
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	db := dbtest.NewTestDB(dbtypes.PostgreSQL)
	db.ExpectQuery("AND viewed_at").WillReturnRows(
		dbtest.NewRowSet("viewed_at").AddRow(now.Add(-time.Hour)),
	)
	db.ExpectQuery("COALESCE").WillReturnRows(
		dbtest.NewRowSet("total").AddRow(int64(12)),
	)

	h, err := repoWith(db).History(ctx, "movie-1", now.Add(-7*24*time.Hour))
	if err != nil {
		t.Fatalf("History() unexpected error = %v", err)
	}
	if len(h.Events) != 1 || h.Total != 12 {
		t.Errorf("History() = %+v, want 1 event and total 12", h)
	}
}

func TestRollup(t *testing.T) {
	ctx := context.Background()

	t.Run("reports moved events", func(t *testing.T) {
		db := dbtest.NewTestDB(dbtypes.PostgreSQL)
		db.ExpectQuery("WITH moved").WillReturnRows(dbtest.NewRowSet("count").AddRow(int64(5)))

		moved, err := repoWith(db).Rollup(ctx, time.Now().Add(-8*24*time.Hour), "UTC")
		if err != nil {
			t.Fatalf("Rollup() unexpected error = %v", err)
		}
		if moved != 5 {
			t.Errorf("Rollup() = %d, want 5", moved)
		}
		dbtest.AssertQueryExecuted(t, db, "WITH moved")
	})

	t.Run("database error", func(t *testing.T) {
		db := dbtest.NewTestDB(dbtypes.PostgreSQL)
		db.ExpectQuery("WITH moved").WillReturnError(errors.New("database error"))

		if _, err := repoWith(db).Rollup(ctx, time.Now(), "UTC"); err == nil {
			t.Error("Rollup() expected error, got nil")
		}
	})
}
