package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gaborage/go-bricks/database"
	dbtest "github.com/gaborage/go-bricks/database/testing"
	dbtypes "github.com/gaborage/go-bricks/database/types"

	"github.com/ugawatch/ugawatch-api/internal/modules/notifications/domain"
)

var tokenColumns = []string{"token", "user_id", "platform", "created_at"}

func repoWith(db database.Interface) *TokenRepository {
	return NewTokenRepository(func(ctx context.Context) (database.Interface, error) {
		return db, nil
	})
}

func TestUpsert(t *testing.T) {
	ctx := context.Background()
	token := &domain.DeviceToken{Token: "tok-1", UserID: "u1", Platform: domain.PlatformAndroid, CreatedAt: time.Now()}

	t.Run("registers", func(t *testing.T) {
		db := dbtest.NewTestDB(dbtypes.PostgreSQL)
		db.ExpectExec("INSERT INTO fcm_tokens").WillReturnRowsAffected(1)

		if err := repoWith(db).Upsert(ctx, token); err != nil {
			t.Errorf("Upsert() unexpected error = %v", err)
		}
		dbtest.AssertExecExecuted(t, db, "ON CONFLICT (token)")
	})

	t.Run("database error", func(t *testing.T) {
		db := dbtest.NewTestDB(dbtypes.PostgreSQL)
		db.ExpectExec("INSERT INTO fcm_tokens").WillReturnError(errors.New("database error"))

		if err := repoWith(db).Upsert(ctx, token); err == nil {
			t.Error("Upsert() expected error, got nil")
		}
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"existing token", 1, true},
		{"unknown token", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := dbtest.NewTestDB(dbtypes.PostgreSQL)
			db.ExpectExec("DELETE FROM fcm_tokens").WillReturnRowsAffected(tt.affected)

			got, err := repoWith(db).Delete(ctx, "tok-1")
			if err != nil {
				t.Fatalf("Delete() unexpected error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Delete() = %v, want %v", got, tt.want)
			}
			dbtest.AssertExecExecuted(t, db, "DELETE FROM fcm_tokens WHERE token = $1")
			if args := db.ExecLog()[0].Args; len(args) != 1 || args[0] != "tok-1" {
				t.Errorf("Delete() args = %v, want [tok-1]", args)
			}
		})
	}
}

func TestListByUser(t *testing.T) {
	now := time.Now().UTC()
	db := dbtest.NewTestDB(dbtypes.PostgreSQL)
	db.ExpectQuery("WHERE user_id").WillReturnRows(
		dbtest.NewRowSet(tokenColumns...).
			AddRow("tok-1", "u1", "android", now).
			AddRow("tok-2", "u1", "ios", now),
	)

	tokens, err := repoWith(db).ListByUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ListByUser() unexpected error = %v", err)
	}
	if len(tokens) != 2 || tokens[1].Platform != domain.PlatformIOS {
		t.Errorf("ListByUser() = %+v", tokens)
	}
}

func TestListAll(t *testing.T) {
	t.Run("returns every token", func(t *testing.T) {
		db := dbtest.NewTestDB(dbtypes.PostgreSQL)
		db.ExpectQuery("FROM fcm_tokens").WillReturnRows(
			dbtest.NewRowSet(tokenColumns...).AddRow("tok-1", "u1", "web", time.Now().UTC()),
		)

		tokens, err := repoWith(db).ListAll(context.Background())
		if err != nil {
			t.Fatalf("ListAll() unexpected error = %v", err)
		}
		if len(tokens) != 1 {
			t.Errorf("ListAll() returned %d tokens, want 1", len(tokens))
		}
	})

	t.Run("query error", func(t *testing.T) {
		db := dbtest.NewTestDB(dbtypes.PostgreSQL)
		db.ExpectQuery("FROM fcm_tokens").WillReturnError(errors.New("database error"))

		if _, err := repoWith(db).ListAll(context.Background()); err == nil {
			t.Error("ListAll() expected error, got nil")
		}
	})
}
