package database

import (
	"context"
	"testing"
	"time"

	"github.com/johnrirwin/fieldreport/internal/models"
	"github.com/johnrirwin/fieldreport/internal/testutil"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	testDB := testutil.NewTestDB(t)
	t.Cleanup(func() { testDB.Close() })

	db := &DB{DB: testDB.DB}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	testDB.Cleanup(context.Background())
	return db
}

func TestReportStore_ListByUserNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	store := NewReportStore(db)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	for i, title := range []string{"first", "second", "third"} {
		_, err := store.Create(ctx, models.Report{
			Title:     title,
			SiteName:  "North Yard",
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			UserID:    "Dana",
			ImageURL:  "https://blob.example/" + title,
		})
		if err != nil {
			t.Fatalf("create %s: %v", title, err)
		}
	}
	if _, err := store.Create(ctx, models.Report{
		Title: "other", SiteName: "North Yard", Timestamp: base, UserID: "Lee", ImageURL: "x",
	}); err != nil {
		t.Fatalf("create other: %v", err)
	}

	reports, err := store.ListByUser(ctx, "Dana", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(reports) != 3 {
		t.Fatalf("got %d reports, want 3", len(reports))
	}
	if reports[0].Title != "third" || reports[2].Title != "first" {
		t.Errorf("order = %s, %s, %s", reports[0].Title, reports[1].Title, reports[2].Title)
	}
	if reports[0].ID == "" {
		t.Error("expected store-assigned ID")
	}
}

func TestReportStore_CreateReturnsStoredTimestamp(t *testing.T) {
	db := setupTestDB(t)
	store := NewReportStore(db)
	ctx := context.Background()

	at := time.Date(2024, 5, 1, 9, 0, 0, 123456789, time.UTC)
	created, err := store.Create(ctx, models.Report{
		Title: "precise", SiteName: "North Yard", Timestamp: at, UserID: "Dana", ImageURL: "x",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	reports, err := store.ListByUser(ctx, "Dana", 1)
	if err != nil || len(reports) != 1 {
		t.Fatalf("list: %v, %d reports", err, len(reports))
	}
	if !created.Timestamp.Equal(reports[0].Timestamp) {
		t.Errorf("created %v, stored %v", created.Timestamp, reports[0].Timestamp)
	}
	if created.Timestamp.Nanosecond()%1000 != 0 {
		t.Errorf("created %v, want microsecond precision", created.Timestamp)
	}
}

func TestSiteStore_CreateAndList(t *testing.T) {
	db := setupTestDB(t)
	store := NewSiteStore(db)
	ctx := context.Background()

	if _, err := store.Create(ctx, models.CreateSiteParams{Name: "South Pier", Location: "Dock 4"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.Create(ctx, models.CreateSiteParams{Name: "North Yard", Location: "Block A"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	sites, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sites) != 2 || sites[0].Name != "North Yard" {
		t.Fatalf("sites = %+v", sites)
	}
}

func TestUserStore_RefreshTokenLifecycle(t *testing.T) {
	db := setupTestDB(t)
	store := NewUserStore(db)
	ctx := context.Background()

	user, err := store.Create(ctx, models.CreateUserParams{Email: "Dana@Example.com", Password: "hash"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.Create(ctx, models.CreateUserParams{Email: "dana@example.com", Password: "hash"}); err != ErrEmailTaken {
		t.Fatalf("duplicate create err = %v, want ErrEmailTaken", err)
	}

	token, err := store.CreateRefreshToken(ctx, user.ID, "abc", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	if got, err := store.GetRefreshTokenByHash(ctx, "abc"); err != nil || got == nil {
		t.Fatalf("get token: %v, %v", got, err)
	}
	if err := store.RevokeRefreshToken(ctx, token.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if got, _ := store.GetRefreshTokenByHash(ctx, "abc"); got != nil {
		t.Error("expected revoked token to be hidden")
	}
}

func TestUserStore_Update(t *testing.T) {
	db := setupTestDB(t)
	store := NewUserStore(db)
	ctx := context.Background()

	user, err := store.Create(ctx, models.CreateUserParams{Email: "dana@example.com", Password: "hash", DisplayName: "Dana"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	name := " Dana Ortiz "
	updated, err := store.Update(ctx, user.ID, models.UpdateUserParams{DisplayName: &name})
	if err != nil {
		t.Fatalf("update name: %v", err)
	}
	if updated.DisplayName != "Dana Ortiz" || updated.PasswordHash != "hash" {
		t.Errorf("after name update: %+v", updated)
	}

	hash := "new-hash"
	updated, err = store.Update(ctx, user.ID, models.UpdateUserParams{PasswordHash: &hash})
	if err != nil {
		t.Fatalf("update password: %v", err)
	}
	if updated.PasswordHash != "new-hash" || updated.DisplayName != "Dana Ortiz" {
		t.Errorf("after password update: %+v", updated)
	}

	missing, err := store.Update(ctx, "00000000-0000-0000-0000-000000000000", models.UpdateUserParams{DisplayName: &name})
	if err != nil || missing != nil {
		t.Errorf("update unknown user = %+v, %v; want nil, nil", missing, err)
	}
}
