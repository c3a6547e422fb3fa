//go:build integration

package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/loanwise/loanwise/internal/model"
	"github.com/loanwise/loanwise/internal/testutil"
)

func newTestRepository(t *testing.T, ctx context.Context) *Repository {
	t.Helper()

	dbURL := testutil.RequireEnv(t, "DATABASE_URL")
	repo, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(repo.Close)

	unlock, err := testutil.AcquireDBLock(ctx, repo.Pool())
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_ = unlock()
	})

	if err := MigrateDown(dbURL); err != nil {
		t.Fatalf("migrate down: %v", err)
	}
	if err := Migrate(dbURL); err != nil {
		t.Fatalf("migrate up: %v", err)
	}

	return repo
}

func createTestUser(t *testing.T, ctx context.Context, repo *Repository) *model.User {
	t.Helper()

	user := testutil.NewTestUser(t, fmt.Sprintf("user-%d@example.com", time.Now().UnixNano()))
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func TestIntegrationUser_CreateGetUpdate(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t, ctx)

	user := createTestUser(t, ctx, repo)

	byEmail, err := repo.GetUserByEmail(ctx, user.Email)
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if byEmail.ID != user.ID || byEmail.HashedPassword != user.HashedPassword {
		t.Errorf("unexpected user: %+v", byEmail)
	}

	dup := testutil.NewTestUser(t, user.Email)
	if err := repo.CreateUser(ctx, dup); !errors.Is(err, ErrEmailExists) {
		t.Errorf("expected ErrEmailExists, got %v", err)
	}

	updated, err := repo.UpdateUserProfile(ctx, user.ID, "New Name")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.FullName != "New Name" || updated.UpdatedAt == nil {
		t.Errorf("profile not updated: %+v", updated)
	}

	if _, err := repo.GetUserByID(ctx, ulid.Make().String()); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestIntegrationPrediction_ListAscendingWithCursor(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t, ctx)

	owner := createTestUser(t, ctx, repo)
	other := createTestUser(t, ctx, repo)

	base := time.Now().UTC().Truncate(time.Microsecond)
	var ids []string
	for i := 0; i < 5; i++ {
		p := testutil.NewTestPrediction(t, owner.ID)
		p.CreatedAt = base.Add(time.Duration(i) * time.Second)
		if err := repo.CreatePrediction(ctx, p); err != nil {
			t.Fatalf("create prediction: %v", err)
		}
		ids = append(ids, p.ID)
	}
	if err := repo.CreatePrediction(ctx, testutil.NewTestPrediction(t, other.ID)); err != nil {
		t.Fatalf("create other prediction: %v", err)
	}

	page1, cursor, err := repo.ListPredictionsByUser(ctx, owner.ID, "", 3)
	if err != nil {
		t.Fatalf("list page 1: %v", err)
	}
	if len(page1) != 3 || cursor == "" {
		t.Fatalf("expected 3 rows and a cursor, got %d rows cursor=%q", len(page1), cursor)
	}

	page2, cursor2, err := repo.ListPredictionsByUser(ctx, owner.ID, cursor, 3)
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if len(page2) != 2 || cursor2 != "" {
		t.Fatalf("expected 2 rows and no cursor, got %d rows cursor=%q", len(page2), cursor2)
	}

	got := append(page1, page2...)
	for i, p := range got {
		if p.ID != ids[i] {
			t.Errorf("position %d: got %s, want %s", i, p.ID, ids[i])
		}
		if p.UserID != owner.ID {
			t.Errorf("prediction %s belongs to %s", p.ID, p.UserID)
		}
	}

	if _, _, err := repo.ListPredictionsByUser(ctx, owner.ID, "garbage!", 3); !errors.Is(err, ErrInvalidCursor) {
		t.Errorf("expected ErrInvalidCursor, got %v", err)
	}
}

func TestIntegrationPrediction_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t, ctx)
	owner := createTestUser(t, ctx, repo)

	want := testutil.NewTestPrediction(t, owner.ID)
	want.EmploymentLength = 4.5
	want.InterestRate = 13.37
	want.DefaultProbability = 0.1234567890123
	want.RiskClassification = model.ClassifyRisk(want.DefaultProbability)
	if err := repo.CreatePrediction(ctx, want); err != nil {
		t.Fatalf("create prediction: %v", err)
	}

	got, _, err := repo.ListPredictionsByUser(ctx, owner.ID, "", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("listed %d predictions, want exactly 1", len(got))
	}

	p := *got[0]
	if p.CreatedAt.Location() != time.UTC || !p.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v in UTC", p.CreatedAt, want.CreatedAt)
	}
	expected := *want
	p.CreatedAt, expected.CreatedAt = time.Time{}, time.Time{}
	if p != expected {
		t.Errorf("round trip changed the record:\n got %+v\nwant %+v", p, expected)
	}
}
