package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"smartbudget/internal/core"
	"smartbudget/internal/ledger"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	for i := 0; i < 2; i++ {
		repo, err := NewSQLiteRepository(path)
		if err != nil {
			t.Fatalf("open #%d: %v", i, err)
		}
		repo.Close()
	}
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	id, err := repo.CreateUser(ctx, "alice", "secret")
	if err != nil || id <= 0 {
		t.Fatalf("CreateUser: id=%d err=%v", id, err)
	}
	if _, err := repo.CreateUser(ctx, " alice", "x"); !errors.Is(err, ledger.ErrDuplicateUser) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	if _, err := repo.CreateUser(ctx, "", "x"); !errors.Is(err, ledger.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}

	got, err := repo.ValidateLogin(ctx, "alice", "secret")
	if err != nil || got != id {
		t.Fatalf("ValidateLogin: id=%d err=%v", got, err)
	}
	for _, tc := range []struct{ user, pass string }{{"alice", "nope"}, {"bob", "secret"}, {"", ""}} {
		if _, err := repo.ValidateLogin(ctx, tc.user, tc.pass); !errors.Is(err, ledger.ErrInvalidCredentials) {
			t.Errorf("ValidateLogin(%q, %q) err = %v", tc.user, tc.pass, err)
		}
	}

	u, err := repo.queries.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if u.PasswordHash == "secret" {
		t.Fatal("password stored in plain text")
	}
}

func TestLedgerRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	uid, err := repo.CreateUser(ctx, "u", "p")
	if err != nil {
		t.Fatal(err)
	}

	if ok, _ := repo.HasSetup(ctx, uid); ok {
		t.Fatal("fresh user should not be set up")
	}
	p, err := repo.Profile(ctx, uid)
	if err != nil || p.Dependents != 0 || !p.SavingsPercent.IsZero() {
		t.Fatalf("expected default profile, got %+v err=%v", p, err)
	}

	in := core.Income{"Salary": d("10000.10"), "Side": d("0.01")}
	ex := core.Expenses{core.CategoryRent: d("3500"), core.CategoryTransport: d("1234.56")}
	prof := core.Profile{Dependents: 2, SavingsPercent: d("12.5")}
	if err := repo.ReplaceBudget(ctx, uid, in, ex, prof); err != nil {
		t.Fatalf("ReplaceBudget: %v", err)
	}

	gotIn, _ := repo.Income(ctx, uid)
	gotEx, _ := repo.Expenses(ctx, uid)
	gotP, _ := repo.Profile(ctx, uid)
	if len(gotIn) != 2 || !gotIn["Salary"].Equal(d("10000.10")) || !gotIn["Side"].Equal(d("0.01")) {
		t.Fatalf("income = %v", gotIn)
	}
	if len(gotEx) != 2 || !gotEx[core.CategoryTransport].Equal(d("1234.56")) {
		t.Fatalf("expenses = %v", gotEx)
	}
	if gotP.Dependents != 2 || !gotP.SavingsPercent.Equal(d("12.5")) {
		t.Fatalf("profile = %+v", gotP)
	}
	if ok, _ := repo.HasSetup(ctx, uid); !ok {
		t.Fatal("expected set up")
	}

	if err := repo.ReplaceIncome(ctx, uid, core.Income{"New": d("1")}); err != nil {
		t.Fatal(err)
	}
	gotIn, _ = repo.Income(ctx, uid)
	if len(gotIn) != 1 || !gotIn["New"].Equal(d("1")) {
		t.Fatalf("replace kept old rows: %v", gotIn)
	}

	if err := repo.UpsertProfile(ctx, uid, core.Profile{Dependents: 5, SavingsPercent: d("0")}); err != nil {
		t.Fatal(err)
	}
	gotP, _ = repo.Profile(ctx, uid)
	if gotP.Dependents != 5 {
		t.Fatalf("profile not updated: %+v", gotP)
	}
}

func TestReplaceBudgetRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	uid, _ := repo.CreateUser(ctx, "u", "p")
	if err := repo.ReplaceIncome(ctx, uid, core.Income{"Keep": d("1")}); err != nil {
		t.Fatal(err)
	}

	// Unknown user violates the foreign key on insert; nothing should change.
	if err := repo.ReplaceBudget(ctx, uid+100, core.Income{"X": d("1")}, nil, core.DefaultProfile()); err == nil {
		t.Fatal("expected foreign key error")
	}
	gotIn, _ := repo.Income(ctx, uid)
	if len(gotIn) != 1 || !gotIn["Keep"].Equal(d("1")) {
		t.Fatalf("unexpected income after failed replace: %v", gotIn)
	}
	if ok, _ := repo.HasSetup(ctx, uid+100); ok {
		t.Fatal("failed replace left rows behind")
	}
}

func TestUsersAreIsolated(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	a, _ := repo.CreateUser(ctx, "a", "p")
	b, _ := repo.CreateUser(ctx, "b", "p")
	_ = repo.ReplaceExpenses(ctx, a, core.Expenses{"X": d("5")})
	if ex, _ := repo.Expenses(ctx, b); len(ex) != 0 {
		t.Fatalf("user b sees user a's expenses: %v", ex)
	}
}

func TestSetUpUserIDs(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	a, _ := repo.CreateUser(ctx, "a", "p")
	_, _ = repo.CreateUser(ctx, "b", "p")
	c, _ := repo.CreateUser(ctx, "c", "p")
	_ = repo.ReplaceIncome(ctx, c, core.Income{"Salary": d("1")})
	_ = repo.ReplaceExpenses(ctx, a, core.Expenses{"X": d("5")})

	ids, err := repo.SetUpUserIDs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[0] != a || ids[1] != c {
		t.Fatalf("ids = %v, want [%d %d]", ids, a, c)
	}
}

func TestBudgetReadsWholeLedger(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	uid, err := repo.CreateUser(ctx, "u", "p")
	if err != nil {
		t.Fatal(err)
	}

	b, err := repo.Budget(ctx, uid)
	if err != nil {
		t.Fatalf("Budget: %v", err)
	}
	if len(b.Income)+len(b.Expenses) != 0 || b.Profile.Dependents != 0 || !b.Profile.SavingsPercent.IsZero() {
		t.Fatalf("expected empty budget with default profile, got %+v", b)
	}

	in := core.Income{"Salary": d("9000")}
	ex := core.Expenses{core.CategoryGroceries: d("1500.25")}
	prof := core.Profile{Dependents: 3, SavingsPercent: d("15")}
	if err := repo.ReplaceBudget(ctx, uid, in, ex, prof); err != nil {
		t.Fatal(err)
	}
	b, err = repo.Budget(ctx, uid)
	if err != nil {
		t.Fatalf("Budget: %v", err)
	}
	if !b.Income["Salary"].Equal(d("9000")) || !b.Expenses[core.CategoryGroceries].Equal(d("1500.25")) {
		t.Fatalf("budget = %+v", b)
	}
	if b.Profile.Dependents != 3 || !b.Profile.SavingsPercent.Equal(d("15")) {
		t.Fatalf("profile = %+v", b.Profile)
	}
}
