package alerts

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/fleetorbit/fleetorbit-api/internal/db"
	"github.com/fleetorbit/fleetorbit-api/internal/models"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:alerts_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func seedScope(t *testing.T, conn *gorm.DB, customerID, accountID uint64, equipmentIDs ...uint64) {
	t.Helper()
	account := models.Account{ID: accountID, CustomerID: customerID, Name: fmt.Sprintf("account-%d", accountID), Status: "ACTIVE"}
	if errCreate := conn.Create(&account).Error; errCreate != nil {
		t.Fatalf("seed account: %v", errCreate)
	}
	for _, id := range equipmentIDs {
		unit := models.Equipment{ID: id, CustomerID: customerID, UnitNumber: fmt.Sprintf("UNIT-%d", id)}
		if errCreate := conn.Where(models.Equipment{ID: id}).FirstOrCreate(&unit).Error; errCreate != nil {
			t.Fatalf("seed equipment: %v", errCreate)
		}
		assignment := models.EquipmentAssignment{EquipmentID: id, AccountID: accountID}
		if errCreate := conn.Create(&assignment).Error; errCreate != nil {
			t.Fatalf("seed assignment: %v", errCreate)
		}
	}
}

func sortedIDs(ids []int64) []int64 {
	out := append([]int64(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func TestResolveExplicitSelection(t *testing.T) {
	conn := openTestDB(t)
	resolver := NewResolver(conn)

	// Explicit selections are trusted verbatim, no scope lookup happens.
	got, errResolve := resolver.ResolveEquipmentIDs(context.Background(),
		RuleScope{CustomerID: 5},
		EquipmentSelection{SelectedIDs: []int64{7, 0, -2, 9}})
	if errResolve != nil {
		t.Fatalf("resolve: %v", errResolve)
	}
	want := []int64{7, 9}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestResolveSelectAll(t *testing.T) {
	conn := openTestDB(t)
	seedScope(t, conn, 5, 10, 100, 101, 102)
	resolver := NewResolver(conn)

	got, errResolve := resolver.ResolveEquipmentIDs(context.Background(),
		RuleScope{CustomerID: 5},
		EquipmentSelection{SelectAll: true})
	if errResolve != nil {
		t.Fatalf("resolve: %v", errResolve)
	}
	if got = sortedIDs(got); len(got) != 3 || got[0] != 100 || got[2] != 102 {
		t.Fatalf("got %v, want [100 101 102]", got)
	}
}

func TestResolveSelectAllExcept(t *testing.T) {
	conn := openTestDB(t)
	seedScope(t, conn, 5, 10, 100, 101, 102)
	resolver := NewResolver(conn)

	got, errResolve := resolver.ResolveEquipmentIDs(context.Background(),
		RuleScope{CustomerID: 5},
		EquipmentSelection{SelectAll: true, SelectedIDs: []int64{101}})
	if errResolve != nil {
		t.Fatalf("resolve: %v", errResolve)
	}
	if got = sortedIDs(got); len(got) != 2 || got[0] != 100 || got[1] != 102 {
		t.Fatalf("got %v, want [100 102]", got)
	}
}

func TestResolveAccountScope(t *testing.T) {
	conn := openTestDB(t)
	seedScope(t, conn, 5, 10, 100, 101)
	seedScope(t, conn, 5, 11, 102)
	resolver := NewResolver(conn)

	// Explicit account scope, no customer fan-out.
	got, errResolve := resolver.ResolveEquipmentIDs(context.Background(),
		RuleScope{AccountIDs: []int64{11}},
		EquipmentSelection{SelectAll: true})
	if errResolve != nil {
		t.Fatalf("resolve: %v", errResolve)
	}
	if len(got) != 1 || got[0] != 102 {
		t.Fatalf("got %v, want [102]", got)
	}
}

func TestResolveAccountScopeWithinCustomer(t *testing.T) {
	conn := openTestDB(t)
	seedScope(t, conn, 5, 10, 100, 101)
	seedScope(t, conn, 5, 11, 102)
	resolver := NewResolver(conn)

	// An explicit account list narrows the customer fan-out instead of being
	// overridden by it.
	got, errResolve := resolver.ResolveEquipmentIDs(context.Background(),
		RuleScope{CustomerID: 5, AccountIDs: []int64{10}},
		EquipmentSelection{SelectAll: true})
	if errResolve != nil {
		t.Fatalf("resolve: %v", errResolve)
	}
	if got = sortedIDs(got); len(got) != 2 || got[0] != 100 || got[1] != 101 {
		t.Fatalf("got %v, want [100 101]", got)
	}
}

func TestResolveRejectsForeignAccounts(t *testing.T) {
	conn := openTestDB(t)
	seedScope(t, conn, 5, 10, 100)
	seedScope(t, conn, 6, 20, 200)
	resolver := NewResolver(conn)

	// Account 20 belongs to another customer and contributes nothing.
	got, errResolve := resolver.ResolveEquipmentIDs(context.Background(),
		RuleScope{CustomerID: 5, AccountIDs: []int64{10, 20}},
		EquipmentSelection{SelectAll: true})
	if errResolve != nil {
		t.Fatalf("resolve: %v", errResolve)
	}
	if len(got) != 1 || got[0] != 100 {
		t.Fatalf("got %v, want [100]", got)
	}
}

func TestResolveEmptySelection(t *testing.T) {
	conn := openTestDB(t)
	seedScope(t, conn, 5, 10, 100)
	resolver := NewResolver(conn)

	got, errResolve := resolver.ResolveEquipmentIDs(context.Background(),
		RuleScope{CustomerID: 5},
		EquipmentSelection{})
	if errResolve != nil {
		t.Fatalf("resolve: %v", errResolve)
	}
	if len(got) != 0 {
		t.Fatalf("no selection and no select-all should resolve empty, got %v", got)
	}
}
