package services

import (
	"testing"

	"fundledger/internal/pagination"
	"fundledger/internal/testutil"
)

func TestAuditLog(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewAuditService(db)

	svc.Log("u1", "CREATE_REPORT", "report", "r-1", "10.0.0.1", map[string]interface{}{"year": 2024, "month": 3})
	svc.Log("u2", "FINALIZE_REPORT", "report", "r-1", "10.0.0.2", nil)
	svc.Log("u1", "DELETE_ACCOUNT", "account", "Facility", "10.0.0.1", nil)

	t.Run("filters by resource", func(t *testing.T) {
		result, err := svc.History(AuditFilter{ResourceType: "report", ResourceID: "r-1"}, pagination.PageRequest{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.TotalItems != 2 || len(result.Data) != 2 {
			t.Fatalf("expected 2 entries, got %d", result.TotalItems)
		}
		actions := map[string]bool{}
		for _, entry := range result.Data {
			actions[entry.Action] = true
		}
		if !actions["CREATE_REPORT"] || !actions["FINALIZE_REPORT"] {
			t.Errorf("unexpected actions: %v", actions)
		}
	})

	t.Run("round-trips changes", func(t *testing.T) {
		result, err := svc.History(AuditFilter{Actor: "u1", ResourceType: "report"}, pagination.PageRequest{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Data) != 1 {
			t.Fatalf("expected 1 entry, got %d", len(result.Data))
		}
		entry := result.Data[0]
		if entry.IPAddress != "10.0.0.1" || entry.Changes["month"] != float64(3) {
			t.Errorf("unexpected entry: %+v", entry)
		}
	})

	t.Run("nil changes stay empty", func(t *testing.T) {
		result, err := svc.History(AuditFilter{ResourceType: "account"}, pagination.PageRequest{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Data) != 1 || len(result.Data[0].Changes) != 0 {
			t.Errorf("expected one entry without changes, got %+v", result.Data)
		}
	})

	t.Run("paginates", func(t *testing.T) {
		result, err := svc.History(AuditFilter{}, pagination.PageRequest{Page: 2, PageSize: 2})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.TotalItems != 3 || result.TotalPages != 2 || len(result.Data) != 1 {
			t.Errorf("unexpected page: total=%d pages=%d len=%d", result.TotalItems, result.TotalPages, len(result.Data))
		}
	})
}
