package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mmynk/splitbill/internal/models"
	"github.com/mmynk/splitbill/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	// Create temp directory for test database
	tempDir, err := os.MkdirTemp("", "splitbill-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleBill(userID, title string) *models.Bill {
	return &models.Bill{
		UserID:      userID,
		Title:       title,
		Description: "Friday dinner",
		Tax:         10000,
		Subtotal:    70000,
		Total:       80000,
		Participants: []models.Participant{
			{ID: "p-alice", Name: "Alice", Amount: 45000},
			{ID: "p-bob", Name: "Bob", Amount: 35000},
		},
		Items: []models.Item{
			{Name: "Pizza", Price: 50000, Quantity: 1, Category: "Food", AssignedTo: []string{"p-bob", "p-alice"}},
			{Name: "Es Teh", Price: 10000, Quantity: 2, Category: "Other", AssignedTo: []string{"p-alice"}},
		},
	}
}

func TestSQLiteStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("CreateBill generates IDs", func(t *testing.T) {
		bill := sampleBill("user-1", "Dinner")

		if err := store.CreateBill(ctx, bill); err != nil {
			t.Fatalf("CreateBill failed: %v", err)
		}

		if bill.ID == "" {
			t.Error("Expected bill ID to be generated")
		}
		if bill.CreatedAt == 0 {
			t.Error("Expected CreatedAt to be set")
		}
		for _, item := range bill.Items {
			if item.ID == "" {
				t.Errorf("Expected item %s to get an ID", item.Name)
			}
		}
	})

	t.Run("GetBill retrieves complete bill", func(t *testing.T) {
		original := sampleBill("user-1", "Test Dinner")
		original.Participants[0].ID = "p-alice-2"
		original.Participants[1].ID = "p-bob-2"
		original.Items[0].AssignedTo = []string{"p-bob-2", "p-alice-2"}
		original.Items[1].AssignedTo = []string{"p-alice-2"}

		if err := store.CreateBill(ctx, original); err != nil {
			t.Fatalf("CreateBill failed: %v", err)
		}

		retrieved, err := store.GetBill(ctx, original.ID)
		if err != nil {
			t.Fatalf("GetBill failed: %v", err)
		}

		if retrieved.Title != "Test Dinner" || retrieved.Description != "Friday dinner" {
			t.Errorf("Title/Description = %q/%q", retrieved.Title, retrieved.Description)
		}
		if retrieved.UserID != "user-1" {
			t.Errorf("UserID = %s, want user-1", retrieved.UserID)
		}
		if retrieved.Tax != 10000 || retrieved.Total != 80000 || retrieved.Subtotal != 70000 {
			t.Errorf("amounts = tax %v subtotal %v total %v", retrieved.Tax, retrieved.Subtotal, retrieved.Total)
		}
		if len(retrieved.Participants) != 2 || retrieved.Participants[0].Name != "Alice" {
			t.Fatalf("Participants = %+v", retrieved.Participants)
		}
		if retrieved.Participants[0].Amount != 45000 {
			t.Errorf("Alice amount = %v, want 45000", retrieved.Participants[0].Amount)
		}
		if len(retrieved.Items) != 2 {
			t.Fatalf("Expected 2 items, got %d", len(retrieved.Items))
		}
		if retrieved.Items[0].Name != "Pizza" || retrieved.Items[1].Name != "Es Teh" {
			t.Errorf("Items out of order: %s, %s", retrieved.Items[0].Name, retrieved.Items[1].Name)
		}
		if retrieved.Items[1].Quantity != 2 || retrieved.Items[1].Category != "Other" {
			t.Errorf("Es Teh = %+v", retrieved.Items[1])
		}
		// assignments come back in participant order
		pizza := retrieved.Items[0].AssignedTo
		if len(pizza) != 2 || pizza[0] != "p-alice-2" || pizza[1] != "p-bob-2" {
			t.Errorf("Pizza assignments = %v", pizza)
		}
	})

	t.Run("GetBill returns ErrNotFound", func(t *testing.T) {
		_, err := store.GetBill(ctx, "non-existent-id")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("CreateBill rolls back on bad assignment", func(t *testing.T) {
		bill := sampleBill("user-rollback", "Broken")
		bill.Participants[0].ID = "p-alice-3"
		bill.Participants[1].ID = "p-bob-3"
		bill.Items[0].AssignedTo = []string{"p-unknown"}

		if err := store.CreateBill(ctx, bill); err == nil {
			t.Fatal("Expected error for assignment to unknown participant")
		}

		bills, err := store.ListBillsByUser(ctx, "user-rollback")
		if err != nil {
			t.Fatalf("ListBillsByUser failed: %v", err)
		}
		if len(bills) != 0 {
			t.Errorf("Expected no partially written bill, got %d", len(bills))
		}
	})

	t.Run("ListBillsByUser newest first", func(t *testing.T) {
		older := sampleBill("user-list", "Older")
		older.Participants[0].ID, older.Participants[1].ID = "l-a1", "l-b1"
		older.Items[0].AssignedTo, older.Items[1].AssignedTo = []string{"l-a1"}, []string{"l-b1"}
		older.CreatedAt = 1000
		newer := sampleBill("user-list", "Newer")
		newer.Participants[0].ID, newer.Participants[1].ID = "l-a2", "l-b2"
		newer.Items[0].AssignedTo, newer.Items[1].AssignedTo = []string{"l-a2"}, []string{"l-b2"}
		newer.CreatedAt = 2000

		for _, b := range []*models.Bill{older, newer} {
			if err := store.CreateBill(ctx, b); err != nil {
				t.Fatalf("CreateBill failed: %v", err)
			}
		}

		bills, err := store.ListBillsByUser(ctx, "user-list")
		if err != nil {
			t.Fatalf("ListBillsByUser failed: %v", err)
		}
		if len(bills) != 2 {
			t.Fatalf("Expected 2 bills, got %d", len(bills))
		}
		if bills[0].Title != "Newer" || bills[1].Title != "Older" {
			t.Errorf("Order = %s, %s", bills[0].Title, bills[1].Title)
		}
		if bills[0].ParticipantCount != 2 {
			t.Errorf("ParticipantCount = %d, want 2", bills[0].ParticipantCount)
		}

		other, err := store.ListBillsByUser(ctx, "someone-else")
		if err != nil {
			t.Fatalf("ListBillsByUser failed: %v", err)
		}
		if len(other) != 0 {
			t.Errorf("Expected no bills for other user, got %d", len(other))
		}
	})

	t.Run("DeleteBill cascades", func(t *testing.T) {
		bill := sampleBill("user-del", "To delete")
		bill.Participants[0].ID, bill.Participants[1].ID = "d-a", "d-b"
		bill.Items[0].AssignedTo, bill.Items[1].AssignedTo = []string{"d-a"}, []string{"d-b"}
		if err := store.CreateBill(ctx, bill); err != nil {
			t.Fatalf("CreateBill failed: %v", err)
		}

		if err := store.DeleteBill(ctx, bill.ID); err != nil {
			t.Fatalf("DeleteBill failed: %v", err)
		}
		if _, err := store.GetBill(ctx, bill.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound after delete, got %v", err)
		}

		var count int
		if err := store.db.QueryRow("SELECT COUNT(*) FROM items WHERE bill_id = ?", bill.ID).Scan(&count); err != nil {
			t.Fatalf("count items: %v", err)
		}
		if count != 0 {
			t.Errorf("Expected items to cascade, %d left", count)
		}

		if err := store.DeleteBill(ctx, bill.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound on second delete, got %v", err)
		}
	})
}

func TestSQLiteStore_Users(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := models.NewUser("Alice@Example.com", "Alice", "hash")
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	byEmail, err := store.GetUserByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if byEmail.ID != user.ID || byEmail.DisplayName != "Alice" {
		t.Errorf("GetUserByEmail = %+v", byEmail)
	}

	byID, err := store.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if byID.Email != "alice@example.com" {
		t.Errorf("Email = %s, want lowercased", byID.Email)
	}

	if _, err := store.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	dup := models.NewUser("alice@example.com", "Other", "hash")
	if err := store.CreateUser(ctx, dup); err == nil {
		t.Error("Expected duplicate email to fail")
	}
}
