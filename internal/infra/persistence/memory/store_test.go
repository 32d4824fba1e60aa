package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"assetledger/pkg/domain"
)

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func TestStoreRunInTransactionAndSnapshots(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, ok := tx.FindAsset(42); ok {
			t.Fatalf("expected missing asset lookup")
		}
		created, err := tx.CreateAsset(domain.Asset{Code: "LT-1", Name: "Laptop"})
		if err != nil {
			return err
		}
		if created.ID == 0 {
			t.Fatalf("expected generated ID")
		}
		if created.Version != 1 {
			t.Fatalf("expected version 1, got %d", created.Version)
		}
		if len(tx.Snapshot().ListAssets()) != 1 {
			t.Fatalf("snapshot mismatch")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("run transaction: %v", err)
	}

	snapshot := store.ExportState()
	if len(snapshot.Assets) != 1 || snapshot.Sequences.Assets != 1 {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
	store.ImportState(Snapshot{})
	_ = store.View(ctx, func(v domain.TransactionView) error {
		if len(v.ListAssets()) != 0 {
			t.Fatalf("expected cleared state")
		}
		return nil
	})
	store.ImportState(snapshot)
	_ = store.View(ctx, func(v domain.TransactionView) error {
		if len(v.ListAssets()) != 1 {
			t.Fatalf("expected restored state")
		}
		return nil
	})
	if store.RulesEngine() == nil {
		t.Fatalf("expected rules engine")
	}
	if store.NowFunc() == nil {
		t.Fatalf("expected now func")
	}
}

func TestStoreAbortedTransactionLeavesNoTrace(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	boom := errors.New("boom")
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.CreateAsset(domain.Asset{Name: "Phone"}); err != nil {
			return err
		}
		if _, err := tx.AppendHistory(domain.AssetHistory{AssetID: 1, Action: domain.HistoryCreated}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	_ = store.View(ctx, func(v domain.TransactionView) error {
		if len(v.ListAssets()) != 0 || len(v.ListHistory()) != 0 {
			t.Fatalf("aborted transaction leaked writes")
		}
		return nil
	})
}

func TestStoreRuleViolation(t *testing.T) {
	store := NewStore(domain.NewRulesEngine())
	store.RulesEngine().Register(blockingRule{})
	res, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, e := tx.CreateAsset(domain.Asset{Name: "Fail"})
		return e
	})
	var violation domain.RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected rule violation error, got %v", err)
	}
	if !res.HasBlocking() {
		t.Fatalf("expected blocking result")
	}
	_ = store.View(context.Background(), func(v domain.TransactionView) error {
		if len(v.ListAssets()) != 0 {
			t.Fatalf("blocked transaction committed")
		}
		return nil
	})
}

type blockingRule struct{}

func (blockingRule) Name() string { return "block" }

func (blockingRule) Evaluate(context.Context, domain.TransactionView, []domain.Change) (domain.Result, error) {
	return domain.Result{Violations: []domain.Violation{{Rule: "block", Severity: domain.SeverityBlock}}}, nil
}

func TestUpdateBumpsVersionAndKeepsIdentity(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewStore(nil, WithClock(fixedClock(created)))
	ctx := context.Background()
	var id int64
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		a, err := tx.CreateAsset(domain.Asset{Name: "Desk"})
		id = a.ID
		return err
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	later := created.Add(time.Hour)
	store.nowFn = fixedClock(later)
	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.UpdateAsset(id, func(a *domain.Asset) error {
			a.ID = 999
			a.CreatedAt = time.Time{}
			a.Name = "Standing desk"
			return nil
		})
		return err
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	_ = store.View(ctx, func(v domain.TransactionView) error {
		a, ok := v.FindAsset(id)
		if !ok {
			t.Fatalf("asset %d missing", id)
		}
		if a.Name != "Standing desk" || a.Version != 2 {
			t.Fatalf("unexpected asset %+v", a)
		}
		if !a.CreatedAt.Equal(created) || !a.UpdatedAt.Equal(later) {
			t.Fatalf("unexpected timestamps %v %v", a.CreatedAt, a.UpdatedAt)
		}
		return nil
	})
}

func TestMissingEntitiesReturnNotFound(t *testing.T) {
	store := NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.UpdateAsset(7, func(*domain.Asset) error { return nil }); !domain.IsNotFound(err) {
			t.Fatalf("expected not found for update, got %v", err)
		}
		if err := tx.DeleteUser(7); !domain.IsNotFound(err) {
			t.Fatalf("expected not found for delete, got %v", err)
		}
		if err := tx.DeleteNotification(7); !domain.IsNotFound(err) {
			t.Fatalf("expected not found for notification, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
}

func TestDeleteGuards(t *testing.T) {
	store := NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		dept, err := tx.CreateDepartment(domain.Department{Name: "IT"})
		if err != nil {
			return err
		}
		user, err := tx.CreateUser(domain.User{Name: "Ana", DepartmentID: dept.ID})
		if err != nil {
			return err
		}
		typ, err := tx.CreateAssetType(domain.AssetType{Name: "Laptop"})
		if err != nil {
			return err
		}
		if _, err := tx.CreateAsset(domain.Asset{Name: "X1", TypeID: typ.ID, OwnerID: domain.Ptr(user.ID)}); err != nil {
			return err
		}
		if err := tx.DeleteDepartment(dept.ID); !domain.IsInvalidState(err) {
			t.Fatalf("expected department guard, got %v", err)
		}
		if err := tx.DeleteUser(user.ID); !domain.IsInvalidState(err) {
			t.Fatalf("expected user guard, got %v", err)
		}
		if err := tx.DeleteAssetType(typ.ID); !domain.IsInvalidState(err) {
			t.Fatalf("expected asset type guard, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
}

func TestExplicitIDAdvancesSequence(t *testing.T) {
	store := NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.CreateUser(domain.User{Base: domain.Base{ID: 10}, Name: "Seeded"}); err != nil {
			return err
		}
		if _, err := tx.CreateUser(domain.User{Base: domain.Base{ID: 10}, Name: "Dup"}); err == nil {
			t.Fatalf("expected duplicate id error")
		}
		next, err := tx.CreateUser(domain.User{Name: "Next"})
		if err != nil {
			return err
		}
		if next.ID != 11 {
			t.Fatalf("expected id 11, got %d", next.ID)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
}

func TestConcurrentUpdateDetectsConflict(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	var id int64
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		a, err := tx.CreateAsset(domain.Asset{Name: "Monitor", Status: domain.AssetStatusInStock})
		id = a.ID
		return err
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := store.RunInTransaction(ctx, func(outer domain.Transaction) error {
		if _, ok := outer.FindAsset(id); !ok {
			t.Fatalf("asset missing")
		}
		// A competing writer commits between our read and our commit.
		if _, err := store.RunInTransaction(ctx, func(inner domain.Transaction) error {
			_, err := inner.UpdateAsset(id, func(a *domain.Asset) error {
				a.OwnerID = domain.Ptr(int64(1))
				return nil
			})
			return err
		}); err != nil {
			t.Fatalf("inner: %v", err)
		}
		_, err := outer.UpdateAsset(id, func(a *domain.Asset) error {
			a.OwnerID = domain.Ptr(int64(2))
			return nil
		})
		return err
	})
	if !errors.Is(err, domain.ErrTransientConflict) {
		t.Fatalf("expected transient conflict, got %v", err)
	}
	_ = store.View(ctx, func(v domain.TransactionView) error {
		a, _ := v.FindAsset(id)
		if a.OwnerID == nil || *a.OwnerID != 1 {
			t.Fatalf("expected first writer to win, got %+v", a.OwnerID)
		}
		return nil
	})
}

func TestGuardedDeletesConflictWithConcurrentReferences(t *testing.T) {
	ctx := context.Background()
	type seeded struct{ dept, user, typ, asset int64 }
	seed := func(t *testing.T, store *Store) seeded {
		t.Helper()
		var out seeded
		_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			d, err := tx.CreateDepartment(domain.Department{Name: "Lab"})
			if err != nil {
				return err
			}
			u, err := tx.CreateUser(domain.User{Name: "An", DepartmentID: d.ID})
			if err != nil {
				return err
			}
			kind, err := tx.CreateAssetType(domain.AssetType{Name: "Scope"})
			if err != nil {
				return err
			}
			typ, err := tx.CreateAssetType(domain.AssetType{Name: "Spare"})
			if err != nil {
				return err
			}
			a, err := tx.CreateAsset(domain.Asset{Code: "SC-1", Name: "Scope", TypeID: kind.ID, Status: domain.AssetStatusInStock})
			out = seeded{dept: d.ID, user: u.ID, typ: typ.ID, asset: a.ID}
			return err
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		return out
	}

	cases := []struct {
		name     string
		remove   func(tx domain.Transaction, s seeded) error
		compete  func(tx domain.Transaction, s seeded) error
		survives func(v domain.TransactionView, s seeded) bool
	}{
		{
			name:   "user gains an asset",
			remove: func(tx domain.Transaction, s seeded) error { return tx.DeleteUser(s.user) },
			compete: func(tx domain.Transaction, s seeded) error {
				_, err := tx.UpdateAsset(s.asset, func(a *domain.Asset) error {
					a.OwnerID = domain.Ptr(s.user)
					a.Status = domain.AssetStatusInUse
					return nil
				})
				return err
			},
			survives: func(v domain.TransactionView, s seeded) bool { _, ok := v.FindUser(s.user); return ok },
		},
		{
			name:   "asset type gains an asset",
			remove: func(tx domain.Transaction, s seeded) error { return tx.DeleteAssetType(s.typ) },
			compete: func(tx domain.Transaction, s seeded) error {
				_, err := tx.CreateAsset(domain.Asset{Name: "Spare scope", TypeID: s.typ})
				return err
			},
			survives: func(v domain.TransactionView, s seeded) bool { _, ok := v.FindAssetType(s.typ); return ok },
		},
		{
			name: "department gains a member",
			remove: func(tx domain.Transaction, s seeded) error {
				if err := tx.DeleteUser(s.user); err != nil {
					return err
				}
				return tx.DeleteDepartment(s.dept)
			},
			compete: func(tx domain.Transaction, s seeded) error {
				_, err := tx.CreateUser(domain.User{Name: "Binh", DepartmentID: s.dept})
				return err
			},
			survives: func(v domain.TransactionView, s seeded) bool { _, ok := v.FindDepartment(s.dept); return ok },
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := NewStore(nil)
			s := seed(t, store)
			_, err := store.RunInTransaction(ctx, func(outer domain.Transaction) error {
				if err := tc.remove(outer, s); err != nil {
					t.Fatalf("guard passed before the competing commit: %v", err)
				}
				if _, err := store.RunInTransaction(ctx, func(inner domain.Transaction) error {
					return tc.compete(inner, s)
				}); err != nil {
					t.Fatalf("inner: %v", err)
				}
				return nil
			})
			if !errors.Is(err, domain.ErrTransientConflict) {
				t.Fatalf("expected transient conflict, got %v", err)
			}
			_ = store.View(ctx, func(v domain.TransactionView) error {
				if !tc.survives(v, s) {
					t.Fatalf("referenced row was removed")
				}
				return nil
			})
		})
	}
}

func TestConcurrentCreatesCannotShareACode(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	var winner int64
	_, err := store.RunInTransaction(ctx, func(outer domain.Transaction) error {
		if _, err := outer.CreateAsset(domain.Asset{Code: "DUP-1", Name: "First"}); err != nil {
			return err
		}
		if _, err := store.RunInTransaction(ctx, func(inner domain.Transaction) error {
			a, err := inner.CreateAsset(domain.Asset{Code: "DUP-1", Name: "Second"})
			winner = a.ID
			return err
		}); err != nil {
			t.Fatalf("inner: %v", err)
		}
		return nil
	})
	if !errors.Is(err, domain.ErrTransientConflict) {
		t.Fatalf("expected transient conflict, got %v", err)
	}

	// Writes that leave the code alone do not pin the table.
	_, err = store.RunInTransaction(ctx, func(outer domain.Transaction) error {
		if _, err := outer.UpdateAsset(winner, func(a *domain.Asset) error {
			a.Status = domain.AssetStatusMaintenance
			return nil
		}); err != nil {
			return err
		}
		_, err := store.RunInTransaction(ctx, func(inner domain.Transaction) error {
			_, err := inner.CreateAsset(domain.Asset{Code: "OTHER-1", Name: "Third"})
			return err
		})
		return err
	})
	if err != nil {
		t.Fatalf("expected unrelated writes to commit, got %v", err)
	}
}

func TestConcurrentAppendsAllLand(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	const writers = 16
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
				_, err := tx.AppendHistory(domain.AssetHistory{AssetID: 1, Action: domain.HistoryEvaluated})
				return err
			})
			if err != nil {
				t.Errorf("append: %v", err)
			}
		}()
	}
	wg.Wait()
	_ = store.View(ctx, func(v domain.TransactionView) error {
		rows := v.ListHistory()
		if len(rows) != writers {
			t.Fatalf("expected %d rows, got %d", writers, len(rows))
		}
		seen := map[int64]bool{}
		for _, r := range rows {
			if seen[r.ID] {
				t.Fatalf("duplicate history id %d", r.ID)
			}
			seen[r.ID] = true
		}
		return nil
	})
}

func TestListHistoryOrdersByTimeThenID(t *testing.T) {
	store := NewStore(nil)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		for _, at := range []time.Time{base.Add(time.Minute), base, base} {
			if _, err := tx.AppendHistory(domain.AssetHistory{AssetID: 1, Action: domain.HistoryUpdated, PerformedAt: at}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	_ = store.View(context.Background(), func(v domain.TransactionView) error {
		rows := v.ListHistory()
		want := []int64{2, 3, 1}
		for i, r := range rows {
			if r.ID != want[i] {
				t.Fatalf("position %d: want id %d got %d", i, want[i], r.ID)
			}
		}
		return nil
	})
}

func TestAppendValidation(t *testing.T) {
	store := NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.AppendHistory(domain.AssetHistory{}); err == nil {
			t.Fatalf("expected asset id requirement")
		}
		if _, err := tx.AppendChatMessage(domain.ChatMessage{}); err == nil {
			t.Fatalf("expected user id requirement")
		}
		if _, err := tx.AppendChatMessage(domain.ChatMessage{UserID: 3, Content: "hi", Direction: domain.DirectionQuestion}); err != nil {
			return err
		}
		if _, err := tx.AppendChatMessage(domain.ChatMessage{UserID: 4, Content: "other"}); err != nil {
			return err
		}
		if got := tx.Snapshot().ListChatMessages(3); len(got) != 1 || got[0].Content != "hi" {
			t.Fatalf("unexpected messages %+v", got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
}

func TestMigrateSnapshotRepairsSequences(t *testing.T) {
	snap := migrateSnapshot(Snapshot{Assets: map[int64]Asset{5: {Base: domain.Base{ID: 5}}}})
	if snap.Sequences.Assets != 5 {
		t.Fatalf("expected asset sequence 5, got %d", snap.Sequences.Assets)
	}
	if snap.Users == nil || snap.History == nil || snap.Messages == nil {
		t.Fatalf("expected buckets to be initialised")
	}
}

func TestCancelledContextSkipsWork(t *testing.T) {
	store := NewStore(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	_, err := store.RunInTransaction(ctx, func(domain.Transaction) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) || called {
		t.Fatalf("expected cancellation before work, err=%v called=%v", err, called)
	}
}
