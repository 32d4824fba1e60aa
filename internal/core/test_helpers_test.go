package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"assetledger/pkg/domain"
)

type captureLogger struct {
	mu    sync.Mutex
	calls []string
}

func (c *captureLogger) add(prefix, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, prefix+msg)
}

func (c *captureLogger) Debug(msg string, _ ...any) { c.add("d:", msg) }
func (c *captureLogger) Info(msg string, _ ...any)  { c.add("i:", msg) }
func (c *captureLogger) Warn(msg string, _ ...any)  { c.add("w:", msg) }
func (c *captureLogger) Error(msg string, _ ...any) { c.add("e:", msg) }

func (c *captureLogger) has(prefix, fragment string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, call := range c.calls {
		if strings.HasPrefix(call, prefix) && strings.Contains(call, fragment) {
			return true
		}
	}
	return false
}

// stepClock advances one second on every reading.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type capturePublisher struct {
	mu        sync.Mutex
	published []Notification
	err       error
}

func (p *capturePublisher) Publish(_ context.Context, ns []Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, ns...)
	return p.err
}

type metricsCall struct {
	op      string
	success bool
}

type captureMetricsRecorder struct {
	mu    sync.Mutex
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, metricsCall{op: op, success: success})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

// fixture seeds a department with a manager and a staff member, one asset
// type and one unassigned asset. Seeding goes straight to the store so no
// ledger rows or notifications exist afterwards.
type fixture struct {
	svc       *Service
	log       *captureLogger
	pub       *capturePublisher
	metrics   *captureMetricsRecorder
	dept      Department
	manager   User
	staff     User
	assetType AssetType
	asset     Asset
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{log: &captureLogger{}, pub: &capturePublisher{}, metrics: &captureMetricsRecorder{}}
	base := []Option{WithClock(newStepClock()), WithLogger(f.log), WithPublisher(f.pub), WithMetricsRecorder(f.metrics)}
	f.svc = NewInMemoryService(NewDefaultRulesEngine(), append(base, opts...)...)

	_, err := f.svc.Store().RunInTransaction(context.Background(), func(tx Transaction) error {
		var err error
		if f.dept, err = tx.CreateDepartment(Department{Name: "Operations", Active: true}); err != nil {
			return err
		}
		if f.manager, err = tx.CreateUser(User{Name: "Mai", Email: "mai@example.com", DepartmentID: f.dept.ID, Role: domain.RoleManager, Active: true}); err != nil {
			return err
		}
		if f.staff, err = tx.CreateUser(User{Name: "Binh", Email: "binh@example.com", DepartmentID: f.dept.ID, Role: domain.RoleStaff, Active: true}); err != nil {
			return err
		}
		if f.dept, err = tx.UpdateDepartment(f.dept.ID, func(d *Department) error {
			d.ManagerID = domain.Ptr(f.manager.ID)
			return nil
		}); err != nil {
			return err
		}
		if f.assetType, err = tx.CreateAssetType(AssetType{Name: "Laptop"}); err != nil {
			return err
		}
		f.asset, err = tx.CreateAsset(Asset{
			Code:      "LT-001",
			Name:      "ThinkPad",
			TypeID:    f.assetType.ID,
			Value:     decimal.RequireFromString("1250.00"),
			Status:    domain.AssetStatusInStock,
			Condition: domain.ConditionNew,
		})
		return err
	})
	if err != nil {
		t.Fatalf("seed fixture: %v", err)
	}
	return f
}

func (f *fixture) counts(t *testing.T) (history, notifications int) {
	t.Helper()
	err := f.svc.Store().View(context.Background(), func(v TransactionView) error {
		history = len(v.ListHistory())
		notifications = len(v.ListNotifications())
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	return history, notifications
}

func (f *fixture) historyFor(t *testing.T, assetID int64) []AssetHistory {
	t.Helper()
	rows, err := f.svc.ListHistory(context.Background())
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	var out []AssetHistory
	for _, r := range rows {
		if r.AssetID == assetID {
			out = append(out, r)
		}
	}
	return out
}

// hookedStore wraps every transaction handed to the service and runs after
// once, inside the first transaction, between the work and the commit.
type hookedStore struct {
	PersistentStore
	wrap  func(Transaction) Transaction
	after func()
	once  sync.Once
}

func (s *hookedStore) RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error) {
	return s.PersistentStore.RunInTransaction(ctx, func(tx Transaction) error {
		if s.wrap != nil {
			tx = s.wrap(tx)
		}
		if err := fn(tx); err != nil {
			return err
		}
		if s.after != nil {
			s.once.Do(s.after)
		}
		return nil
	})
}

var errStepFailed = errors.New("step failed")

// failingTx fails the named write step.
type failingTx struct {
	Transaction
	step string
}

func (tx failingTx) CreateNotification(n Notification) (Notification, error) {
	if tx.step == "notification" {
		return Notification{}, errStepFailed
	}
	return tx.Transaction.CreateNotification(n)
}

func (tx failingTx) AppendHistory(h AssetHistory) (AssetHistory, error) {
	if tx.step == "history" {
		return AssetHistory{}, errStepFailed
	}
	return tx.Transaction.AppendHistory(h)
}
