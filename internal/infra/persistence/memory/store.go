// Package memory provides the in-process transactional store used directly in
// tests and as the working set behind the durable sqlite and postgres drivers.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"assetledger/pkg/domain"
)

// Store provides an in-memory transactional store for the core domain.
//
// Transactions run against a private clone of the committed state without
// holding the store lock. Every entity a transaction reads or writes is
// remembered with the version it observed; commit re-checks those versions
// under the write lock and fails with domain.ErrTransientConflict if another
// commit got there first.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time

	seqMu sync.Mutex
	seq   Sequences
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used to stamp records.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.nowFn = now
		}
	}
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine, opts ...Option) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	s := &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// nextID reserves the next id from the given sequence. Reservations are not
// returned when a transaction aborts.
func (s *Store) nextID(field func(*Sequences) *int64) int64 {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	p := field(&s.seq)
	*p++
	return *p
}

// reserveID advances a sequence past an explicitly supplied id.
func (s *Store) reserveID(field func(*Sequences) *int64, id int64) {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	p := field(&s.seq)
	if id > *p {
		*p = id
	}
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.seqMu.Lock()
	seq := s.seq
	s.seqMu.Unlock()
	return snapshotFromMemoryState(s.state, seq)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	snapshot = migrateSnapshot(snapshot)
	s.mu.Lock()
	defer s.mu.Unlock()
	next := memoryStateFromSnapshot(snapshot)
	for entity := range tables {
		next.revisions[entity] = s.state.revisions[entity] + 1
	}
	s.state = next
	s.seqMu.Lock()
	s.seq = snapshot.Sequences
	s.seqMu.Unlock()
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// RunInTransaction executes fn against a private working copy, evaluates the
// registered rules over the resulting state and publishes the writes if no
// blocking violation was raised and nothing fn observed changed meanwhile.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	s.mu.RLock()
	tx := &transaction{
		store:   s,
		state:   s.state.clone(),
		now:     s.nowFn(),
		reads:   make(map[entityKey]int64),
		scans:   make(map[domain.EntityType]int64),
		created: make(map[entityKey]struct{}),
		dirty:   make(map[entityKey]struct{}),
	}
	engine := s.engine
	s.mu.RUnlock()

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if engine != nil {
		view := newTransactionView(&tx.state)
		res, err := engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := tx.validate(&s.state); err != nil {
		return Result{}, err
	}
	tx.apply(&s.state)
	return result, nil
}

// View executes fn against a read-only clone of the committed state.
func (s *Store) View(ctx context.Context, fn func(TransactionView) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(newTransactionView(&snapshot))
}

type entityKey struct {
	entity domain.EntityType
	id     int64
}

// table is the type-erased face of a bucket used at commit time.
type table interface {
	version(state *memoryState, id int64) int64
	publish(dst, src *memoryState, id int64)
}

type bucket[T any] struct {
	entity domain.EntityType
	rows   func(*memoryState) map[int64]T
	base   func(*T) *domain.Base
	clone  func(T) T
	seq    func(*Sequences) *int64
}

func (b bucket[T]) version(state *memoryState, id int64) int64 {
	row, ok := b.rows(state)[id]
	if !ok {
		return 0
	}
	if b.base == nil {
		return 1
	}
	return b.base(&row).Version
}

func (b bucket[T]) publish(dst, src *memoryState, id int64) {
	row, ok := b.rows(src)[id]
	if !ok {
		delete(b.rows(dst), id)
		return
	}
	b.rows(dst)[id] = b.clone(row)
}

var (
	assetBucket = bucket[Asset]{
		entity: domain.EntityAsset,
		rows:   func(s *memoryState) map[int64]Asset { return s.assets },
		base:   func(a *Asset) *domain.Base { return &a.Base },
		clone:  cloneAsset,
		seq:    func(q *Sequences) *int64 { return &q.Assets },
	}
	assetTypeBucket = bucket[AssetType]{
		entity: domain.EntityAssetType,
		rows:   func(s *memoryState) map[int64]AssetType { return s.assetTypes },
		base:   func(t *AssetType) *domain.Base { return &t.Base },
		clone:  identity[AssetType],
		seq:    func(q *Sequences) *int64 { return &q.AssetTypes },
	}
	userBucket = bucket[User]{
		entity: domain.EntityUser,
		rows:   func(s *memoryState) map[int64]User { return s.users },
		base:   func(u *User) *domain.Base { return &u.Base },
		clone:  identity[User],
		seq:    func(q *Sequences) *int64 { return &q.Users },
	}
	departmentBucket = bucket[Department]{
		entity: domain.EntityDepartment,
		rows:   func(s *memoryState) map[int64]Department { return s.departments },
		base:   func(d *Department) *domain.Base { return &d.Base },
		clone:  cloneDepartment,
		seq:    func(q *Sequences) *int64 { return &q.Departments },
	}
	notificationBucket = bucket[Notification]{
		entity: domain.EntityNotification,
		rows:   func(s *memoryState) map[int64]Notification { return s.notifications },
		base:   func(n *Notification) *domain.Base { return &n.Base },
		clone:  cloneNotification,
		seq:    func(q *Sequences) *int64 { return &q.Notifications },
	}
	markerBucket = bucket[NotificationMarker]{
		entity: domain.EntityNotificationMarker,
		rows:   func(s *memoryState) map[int64]NotificationMarker { return s.markers },
		base:   func(m *NotificationMarker) *domain.Base { return &m.Base },
		clone:  identity[NotificationMarker],
		seq:    func(q *Sequences) *int64 { return &q.Markers },
	}
	historyBucket = bucket[AssetHistory]{
		entity: domain.EntityAssetHistory,
		rows:   func(s *memoryState) map[int64]AssetHistory { return s.history },
		clone:  cloneHistory,
		seq:    func(q *Sequences) *int64 { return &q.History },
	}
	messageBucket = bucket[ChatMessage]{
		entity: domain.EntityChatMessage,
		rows:   func(s *memoryState) map[int64]ChatMessage { return s.messages },
		clone:  identity[ChatMessage],
		seq:    func(q *Sequences) *int64 { return &q.Messages },
	}

	tables = map[domain.EntityType]table{
		domain.EntityAsset:        assetBucket,
		domain.EntityAssetType:    assetTypeBucket,
		domain.EntityUser:         userBucket,
		domain.EntityDepartment:   departmentBucket,
		domain.EntityNotification: notificationBucket,
		domain.EntityAssetHistory: historyBucket,
		domain.EntityChatMessage:  messageBucket,

		domain.EntityNotificationMarker: markerBucket,
	}
)

// transaction represents a mutation set applied to the store state.
type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time

	reads   map[entityKey]int64
	scans   map[domain.EntityType]int64
	created map[entityKey]struct{}
	dirty   map[entityKey]struct{}
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// observe remembers the first version seen for key. Rows the transaction
// created itself cannot conflict and are skipped.
func (tx *transaction) observe(key entityKey, version int64) {
	if _, ok := tx.created[key]; ok {
		return
	}
	if _, ok := tx.reads[key]; ok {
		return
	}
	tx.reads[key] = version
}

// observeTable remembers the table revision the transaction started from, so
// a commit that adds, changes or removes any row of entity in the meantime
// fails validation.
func (tx *transaction) observeTable(entity domain.EntityType) {
	if _, ok := tx.scans[entity]; ok {
		return
	}
	tx.scans[entity] = tx.state.revisions[entity]
}

func (tx *transaction) validate(committed *memoryState) error {
	for key, seen := range tx.reads {
		if tables[key.entity].version(committed, key.id) != seen {
			return fmt.Errorf("%s %d: %w", key.entity, key.id, domain.ErrTransientConflict)
		}
	}
	for entity, seen := range tx.scans {
		if committed.revisions[entity] != seen {
			return fmt.Errorf("%s table: %w", entity, domain.ErrTransientConflict)
		}
	}
	return nil
}

func (tx *transaction) apply(committed *memoryState) {
	touched := make(map[domain.EntityType]struct{})
	for key := range tx.dirty {
		tables[key.entity].publish(committed, &tx.state, key.id)
		touched[key.entity] = struct{}{}
	}
	for entity := range touched {
		committed.revisions[entity]++
	}
}

func find[T any](tx *transaction, b bucket[T], id int64) (T, bool) {
	row, ok := b.rows(&tx.state)[id]
	tx.observe(entityKey{b.entity, id}, b.version(&tx.state, id))
	if !ok {
		var zero T
		return zero, false
	}
	return b.clone(row), true
}

func create[T any](tx *transaction, b bucket[T], row T) (T, error) {
	base := b.base(&row)
	key := entityKey{b.entity, base.ID}
	if base.ID == 0 {
		base.ID = tx.store.nextID(b.seq)
		key.id = base.ID
		tx.created[key] = struct{}{}
	} else {
		if _, exists := b.rows(&tx.state)[base.ID]; exists {
			var zero T
			return zero, fmt.Errorf("%s %d already exists", b.entity, base.ID)
		}
		tx.observe(key, 0)
		tx.store.reserveID(b.seq, base.ID)
	}
	base.CreatedAt = tx.now
	base.UpdatedAt = tx.now
	base.Version = 1
	b.rows(&tx.state)[base.ID] = b.clone(row)
	tx.dirty[key] = struct{}{}
	tx.recordChange(Change{Entity: b.entity, Action: domain.ActionCreate, After: b.clone(row)})
	return b.clone(row), nil
}

func update[T any](tx *transaction, b bucket[T], id int64, mutator func(*T) error) (T, error) {
	var zero T
	key := entityKey{b.entity, id}
	current, ok := b.rows(&tx.state)[id]
	tx.observe(key, b.version(&tx.state, id))
	if !ok {
		return zero, domain.NotFoundError{Entity: b.entity, ID: id}
	}
	before := b.clone(current)
	if err := mutator(&current); err != nil {
		return zero, err
	}
	prev := b.base(&before)
	base := b.base(&current)
	base.ID = id
	base.CreatedAt = prev.CreatedAt
	base.UpdatedAt = tx.now
	base.Version = prev.Version + 1
	b.rows(&tx.state)[id] = b.clone(current)
	tx.dirty[key] = struct{}{}
	tx.recordChange(Change{Entity: b.entity, Action: domain.ActionUpdate, Before: before, After: b.clone(current)})
	return b.clone(current), nil
}

func remove[T any](tx *transaction, b bucket[T], id int64) error {
	key := entityKey{b.entity, id}
	current, ok := b.rows(&tx.state)[id]
	tx.observe(key, b.version(&tx.state, id))
	if !ok {
		return domain.NotFoundError{Entity: b.entity, ID: id}
	}
	delete(b.rows(&tx.state), id)
	tx.dirty[key] = struct{}{}
	tx.recordChange(Change{Entity: b.entity, Action: domain.ActionDelete, Before: b.clone(current)})
	return nil
}

// appendRow inserts an append-only row under a freshly reserved id.
func appendRow[T any](tx *transaction, b bucket[T], row T, setID func(*T, int64)) T {
	id := tx.store.nextID(b.seq)
	setID(&row, id)
	key := entityKey{b.entity, id}
	tx.created[key] = struct{}{}
	b.rows(&tx.state)[id] = b.clone(row)
	tx.dirty[key] = struct{}{}
	tx.recordChange(Change{Entity: b.entity, Action: domain.ActionCreate, After: b.clone(row)})
	return b.clone(row)
}

// Snapshot returns a read-only view over the transactional state. Reads made
// through the view are not tracked for conflict detection.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// FindAsset looks up an asset within the transaction scope.
func (tx *transaction) FindAsset(id int64) (Asset, bool) { return find(tx, assetBucket, id) }

// CreateAsset stores a new asset. An asset carrying a code pins the asset
// table so two concurrent creates cannot both claim the same code.
func (tx *transaction) CreateAsset(a Asset) (Asset, error) {
	if a.Code != "" {
		tx.observeTable(domain.EntityAsset)
	}
	return create(tx, assetBucket, a)
}

// UpdateAsset mutates an asset using the provided mutator function. Changing
// the code pins the asset table like CreateAsset does.
func (tx *transaction) UpdateAsset(id int64, mutator func(*Asset) error) (Asset, error) {
	return update(tx, assetBucket, id, func(a *Asset) error {
		code := a.Code
		if err := mutator(a); err != nil {
			return err
		}
		if a.Code != "" && a.Code != code {
			tx.observeTable(domain.EntityAsset)
		}
		return nil
	})
}

// DeleteAsset removes an asset together with its reminder markers. Its
// ledger rows are kept.
func (tx *transaction) DeleteAsset(id int64) error {
	if err := remove(tx, assetBucket, id); err != nil {
		return err
	}
	tx.observeTable(domain.EntityNotificationMarker)
	for _, m := range listSorted(tx.state.markers, identity[NotificationMarker]) {
		if m.AssetID != id {
			continue
		}
		if err := remove(tx, markerBucket, m.ID); err != nil {
			return err
		}
	}
	return nil
}

// FindAssetType looks up an asset type within the transaction scope.
func (tx *transaction) FindAssetType(id int64) (AssetType, bool) {
	return find(tx, assetTypeBucket, id)
}

// CreateAssetType stores a new asset type.
func (tx *transaction) CreateAssetType(t AssetType) (AssetType, error) {
	return create(tx, assetTypeBucket, t)
}

// UpdateAssetType mutates an asset type.
func (tx *transaction) UpdateAssetType(id int64, mutator func(*AssetType) error) (AssetType, error) {
	return update(tx, assetTypeBucket, id, mutator)
}

// DeleteAssetType removes an asset type that no asset references.
func (tx *transaction) DeleteAssetType(id int64) error {
	tx.observeTable(domain.EntityAsset)
	for _, a := range tx.state.assets {
		if a.TypeID == id {
			return domain.InvalidStateError{Entity: domain.EntityAssetType, ID: id, Reason: fmt.Sprintf("still referenced by asset %d", a.ID)}
		}
	}
	return remove(tx, assetTypeBucket, id)
}

// FindUser looks up a user within the transaction scope.
func (tx *transaction) FindUser(id int64) (User, bool) { return find(tx, userBucket, id) }

// CreateUser stores a new user.
func (tx *transaction) CreateUser(u User) (User, error) { return create(tx, userBucket, u) }

// UpdateUser mutates a user.
func (tx *transaction) UpdateUser(id int64, mutator func(*User) error) (User, error) {
	return update(tx, userBucket, id, mutator)
}

// DeleteUser removes a user that holds no assets.
func (tx *transaction) DeleteUser(id int64) error {
	tx.observeTable(domain.EntityAsset)
	for _, a := range tx.state.assets {
		if a.OwnerID != nil && *a.OwnerID == id {
			return domain.InvalidStateError{Entity: domain.EntityUser, ID: id, Reason: fmt.Sprintf("still holds asset %d", a.ID)}
		}
	}
	return remove(tx, userBucket, id)
}

// FindDepartment looks up a department within the transaction scope.
func (tx *transaction) FindDepartment(id int64) (Department, bool) {
	return find(tx, departmentBucket, id)
}

// CreateDepartment stores a new department.
func (tx *transaction) CreateDepartment(d Department) (Department, error) {
	return create(tx, departmentBucket, d)
}

// UpdateDepartment mutates a department.
func (tx *transaction) UpdateDepartment(id int64, mutator func(*Department) error) (Department, error) {
	return update(tx, departmentBucket, id, mutator)
}

// DeleteDepartment removes a department without members.
func (tx *transaction) DeleteDepartment(id int64) error {
	tx.observeTable(domain.EntityUser)
	for _, u := range tx.state.users {
		if u.DepartmentID == id {
			return domain.InvalidStateError{Entity: domain.EntityDepartment, ID: id, Reason: fmt.Sprintf("still has member %d", u.ID)}
		}
	}
	return remove(tx, departmentBucket, id)
}

// FindNotification looks up a notification within the transaction scope.
func (tx *transaction) FindNotification(id int64) (Notification, bool) {
	return find(tx, notificationBucket, id)
}

// CreateNotification stores a new notification.
func (tx *transaction) CreateNotification(n Notification) (Notification, error) {
	return create(tx, notificationBucket, n)
}

// UpdateNotification mutates a notification.
func (tx *transaction) UpdateNotification(id int64, mutator func(*Notification) error) (Notification, error) {
	return update(tx, notificationBucket, id, mutator)
}

// DeleteNotification removes a notification.
func (tx *transaction) DeleteNotification(id int64) error {
	return remove(tx, notificationBucket, id)
}

// FindNotificationMarker looks up a reminder marker within the transaction scope.
func (tx *transaction) FindNotificationMarker(id int64) (NotificationMarker, bool) {
	return find(tx, markerBucket, id)
}

// CreateNotificationMarker stores a new reminder marker.
func (tx *transaction) CreateNotificationMarker(m NotificationMarker) (NotificationMarker, error) {
	return create(tx, markerBucket, m)
}

// UpdateNotificationMarker mutates a reminder marker.
func (tx *transaction) UpdateNotificationMarker(id int64, mutator func(*NotificationMarker) error) (NotificationMarker, error) {
	return update(tx, markerBucket, id, mutator)
}

// DeleteNotificationMarker removes a reminder marker.
func (tx *transaction) DeleteNotificationMarker(id int64) error {
	return remove(tx, markerBucket, id)
}

// AppendHistory adds a ledger row. PerformedAt defaults to the transaction
// time when the caller leaves it zero.
func (tx *transaction) AppendHistory(h AssetHistory) (AssetHistory, error) {
	if h.AssetID == 0 {
		return AssetHistory{}, fmt.Errorf("asset history requires an asset id")
	}
	if h.PerformedAt.IsZero() {
		h.PerformedAt = tx.now
	}
	return appendRow(tx, historyBucket, h, func(r *AssetHistory, id int64) { r.ID = id }), nil
}

// AppendChatMessage stores one side of an assistant exchange.
func (tx *transaction) AppendChatMessage(m ChatMessage) (ChatMessage, error) {
	if m.UserID == 0 {
		return ChatMessage{}, fmt.Errorf("chat message requires a user id")
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = tx.now
	}
	return appendRow(tx, messageBucket, m, func(r *ChatMessage, id int64) { r.ID = id }), nil
}

// transactionView exposes a read-only snapshot of the transactional state.
type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

func listSorted[T any](rows map[int64]T, clone func(T) T) []T {
	ids := make([]int64, 0, len(rows))
	for id := range rows {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, clone(rows[id]))
	}
	return out
}

func lookup[T any](rows map[int64]T, clone func(T) T, id int64) (T, bool) {
	row, ok := rows[id]
	if !ok {
		var zero T
		return zero, false
	}
	return clone(row), true
}

// ListAssets returns every asset ordered by id.
func (v transactionView) ListAssets() []Asset { return listSorted(v.state.assets, cloneAsset) }

// ListAssetTypes returns every asset type ordered by id.
func (v transactionView) ListAssetTypes() []AssetType {
	return listSorted(v.state.assetTypes, identity[AssetType])
}

// ListUsers returns every user ordered by id.
func (v transactionView) ListUsers() []User { return listSorted(v.state.users, identity[User]) }

// ListDepartments returns every department ordered by id.
func (v transactionView) ListDepartments() []Department {
	return listSorted(v.state.departments, cloneDepartment)
}

// ListNotifications returns every notification ordered by id.
func (v transactionView) ListNotifications() []Notification {
	return listSorted(v.state.notifications, cloneNotification)
}

// ListNotificationMarkers returns every reminder marker ordered by id.
func (v transactionView) ListNotificationMarkers() []NotificationMarker {
	return listSorted(v.state.markers, identity[NotificationMarker])
}

// ListHistory returns the ledger ordered by PerformedAt ascending, ties
// broken by id.
func (v transactionView) ListHistory() []AssetHistory {
	out := listSorted(v.state.history, cloneHistory)
	slices.SortStableFunc(out, func(a, b AssetHistory) int {
		if c := a.PerformedAt.Compare(b.PerformedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// ListChatMessages returns a user's conversation oldest first.
func (v transactionView) ListChatMessages(userID int64) []ChatMessage {
	out := make([]ChatMessage, 0)
	for _, m := range listSorted(v.state.messages, identity[ChatMessage]) {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	slices.SortStableFunc(out, func(a, b ChatMessage) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// FindAsset looks up an asset by id.
func (v transactionView) FindAsset(id int64) (Asset, bool) {
	return lookup(v.state.assets, cloneAsset, id)
}

// FindAssetType looks up an asset type by id.
func (v transactionView) FindAssetType(id int64) (AssetType, bool) {
	return lookup(v.state.assetTypes, identity[AssetType], id)
}

// FindUser looks up a user by id.
func (v transactionView) FindUser(id int64) (User, bool) {
	return lookup(v.state.users, identity[User], id)
}

// FindDepartment looks up a department by id.
func (v transactionView) FindDepartment(id int64) (Department, bool) {
	return lookup(v.state.departments, cloneDepartment, id)
}

// FindNotification looks up a notification by id.
func (v transactionView) FindNotification(id int64) (Notification, bool) {
	return lookup(v.state.notifications, cloneNotification, id)
}

// FindNotificationMarker looks up a reminder marker by id.
func (v transactionView) FindNotificationMarker(id int64) (NotificationMarker, bool) {
	return lookup(v.state.markers, identity[NotificationMarker], id)
}
