package memory

import (
	"assetledger/pkg/domain"
)

type (
	// Asset aliases domain.Asset for in-memory persistence operations.
	Asset = domain.Asset
	// AssetType aliases domain.AssetType.
	AssetType = domain.AssetType
	// AssetHistory aliases domain.AssetHistory.
	AssetHistory = domain.AssetHistory
	// Notification aliases domain.Notification.
	Notification = domain.Notification
	// NotificationMarker aliases domain.NotificationMarker.
	NotificationMarker = domain.NotificationMarker
	// Department aliases domain.Department.
	Department = domain.Department
	// User aliases domain.User.
	User = domain.User
	// ChatMessage aliases domain.ChatMessage.
	ChatMessage = domain.ChatMessage
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
	// PersistentStore aliases domain.PersistentStore abstraction.
	PersistentStore = domain.PersistentStore
)

type memoryState struct {
	assets        map[int64]Asset
	assetTypes    map[int64]AssetType
	users         map[int64]User
	departments   map[int64]Department
	notifications map[int64]Notification
	markers       map[int64]NotificationMarker
	history       map[int64]AssetHistory
	messages      map[int64]ChatMessage

	// revisions counts commits that wrote to each table. Scans that must
	// not miss a concurrently inserted row are validated against it.
	revisions map[domain.EntityType]int64
}

// Sequences holds the last id handed out per bucket. Ids are never reused,
// even when the transaction that reserved them aborts.
type Sequences struct {
	Assets        int64 `json:"assets"`
	AssetTypes    int64 `json:"asset_types"`
	Users         int64 `json:"users"`
	Departments   int64 `json:"departments"`
	Notifications int64 `json:"notifications"`
	Markers       int64 `json:"notification_markers"`
	History       int64 `json:"asset_history"`
	Messages      int64 `json:"chat_messages"`
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Assets        map[int64]Asset              `json:"assets"`
	AssetTypes    map[int64]AssetType          `json:"asset_types"`
	Users         map[int64]User               `json:"users"`
	Departments   map[int64]Department         `json:"departments"`
	Notifications map[int64]Notification       `json:"notifications"`
	Markers       map[int64]NotificationMarker `json:"notification_markers"`
	History       map[int64]AssetHistory       `json:"asset_history"`
	Messages      map[int64]ChatMessage        `json:"chat_messages"`
	Sequences     Sequences                    `json:"sequences"`
}

func newMemoryState() memoryState {
	return memoryState{
		assets:        make(map[int64]Asset),
		assetTypes:    make(map[int64]AssetType),
		users:         make(map[int64]User),
		departments:   make(map[int64]Department),
		notifications: make(map[int64]Notification),
		markers:       make(map[int64]NotificationMarker),
		history:       make(map[int64]AssetHistory),
		messages:      make(map[int64]ChatMessage),
		revisions:     make(map[domain.EntityType]int64),
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.assets {
		cloned.assets[k] = cloneAsset(v)
	}
	for k, v := range s.assetTypes {
		cloned.assetTypes[k] = v
	}
	for k, v := range s.users {
		cloned.users[k] = v
	}
	for k, v := range s.departments {
		cloned.departments[k] = cloneDepartment(v)
	}
	for k, v := range s.notifications {
		cloned.notifications[k] = cloneNotification(v)
	}
	for k, v := range s.markers {
		cloned.markers[k] = v
	}
	for k, v := range s.history {
		cloned.history[k] = cloneHistory(v)
	}
	for k, v := range s.messages {
		cloned.messages[k] = v
	}
	for k, v := range s.revisions {
		cloned.revisions[k] = v
	}
	return cloned
}

func snapshotFromMemoryState(state memoryState, seq Sequences) Snapshot {
	cloned := state.clone()
	return Snapshot{
		Assets:        cloned.assets,
		AssetTypes:    cloned.assetTypes,
		Users:         cloned.users,
		Departments:   cloned.departments,
		Notifications: cloned.notifications,
		Markers:       cloned.markers,
		History:       cloned.history,
		Messages:      cloned.messages,
		Sequences:     seq,
	}
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	src := memoryState{
		assets:        s.Assets,
		assetTypes:    s.AssetTypes,
		users:         s.Users,
		departments:   s.Departments,
		notifications: s.Notifications,
		markers:       s.Markers,
		history:       s.History,
		messages:      s.Messages,
	}
	return src.clone()
}

// migrateSnapshot fills missing buckets and repairs sequences that lag behind
// the highest stored id, which happens with snapshots written before a bucket
// had its own sequence.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Assets == nil {
		snapshot.Assets = map[int64]Asset{}
	}
	if snapshot.AssetTypes == nil {
		snapshot.AssetTypes = map[int64]AssetType{}
	}
	if snapshot.Users == nil {
		snapshot.Users = map[int64]User{}
	}
	if snapshot.Departments == nil {
		snapshot.Departments = map[int64]Department{}
	}
	if snapshot.Notifications == nil {
		snapshot.Notifications = map[int64]Notification{}
	}
	if snapshot.Markers == nil {
		snapshot.Markers = map[int64]NotificationMarker{}
	}
	if snapshot.History == nil {
		snapshot.History = map[int64]AssetHistory{}
	}
	if snapshot.Messages == nil {
		snapshot.Messages = map[int64]ChatMessage{}
	}
	seq := &snapshot.Sequences
	seq.Assets = max(seq.Assets, maxKey(snapshot.Assets))
	seq.AssetTypes = max(seq.AssetTypes, maxKey(snapshot.AssetTypes))
	seq.Users = max(seq.Users, maxKey(snapshot.Users))
	seq.Departments = max(seq.Departments, maxKey(snapshot.Departments))
	seq.Notifications = max(seq.Notifications, maxKey(snapshot.Notifications))
	seq.Markers = max(seq.Markers, maxKey(snapshot.Markers))
	seq.History = max(seq.History, maxKey(snapshot.History))
	seq.Messages = max(seq.Messages, maxKey(snapshot.Messages))
	return snapshot
}

func maxKey[T any](m map[int64]T) int64 {
	var highest int64
	for k := range m {
		if k > highest {
			highest = k
		}
	}
	return highest
}

func cloneInt64(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneAsset(a Asset) Asset {
	cp := a
	cp.OwnerID = cloneInt64(a.OwnerID)
	cp.CreatedBy = cloneInt64(a.CreatedBy)
	if a.PurchaseDate != nil {
		d := *a.PurchaseDate
		cp.PurchaseDate = &d
	}
	return cp
}

func cloneDepartment(d Department) Department {
	cp := d
	cp.ManagerID = cloneInt64(d.ManagerID)
	return cp
}

func cloneNotification(n Notification) Notification {
	cp := n
	cp.AssetID = cloneInt64(n.AssetID)
	if n.LinkURL != nil {
		l := *n.LinkURL
		cp.LinkURL = &l
	}
	return cp
}

func cloneHistory(h AssetHistory) AssetHistory {
	cp := h
	cp.PerformedBy = cloneInt64(h.PerformedBy)
	if h.Notes != nil {
		n := *h.Notes
		cp.Notes = &n
	}
	if h.PreviousStatus != nil {
		s := *h.PreviousStatus
		cp.PreviousStatus = &s
	}
	if h.NewStatus != nil {
		s := *h.NewStatus
		cp.NewStatus = &s
	}
	return cp
}

func identity[T any](v T) T { return v }
