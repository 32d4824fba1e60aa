package memory

import (
	"encoding/json"
	"fmt"
)

// Bucket names used by the snapshotting drivers. Each bucket is stored as a
// single JSON payload keyed by name.
const (
	BucketAssets        = "assets"
	BucketAssetTypes    = "asset_types"
	BucketUsers         = "users"
	BucketDepartments   = "departments"
	BucketNotifications = "notifications"
	BucketMarkers       = "notification_markers"
	BucketHistory       = "asset_history"
	BucketMessages      = "chat_messages"
	BucketSequences     = "sequences"
)

// Buckets lists every bucket in the order drivers write them.
var Buckets = []string{
	BucketAssets,
	BucketAssetTypes,
	BucketUsers,
	BucketDepartments,
	BucketNotifications,
	BucketMarkers,
	BucketHistory,
	BucketMessages,
	BucketSequences,
}

func (s *Snapshot) target(bucket string) (any, bool) {
	switch bucket {
	case BucketAssets:
		return &s.Assets, true
	case BucketAssetTypes:
		return &s.AssetTypes, true
	case BucketUsers:
		return &s.Users, true
	case BucketDepartments:
		return &s.Departments, true
	case BucketNotifications:
		return &s.Notifications, true
	case BucketMarkers:
		return &s.Markers, true
	case BucketHistory:
		return &s.History, true
	case BucketMessages:
		return &s.Messages, true
	case BucketSequences:
		return &s.Sequences, true
	}
	return nil, false
}

// EncodeBucket marshals one bucket of the snapshot.
func (s Snapshot) EncodeBucket(bucket string) ([]byte, error) {
	target, ok := s.target(bucket)
	if !ok {
		return nil, fmt.Errorf("unknown bucket %q", bucket)
	}
	data, err := json.Marshal(target)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", bucket, err)
	}
	return data, nil
}

// DecodeBucket unmarshals payload into the named bucket. Unknown buckets are
// ignored so older drivers can read newer databases.
func (s *Snapshot) DecodeBucket(bucket string, payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	target, ok := s.target(bucket)
	if !ok {
		return nil
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("decode %s: %w", bucket, err)
	}
	return nil
}
