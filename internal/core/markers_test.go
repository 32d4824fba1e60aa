package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assetledger/pkg/domain"
)

func TestNotificationMarkerCRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	due := time.Date(2024, 9, 1, 8, 30, 0, 0, time.FixedZone("ICT", 7*3600))

	created, _, err := f.svc.CreateNotificationMarker(ctx, MarkerRequest{AssetID: f.asset.ID, ReminderMilestone: due})
	require.NoError(t, err)
	assert.Equal(t, f.asset.ID, created.AssetID)
	assert.True(t, created.ReminderMilestone.Equal(due))
	assert.Equal(t, time.UTC, created.ReminderMilestone.Location())
	assert.Equal(t, int64(1), created.Version)

	other, _, err := f.svc.CreateAsset(ctx, AssetRequest{Code: "LT-002", Name: "Latitude", TypeID: f.assetType.ID, Status: domain.AssetStatusInStock})
	require.NoError(t, err)
	later := due.AddDate(0, 1, 0)
	updated, _, err := f.svc.UpdateNotificationMarker(ctx, created.ID, MarkerRequest{AssetID: other.ID, ReminderMilestone: later})
	require.NoError(t, err)
	assert.Equal(t, other.ID, updated.AssetID)
	assert.True(t, updated.ReminderMilestone.Equal(later))
	assert.Equal(t, created.Version+1, updated.Version)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	got, err := f.svc.GetNotificationMarker(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, got)

	all, err := f.svc.ListNotificationMarkers(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	_, err = f.svc.DeleteNotificationMarker(ctx, created.ID)
	require.NoError(t, err)
	_, err = f.svc.GetNotificationMarker(ctx, created.ID)
	assert.True(t, domain.IsNotFound(err))
	_, err = f.svc.DeleteNotificationMarker(ctx, created.ID)
	assert.True(t, domain.IsNotFound(err))

	// markers never touch the ledger or the inbox
	history, notifications := f.counts(t)
	assert.Equal(t, 1, history)
	assert.Zero(t, notifications)
}

func TestNotificationMarkerRequiresExistingAsset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	due := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)

	_, _, err := f.svc.CreateNotificationMarker(ctx, MarkerRequest{AssetID: 404, ReminderMilestone: due})
	var nf domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, domain.EntityAsset, nf.Entity)

	created, _, err := f.svc.CreateNotificationMarker(ctx, MarkerRequest{AssetID: f.asset.ID, ReminderMilestone: due})
	require.NoError(t, err)
	_, _, err = f.svc.UpdateNotificationMarker(ctx, created.ID, MarkerRequest{AssetID: 404, ReminderMilestone: due})
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, domain.EntityAsset, nf.Entity)

	// the marker is resolved first
	_, _, err = f.svc.UpdateNotificationMarker(ctx, 99, MarkerRequest{AssetID: 404, ReminderMilestone: due})
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, domain.EntityNotificationMarker, nf.Entity)

	got, err := f.svc.GetNotificationMarker(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, f.asset.ID, got.AssetID)
}

func TestDeleteAssetRemovesItsMarkers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	due := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)

	other, _, err := f.svc.CreateAsset(ctx, AssetRequest{Code: "LT-002", Name: "Latitude", TypeID: f.assetType.ID, Status: domain.AssetStatusInStock})
	require.NoError(t, err)
	for _, id := range []int64{f.asset.ID, f.asset.ID, other.ID} {
		_, _, err := f.svc.CreateNotificationMarker(ctx, MarkerRequest{AssetID: id, ReminderMilestone: due})
		require.NoError(t, err)
	}

	_, err = f.svc.DeleteAsset(ctx, f.asset.ID)
	require.NoError(t, err)

	left, err := f.svc.ListNotificationMarkers(ctx)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, other.ID, left[0].AssetID)
}
