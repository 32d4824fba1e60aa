package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assetledger/internal/archive/objstore"
)

func newMockStore(prefix string) (*Store, *MockTransport) {
	rt := NewMockTransport()
	store := NewWithTransport(Config{
		Bucket:    "ledger-archive",
		Prefix:    prefix,
		Endpoint:  "https://mock.s3.local",
		PathStyle: true,
	}, rt)
	return store, rt
}

func TestStoreRoundTripThroughMock(t *testing.T) {
	ctx := context.Background()
	store, rt := newMockStore("assetledger")

	info, err := store.Put(ctx, "history/a.csv", bytes.NewReader([]byte("id\n1\n")), objstore.PutOptions{
		ContentType: "text/csv",
		Metadata:    map[string]string{"rows": "1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "history/a.csv", info.Key)
	assert.Equal(t, int64(5), info.Size)
	assert.Equal(t, []string{"assetledger/history/a.csv"}, rt.Keys())

	_, err = store.Put(ctx, "history/a.csv", bytes.NewReader([]byte("x")), objstore.PutOptions{})
	assert.True(t, errors.Is(err, objstore.ErrExists))

	got, body, err := store.Get(ctx, "history/a.csv")
	require.NoError(t, err)
	raw, _ := io.ReadAll(body)
	_ = body.Close()
	assert.Equal(t, "id\n1\n", string(raw))
	assert.Equal(t, "text/csv", got.ContentType)
	assert.Equal(t, "1", got.Metadata["rows"])

	_, err = store.Put(ctx, "snapshots/s.json", bytes.NewReader([]byte("{}")), objstore.PutOptions{})
	require.NoError(t, err)
	list, err := store.List(ctx, "history/")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "history/a.csv", list[0].Key)

	ok, err := store.Delete(ctx, "history/a.csv")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.Delete(ctx, "history/a.csv")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Head(ctx, "history/a.csv")
	assert.True(t, errors.Is(err, objstore.ErrNotFound))
	_, _, err = store.Get(ctx, "history/a.csv")
	assert.True(t, errors.Is(err, objstore.ErrNotFound))
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)

	store, err := New(context.Background(), Config{Bucket: "b", AccessKey: "id", SecretKey: "secret", Region: "ap-southeast-1"})
	require.NoError(t, err)
	assert.Equal(t, objstore.DriverS3, store.Driver())
}

func TestDecodeChunked(t *testing.T) {
	out, err := decodeChunked([]byte("5\r\nhello\r\n3;chunk-signature=x\r\nabc\r\n0\r\nx-amz-checksum-crc32:AAAA\r\n\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "helloabc", string(out))

	_, err = decodeChunked([]byte("zz\r\n"))
	assert.Error(t, err)
}
