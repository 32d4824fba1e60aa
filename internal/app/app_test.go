package app

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assetledger/internal/config"
	"assetledger/internal/core"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.Driver = "memory"
	cfg.Archive.Driver = "memory"
	cfg.HTTP.ShutdownTimeout = 2 * time.Second
	return cfg
}

func TestBuildWiresRedisAndServes(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Redis.Addr = mr.Addr()

	a, err := Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	_, _, err = a.Service.CreateDepartment(context.Background(), core.DepartmentRequest{Name: "Ops", Active: true})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/departments")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"name":"Ops"`)

	resp, err = http.Get("http://" + ln.Addr().String() + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Contains(t, string(body), "assetledger_operations_total")
	assert.Contains(t, string(body), "go_goroutines")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = "postgres"
	cfg.Storage.PostgresDSN = ""
	_, err := Build(context.Background(), cfg, nil)
	require.Error(t, err)
}

func TestBuildFailsWhenRedisIsUnreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig(t)
	cfg.Redis.Addr = addr
	_, err = Build(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping")
}

func TestBuildWithSQLiteAndFilesystemArchive(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Storage.SQLitePath = dir + "/ledger.db"
	cfg.Archive.Root = dir + "/archive"

	a, err := Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer func() { require.NoError(t, a.Close()) }()

	export, err := a.Exporter.ExportHistory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, export.Rows)
}
