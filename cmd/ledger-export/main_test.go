package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
)

func setEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("ASSETLEDGER_CONFIG", "")
	t.Setenv("ASSETLEDGER_STORAGE_DRIVER", "sqlite")
	t.Setenv("ASSETLEDGER_SQLITE_PATH", filepath.Join(dir, "ledger.db"))
	t.Setenv("ASSETLEDGER_ARCHIVE_DRIVER", "fs")
	t.Setenv("ASSETLEDGER_ARCHIVE_ROOT", filepath.Join(dir, "archive"))
	t.Setenv("ASSETLEDGER_LOG_LEVEL", "error")
	return dir
}

func TestRunExportsAndLists(t *testing.T) {
	setEnv(t)
	var out, errOut bytes.Buffer
	if code := run(nil, &out, &errOut); code != 0 {
		t.Fatalf("export exit %d: %s", code, errOut.String())
	}
	key := strings.TrimSpace(out.String())
	if !strings.HasPrefix(key, "history/") || !strings.HasSuffix(key, ".csv") {
		t.Fatalf("unexpected key %q", key)
	}

	out.Reset()
	if code := run([]string{"-list", "-json"}, &out, &errOut); code != 0 {
		t.Fatalf("list exit %d: %s", code, errOut.String())
	}
	var infos []map[string]any
	if err := json.Unmarshal(out.Bytes(), &infos); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(infos) != 1 || infos[0]["key"] != key {
		t.Fatalf("unexpected listing %v", infos)
	}
}

func TestRunRejectsBadFlagsAndConfig(t *testing.T) {
	setEnv(t)
	var out, errOut bytes.Buffer
	if code := run([]string{"-nope"}, &out, &errOut); code != 2 {
		t.Fatalf("expected flag error exit 2, got %d", code)
	}
	t.Setenv("ASSETLEDGER_STORAGE_DRIVER", "mongo")
	if code := run(nil, &out, &errOut); code != 1 {
		t.Fatalf("expected config error exit 1, got %d", code)
	}
	if !strings.Contains(errOut.String(), "unknown storage driver") {
		t.Fatalf("stderr %q", errOut.String())
	}
}
