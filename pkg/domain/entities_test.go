package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestAssetConditionValid(t *testing.T) {
	for _, c := range []AssetCondition{ConditionNew, ConditionGood, ConditionFair, ConditionPoor, ConditionBroken} {
		if !c.Valid() {
			t.Fatalf("%s should be valid", c)
		}
	}
	for _, c := range []AssetCondition{"", "SHINY", "good"} {
		if c.Valid() {
			t.Fatalf("%q should be invalid", c)
		}
	}
}

func TestAssetJSONKeepsDecimalPrecision(t *testing.T) {
	a := Asset{Base: Base{ID: 3}, Code: "LT-3", Value: decimal.RequireFromString("1999.90"), Status: AssetStatusInStock}
	raw, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"value":"1999.9"`) || !strings.Contains(string(raw), `"owner_id":null`) {
		t.Fatalf("unexpected json %s", raw)
	}
	var back Asset
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Value.Equal(a.Value) {
		t.Fatalf("value drifted: %s", back.Value)
	}
}

func TestErrorHelpersSeeThroughWrapping(t *testing.T) {
	nf := fmt.Errorf("lookup: %w", NotFoundError{Entity: EntityAsset, ID: 9})
	if !IsNotFound(nf) || IsInvalidState(nf) {
		t.Fatalf("not found classification failed")
	}
	if nf.Error() != "lookup: asset 9 not found" {
		t.Fatalf("message %q", nf.Error())
	}
	is := fmt.Errorf("revoke: %w", InvalidStateError{Entity: EntityAsset, ID: 9, Reason: "not assigned"})
	if !IsInvalidState(is) || IsNotFound(is) {
		t.Fatalf("invalid state classification failed")
	}
	if !errors.Is(fmt.Errorf("commit: %w", ErrTransientConflict), ErrTransientConflict) {
		t.Fatalf("expected transient conflict to unwrap")
	}
	if *Ptr(int64(5)) != 5 {
		t.Fatalf("ptr")
	}
}
