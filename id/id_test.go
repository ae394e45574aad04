package id_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/posthoot/sailhook/id"
)

func TestNewWebhookID(t *testing.T) {
	wid := id.NewWebhookID()
	if wid.IsNil() {
		t.Fatal("expected non-nil ID")
	}
	if wid.Prefix() != id.PrefixWebhook {
		t.Fatalf("prefix: got %q", wid.Prefix())
	}
	if !strings.HasPrefix(wid.String(), "wh_") {
		t.Fatalf("string: got %q", wid.String())
	}
}

func TestParseWithPrefixMismatch(t *testing.T) {
	did := id.NewDeliveryID()
	if _, err := id.ParseWebhookID(did.String()); err == nil {
		t.Fatal("expected prefix mismatch error")
	}
	got, err := id.ParseDeliveryID(did.String())
	if err != nil {
		t.Fatal(err)
	}
	if got.String() != did.String() {
		t.Fatalf("got %q, want %q", got, did)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "wh_", "not an id", "wh_!!!"} {
		if _, err := id.Parse(s); err == nil {
			t.Errorf("Parse(%q): expected error", s)
		}
	}
}

func TestJSONAndScan(t *testing.T) {
	wid := id.NewWebhookID()

	raw, err := json.Marshal(struct {
		ID id.ID `json:"id"`
	}{wid})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), wid.String()) {
		t.Fatalf("marshal: %s", raw)
	}

	var scanned id.ID
	if err := scanned.Scan([]byte(wid.String())); err != nil {
		t.Fatal(err)
	}
	if scanned.String() != wid.String() {
		t.Fatalf("scan: got %q", scanned)
	}

	if err := scanned.Scan(nil); err != nil || !scanned.IsNil() {
		t.Fatalf("scan nil: %v %v", scanned, err)
	}
	if err := scanned.Scan(42); err == nil {
		t.Fatal("expected error scanning int")
	}
}
