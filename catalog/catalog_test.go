package catalog_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/posthoot/sailhook/catalog"
	"github.com/posthoot/sailhook/event"
)

func TestLoadCoversEveryEventType(t *testing.T) {
	c, err := catalog.Load()
	if err != nil {
		t.Fatal(err)
	}

	defs := c.List()
	if len(defs) != len(event.All()) {
		t.Fatalf("expected %d definitions, got %d", len(event.All()), len(defs))
	}
	for i, typ := range event.All() {
		if defs[i].Type != typ {
			t.Fatalf("definition %d: got %s, want %s", i, defs[i].Type, typ)
		}
		if defs[i].Description == "" {
			t.Errorf("%s: missing description", typ)
		}
	}
}

func TestExamplesSatisfyTheirSchemas(t *testing.T) {
	c := catalog.MustLoad()
	for _, typ := range event.All() {
		example, err := c.Example(typ)
		if err != nil {
			t.Fatal(err)
		}
		if err := c.Validate(typ, example); err != nil {
			t.Errorf("%s example rejected: %v", typ, err)
		}
	}
}

func TestValidateRejectsBadData(t *testing.T) {
	c := catalog.MustLoad()

	err := c.Validate(event.EmailClicked, json.RawMessage(`{"emailId":"e1"}`))
	if !errors.Is(err, catalog.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}

	if err := c.Validate(event.EmailClicked, json.RawMessage(`{"emailId":"e1","url":"https://x"}`)); err != nil {
		t.Fatal(err)
	}
}

func TestGetUnknown(t *testing.T) {
	c := catalog.MustLoad()
	if _, err := c.Get(event.Type("EMAIL_READ")); !errors.Is(err, catalog.ErrUnknownEventType) {
		t.Fatalf("expected ErrUnknownEventType, got %v", err)
	}
}

func TestParseRejectsIncompleteCatalog(t *testing.T) {
	src := []byte("- type: EMAIL_OPENED\n  description: opened\n")
	if _, err := catalog.Parse(src); err == nil {
		t.Fatal("expected error for missing definitions")
	}
}

func TestParseRejectsUnknownType(t *testing.T) {
	src := []byte("- type: EMAIL_READ\n  description: nope\n")
	if _, err := catalog.Parse(src); err == nil {
		t.Fatal("expected error for unknown type")
	}
}
