package metadata

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleDocument = `{
  "instance_id": "acme",
  "version": "2024-03",
  "root": {
    "tag": "hris-elements",
    "node_type": "element",
    "children": [
      {
        "tag": "hris-element",
        "technical_id": "personInfo",
        "node_type": "element",
        "attributes": {"data-origin": "standard"},
        "children": [
          {
            "tag": "hris-field",
            "technical_id": "person-id-external",
            "node_type": "field",
            "attributes": {"required": "true", "type": "string"}
          },
          {
            "tag": "hris-field",
            "technical_id": "date-of-birth",
            "node_type": "field",
            "attributes": {"type": "date"}
          }
        ]
      },
      {
        "tag": "hris-element",
        "technical_id": "nationalIdCard",
        "node_type": "element",
        "attributes": {"data-origin": "csf", "data-country": "MEX"},
        "children": [
          {
            "tag": "hris-field",
            "technical_id": "card-type",
            "node_type": "field",
            "attributes": {"required": "true"}
          }
        ]
      }
    ]
  }
}`

func TestDecode(t *testing.T) {
	snap, err := Decode(strings.NewReader(sampleDocument))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if snap.InstanceID != "acme" {
		t.Errorf("expected instance acme, got %q", snap.InstanceID)
	}
	if snap.Version != "2024-03" {
		t.Errorf("expected version 2024-03, got %q", snap.Version)
	}
	if snap.Root == nil || len(snap.Root.Children) != 2 {
		t.Fatalf("expected root with 2 children")
	}

	person := snap.Root.Children[0]
	if person.ID() != "personInfo" {
		t.Errorf("expected personInfo, got %q", person.ID())
	}
	if person.Attr("data-origin") != "standard" {
		t.Errorf("expected data-origin standard, got %q", person.Attr("data-origin"))
	}
}

func TestDecode_Invalid(t *testing.T) {
	if _, err := Decode(strings.NewReader("not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
	if _, err := Decode(strings.NewReader(`{"instance_id": "x"}`)); err == nil {
		t.Error("expected error for missing root")
	}
}

func TestWalk_BindsFieldsToEnclosingElement(t *testing.T) {
	snap, err := Decode(strings.NewReader(sampleDocument))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	owners := map[string]string{}
	snap.Walk(func(n *Node, parentElement string) string {
		switch n.Tag {
		case "hris-element":
			return n.ID()
		case "hris-field":
			owners[n.ID()] = parentElement
		}
		return parentElement
	})

	want := map[string]string{
		"person-id-external": "personInfo",
		"date-of-birth":      "personInfo",
		"card-type":          "nationalIdCard",
	}
	for field, entity := range want {
		if owners[field] != entity {
			t.Errorf("field %s: expected owner %s, got %s", field, entity, owners[field])
		}
	}
}

func writeDocument(t *testing.T, root, instance, version, body string) {
	t.Helper()
	dir := filepath.Join(root, instance, version)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, documentFile), []byte(body), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func TestFSStore_Load(t *testing.T) {
	root := t.TempDir()
	writeDocument(t, root, "acme", "2024-03", sampleDocument)

	store := NewFSStore(root)
	snap, err := store.Load(context.Background(), "acme", "2024-03")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if snap.InstanceID != "acme" || snap.Version != "2024-03" {
		t.Errorf("unexpected snapshot identity: %s/%s", snap.InstanceID, snap.Version)
	}
}

func TestFSStore_LoadLatestVersion(t *testing.T) {
	root := t.TempDir()
	writeDocument(t, root, "acme", "2024-01", sampleDocument)
	writeDocument(t, root, "acme", "2024-03", sampleDocument)
	writeDocument(t, root, "acme", "2024-02", sampleDocument)

	store := NewFSStore(root)
	snap, err := store.Load(context.Background(), "acme", "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if snap.Version != "2024-03" {
		t.Errorf("expected latest version 2024-03, got %q", snap.Version)
	}
}

func TestFSStore_MissingInstance(t *testing.T) {
	store := NewFSStore(t.TempDir())
	if _, err := store.Load(context.Background(), "nobody", ""); err == nil {
		t.Error("expected error for missing instance")
	}
}

func TestFSStore_Versions(t *testing.T) {
	root := t.TempDir()
	writeDocument(t, root, "acme", "2024-02", sampleDocument)
	writeDocument(t, root, "acme", "2024-01", sampleDocument)

	store := NewFSStore(root)
	versions, err := store.Versions(context.Background(), "acme")
	if err != nil {
		t.Fatalf("Versions failed: %v", err)
	}
	if len(versions) != 2 || versions[0] != "2024-01" || versions[1] != "2024-02" {
		t.Errorf("unexpected versions: %v", versions)
	}
}

func TestSnapshot_EncodeRoundTrip(t *testing.T) {
	snap, err := Decode(strings.NewReader(sampleDocument))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	var buf strings.Builder
	if err := snap.Encode(&buf); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	again, err := Decode(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("re-Decode failed: %v", err)
	}
	if again.InstanceID != snap.InstanceID || len(again.Root.Children) != len(snap.Root.Children) {
		t.Error("round trip lost structure")
	}
}
