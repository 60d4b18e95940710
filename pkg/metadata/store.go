package metadata

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	verrors "github.com/vstructure/vstructure/pkg/errors"
)

// Store retrieves schema snapshots by instance and version.
// An empty version asks for the latest one available.
type Store interface {
	Load(ctx context.Context, instanceID, version string) (*Snapshot, error)
	Versions(ctx context.Context, instanceID string) ([]string, error)
}

// documentFile is the snapshot document name inside a version
// directory or key prefix.
const documentFile = "document.json"

// FSStore reads snapshots from a directory laid out as
// {root}/{instance}/{version}/document.json.
type FSStore struct {
	Root string
}

// NewFSStore creates a filesystem-backed snapshot store.
func NewFSStore(root string) *FSStore {
	return &FSStore{Root: root}
}

// Load reads a snapshot. With version == "" the lexically newest
// version directory is used; version names embed a date, so lexical
// order is chronological.
func (s *FSStore) Load(ctx context.Context, instanceID, version string) (*Snapshot, error) {
	if version == "" {
		versions, err := s.Versions(ctx, instanceID)
		if err != nil {
			return nil, err
		}
		if len(versions) == 0 {
			return nil, verrors.SnapshotNotFound(instanceID, "latest")
		}
		version = versions[len(versions)-1]
	}

	path := filepath.Join(s.Root, instanceID, version, documentFile)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, verrors.SnapshotNotFound(instanceID, version)
		}
		return nil, verrors.Wrap(err, verrors.CodeSnapshotNotFound, "open snapshot document")
	}
	defer f.Close()

	snap, err := Decode(f)
	if err != nil {
		return nil, err
	}
	if snap.InstanceID == "" {
		snap.InstanceID = instanceID
	}
	if snap.Version == "" {
		snap.Version = version
	}
	return snap, nil
}

// Versions lists the version directories of an instance in ascending
// lexical order.
func (s *FSStore) Versions(_ context.Context, instanceID string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.Root, instanceID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, verrors.SnapshotNotFound(instanceID, "")
		}
		return nil, verrors.Wrap(err, verrors.CodeSnapshotNotFound, "list snapshot versions")
	}

	var versions []string
	for _, e := range entries {
		if e.IsDir() {
			versions = append(versions, e.Name())
		}
	}
	sort.Strings(versions)
	return versions, nil
}

// Save writes a snapshot document, creating the version directory.
// Used by tooling that mirrors snapshots locally.
func (s *FSStore) Save(_ context.Context, snap *Snapshot) error {
	dir := filepath.Join(s.Root, snap.InstanceID, snap.Version)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return verrors.Wrap(err, verrors.CodeWriteFailed, "create snapshot directory")
	}

	f, err := os.Create(filepath.Join(dir, documentFile))
	if err != nil {
		return verrors.Wrap(err, verrors.CodeWriteFailed, "create snapshot document")
	}
	defer f.Close()

	return snap.Encode(f)
}
