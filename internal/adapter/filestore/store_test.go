package filestore_test

import (
	"context"
	"testing"

	"github.com/TEKIMAX/focus-todo-ai/internal/adapter/filestore"
	"github.com/TEKIMAX/focus-todo-ai/internal/port/blobstore/blobstoretest"
)

func TestCompliance(t *testing.T) {
	s, err := filestore.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	blobstoretest.Run(t, s)
}

func TestSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s1, err := filestore.New(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s1.Put(ctx, "state", []byte(`{"items":[]}`)); err != nil {
		t.Fatal(err)
	}

	s2, err := filestore.New(dir)
	if err != nil {
		t.Fatal(err)
	}
	val, found, err := s2.Get(ctx, "state")
	if err != nil {
		t.Fatal(err)
	}
	if !found || string(val) != `{"items":[]}` {
		t.Fatalf("expected persisted state, got %q (found=%v)", val, found)
	}
}

func TestRejectsTraversalKey(t *testing.T) {
	s, err := filestore.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put(context.Background(), "../escape", []byte("x")); err == nil {
		t.Fatal("expected error for traversal key")
	}
}
