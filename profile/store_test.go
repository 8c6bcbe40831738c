package profile

import (
	"errors"
	"testing"
)

func TestNewProfileFingerprintsAudio(t *testing.T) {
	p := NewProfile("alex", []float64{0.1, 0.2}, []byte("sample-audio"))
	if p.ID == "" {
		t.Fatal("profile must get an id")
	}
	if p.AudioHash == "" {
		t.Fatal("profile must get an audio fingerprint")
	}
	q := NewProfile("alex", []float64{0.1, 0.2}, []byte("sample-audio"))
	if p.AudioHash != q.AudioHash {
		t.Fatal("same audio must produce the same fingerprint")
	}
	if p.ID == q.ID {
		t.Fatal("ids must be unique per enrollment")
	}
	r := NewProfile("alex", []float64{0.1, 0.2}, []byte("other-audio"))
	if p.AudioHash == r.AudioHash {
		t.Fatal("different audio must produce different fingerprints")
	}
}

func TestStorePutGetRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	defer store.Close()

	p := NewProfile("alex", []float64{0.5, -0.25, 1}, []byte("audio"))
	if err := store.Put(p); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	got, err := store.Get(p.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Name != "alex" || len(got.Embedding) != 3 || got.Embedding[1] != -0.25 {
		t.Fatalf("profile did not round-trip: %+v", got)
	}
}

func TestStoreGetMissing(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	defer store.Close()

	if _, err := store.Get("nope"); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestStoreList(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	defer store.Close()

	for _, name := range []string{"a", "b", "c"} {
		if err := store.Put(NewProfile(name, []float64{1}, []byte(name))); err != nil {
			t.Fatalf("put %s: %v", name, err)
		}
	}
	all, err := store.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 profiles, got %d", len(all))
	}
}
