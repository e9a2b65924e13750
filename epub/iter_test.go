package epub

import "testing"

func TestManifestIterOrderAndMutation(t *testing.T) {
	e := cascadeEpub(t)
	man := e.Manifest()
	man.Add(NewManifestEntry("extra.css").WithData([]byte("p{}")))

	var ids []string
	it := man.Iter()
	for entry := it.Next(); entry != nil; entry = it.Next() {
		ids = append(ids, entry.ID())
		// Renaming the yielded entry must not disturb the walk.
		entry.SetID(entry.ID() + "-x")
	}
	if len(ids) != 3 {
		t.Fatalf("visited %d entries, want 3", len(ids))
	}
	if ids[0] != "c2000" || ids[1] != "alt" || ids[2] != "extra" {
		t.Errorf("order = %v", ids)
	}
	if man.ByID("c2000-x") == nil {
		t.Error("rename during iteration lost")
	}
}

func TestManifestIterSkipsRemoved(t *testing.T) {
	e := cascadeEpub(t)
	it := e.Manifest().Iter()
	first := it.Next()
	// Remove an unvisited entry; the iterator must not yield it dead.
	e.Manifest().RemoveByID("alt")
	if first.ID() != "c2000" {
		t.Fatalf("first = %q", first.ID())
	}
	if rest := it.Next(); rest != nil {
		t.Errorf("removed entry still yielded: %q", rest.ID())
	}
}

func TestSpineIter(t *testing.T) {
	e := cascadeEpub(t)
	it := e.Spine().Iter()
	n := 0
	for entry := it.Next(); entry != nil; entry = it.Next() {
		entry.SetLinear(false)
		n++
	}
	if n != 2 {
		t.Fatalf("visited %d entries, want 2", n)
	}
	for _, entry := range e.Spine().Entries() {
		if entry.Linear() {
			t.Error("mutation during iteration lost")
		}
	}
}

func TestMetaIter(t *testing.T) {
	e := cascadeEpub(t)
	var props []string
	it := e.Metadata().Iter()
	for entry := it.Next(); entry != nil; entry = it.Next() {
		props = append(props, entry.Property())
	}
	want := []string{"dc:identifier", "dc:title", "dc:language", "cover"}
	if len(props) != len(want) {
		t.Fatalf("props = %v", props)
	}
	for i := range want {
		if props[i] != want[i] {
			t.Errorf("props[%d] = %q, want %q", i, props[i], want[i])
		}
	}
}
