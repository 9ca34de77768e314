package liturgy

import (
	"context"
	"fmt"
	"io/fs"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/zapponejosh/ordo-api/internal/calendar"
	"github.com/zapponejosh/ordo-api/internal/data"
)

// mapFetcher serves documents from memory and counts fetches.
type mapFetcher struct {
	docs  map[string]string
	calls atomic.Int64
	// gate, when set, blocks every fetch until closed.
	gate chan struct{}
	fail error
}

func (m *mapFetcher) Fetch(ctx context.Context, path string) ([]byte, error) {
	m.calls.Add(1)
	if m.gate != nil {
		select {
		case <-m.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.fail != nil {
		return nil, m.fail
	}
	doc, ok := m.docs[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, fs.ErrNotExist)
	}
	return []byte(doc), nil
}

// fsFetcher reads from an fs.FS, counting calls per path.
type fsFetcher struct {
	fsys fs.FS

	mu    sync.Mutex
	calls map[string]int
}

func (f *fsFetcher) Fetch(_ context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[path]++
	f.mu.Unlock()
	return fs.ReadFile(f.fsys, path)
}

// smallManifest is a two-document calendar used by the unit tests.
func smallManifest() Manifest {
	return Manifest{
		Temporal: []Segment{
			{Season: "post_pentecost", Path: "temporal/post_pentecost.json"},
			{Season: "lent", Path: "temporal/lent.json"},
		},
		Sanctoral: "sanctoral.yaml",
	}
}

const smallLent = `[
  {"id": "ash_wednesday", "title": "Mercredi des Cendres", "rank": "I classe",
   "temporal_class": "feria", "type": "major_feria", "color": "violet", "easter_offset": -46},
  {"id": "lent_feria", "title": "Férie de Carême", "rank": "Férie", "temporal_class": "feria",
   "color": "violet", "offset_range": {"start": -45, "end": -8},
   "weekdays": ["monday", "tuesday", "wednesday", "thursday", "friday", "saturday"]}
]`

const smallPostPentecost = `[
  {"id": "sunday_after_pentecost", "title": "Dimanche après la Pentecôte", "rank": "II classe",
   "temporal_class": "sunday", "color": "vert", "offset_range": {"start": 57, "end": 300}, "weekdays": ["sunday"]},
  {"id": "feria_after_pentecost", "title": "Férie", "rank": "Férie", "temporal_class": "feria",
   "color": "vert", "offset_range": {"start": 57, "end": 300},
   "weekdays": ["monday", "tuesday", "wednesday", "thursday", "friday", "saturday"]}
]`

const smallSanctoral = `
- id: st_joseph
  title: Saint Joseph
  rank: I classe
  color: blanc
  month: 3
  day: 19
- id: st_anacletus
  title: Saint Anaclet
  rank: III classe
  color: rouge
  fixed_date: "07-13"
  rites: [extraordinaire]
- id: st_mary_magdalene
  title:
    extraordinaire: Sainte Marie-Madeleine
    ordinaire: Sainte Marie-Madeleine, apôtre des apôtres
  rank:
    extraordinaire: III classe
    ordinaire: II classe
  color: blanc
  month: 7
  day: 22
`

func smallDocs() map[string]string {
	return map[string]string{
		"temporal/lent.json":           smallLent,
		"temporal/post_pentecost.json": smallPostPentecost,
		"sanctoral.yaml":               smallSanctoral,
	}
}

func loadSmall(t *testing.T) *Bundle {
	t.Helper()
	b, err := LoadBundle(context.Background(), &mapFetcher{docs: smallDocs()}, smallManifest(), calendar.DefaultBoundaries())
	if err != nil {
		t.Fatalf("LoadBundle: %v", err)
	}
	return b
}

// embedded returns a fetcher over the bundled 1962 dataset.
func embedded() *fsFetcher {
	return &fsFetcher{fsys: data.FS}
}
