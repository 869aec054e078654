// Package index stores fingerprints by identity and answers Hamming-radius
// queries over them.
//
// Two strategies share one contract. Exhaustive compares the query with every
// record. Banded splits the bit width into contiguous bands and keeps, for
// each band, a posting list of records per exact band value. Two fingerprints
// within distance t differ in at most t bands, so with more than t bands at
// least one band matches exactly; candidates come from band lookups and are
// confirmed with the full distance. Queries with t >= bands lose that
// guarantee and fall back to the exhaustive scan, keeping results identical.
package index

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"imagededup/fingerprint"
)

// StrategyKind names a search strategy.
type StrategyKind int

const (
	// KindExhaustive scans every record.
	KindExhaustive StrategyKind = iota
	// KindBanded uses per-band posting lists.
	KindBanded
)

func (k StrategyKind) String() string {
	if k == KindBanded {
		return "banded"
	}
	return "exhaustive"
}

// Strategy configures how an Index answers queries.
type Strategy struct {
	Kind  StrategyKind
	Bands int
}

// Exhaustive returns the linear-scan strategy.
func Exhaustive() Strategy { return Strategy{Kind: KindExhaustive} }

// Banded returns a banded strategy with the given number of bands.
func Banded(bands int) Strategy { return Strategy{Kind: KindBanded, Bands: bands} }

// BandedFor returns the banded strategy that is exact for threshold t at
// the given width.
func BandedFor(t, width int) Strategy {
	return Banded(max(1, min(t+1, width)))
}

// String returns a short description for logs.
func (s Strategy) String() string {
	if s.Kind == KindBanded {
		return fmt.Sprintf("banded(%d)", s.Bands)
	}
	return "exhaustive"
}

// ParseStrategyKind parses "exhaustive" or "banded".
func ParseStrategyKind(s string) (StrategyKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exhaustive", "linear":
		return KindExhaustive, nil
	case "banded", "lsh", "":
		return KindBanded, nil
	default:
		return 0, fmt.Errorf("unknown index strategy %q", s)
	}
}

// Record pairs an identity with its fingerprint.
type Record struct {
	ID          string
	Fingerprint fingerprint.Fingerprint
}

// Neighbor is a query hit.
type Neighbor struct {
	ID       string
	Distance int
}

// Index is an insertion-only fingerprint store. It is safe for concurrent
// use; queries take a read lock.
type Index struct {
	width    int
	strategy Strategy

	mu      sync.RWMutex
	records []Record
	byID    map[string]uint32

	masks   []fingerprint.Fingerprint
	buckets []map[fingerprint.Fingerprint]*roaring.Bitmap
}

// New creates an empty index for fingerprints of the given width.
func New(width int, strategy Strategy) (*Index, error) {
	if width <= 0 || width > fingerprint.MaxWidth {
		return nil, fmt.Errorf("invalid index width %d", width)
	}
	ix := &Index{
		width:    width,
		strategy: strategy,
		byID:     make(map[string]uint32),
	}
	if strategy.Kind == KindBanded {
		if strategy.Bands < 1 || strategy.Bands > width {
			return nil, fmt.Errorf("invalid band count %d for width %d", strategy.Bands, width)
		}
		ix.masks = make([]fingerprint.Fingerprint, strategy.Bands)
		ix.buckets = make([]map[fingerprint.Fingerprint]*roaring.Bitmap, strategy.Bands)
		for b := range ix.masks {
			lo := b * width / strategy.Bands
			hi := (b + 1) * width / strategy.Bands
			ix.masks[b] = fingerprint.RangeMask(width, lo, hi)
			ix.buckets[b] = make(map[fingerprint.Fingerprint]*roaring.Bitmap)
		}
	}
	return ix, nil
}

// Width returns the fingerprint width the index accepts.
func (ix *Index) Width() int { return ix.width }

// Strategy returns the configured strategy.
func (ix *Index) Strategy() Strategy { return ix.strategy }

// Len returns the number of records.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.records)
}

// Insert adds a record. It fails if id is already present or fp has the
// wrong width.
func (ix *Index) Insert(id string, fp fingerprint.Fingerprint) error {
	if fp.Width() != ix.width {
		return fmt.Errorf("insert %s: %w: got %d, index width %d", id, fingerprint.ErrWidthMismatch, fp.Width(), ix.width)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if _, ok := ix.byID[id]; ok {
		return &DuplicateIdentityError{ID: id}
	}
	ord := uint32(len(ix.records))
	ix.records = append(ix.records, Record{ID: id, Fingerprint: fp})
	ix.byID[id] = ord

	for b, mask := range ix.masks {
		key := fp.And(mask)
		bm, ok := ix.buckets[b][key]
		if !ok {
			bm = roaring.New()
			ix.buckets[b][key] = bm
		}
		bm.Add(ord)
	}
	return nil
}

// Get returns the record stored under id.
func (ix *Index) Get(id string) (Record, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	ord, ok := ix.byID[id]
	if !ok {
		return Record{}, false
	}
	return ix.records[ord], true
}

// Records returns every record sorted by identity.
func (ix *Index) Records() []Record {
	ix.mu.RLock()
	out := make([]Record, len(ix.records))
	copy(out, ix.records)
	ix.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// QueryNeighbors returns every record within distance t of fp, ordered by
// distance and then identity. A stored copy of fp itself is included.
func (ix *Index) QueryNeighbors(fp fingerprint.Fingerprint, t int) ([]Neighbor, error) {
	if err := ValidateThreshold(t, ix.width); err != nil {
		return nil, err
	}
	if fp.Width() != ix.width {
		return nil, fmt.Errorf("query: %w: got %d, index width %d", fingerprint.ErrWidthMismatch, fp.Width(), ix.width)
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var out []Neighbor
	visit := func(ord uint32) {
		rec := ix.records[ord]
		if d := fingerprint.Distance(fp, rec.Fingerprint); d <= t {
			out = append(out, Neighbor{ID: rec.ID, Distance: d})
		}
	}

	if cands := ix.candidatesLocked(fp, t); cands != nil {
		it := cands.Iterator()
		for it.HasNext() {
			visit(it.Next())
		}
	} else {
		for ord := range ix.records {
			visit(uint32(ord))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// candidatesLocked returns the band-matched candidate ordinals, or nil when
// the query has to scan everything. Caller must hold ix.mu.
func (ix *Index) candidatesLocked(fp fingerprint.Fingerprint, t int) *roaring.Bitmap {
	if ix.strategy.Kind != KindBanded || t >= len(ix.masks) {
		return nil
	}
	lists := make([]*roaring.Bitmap, 0, len(ix.masks))
	for b, mask := range ix.masks {
		if bm, ok := ix.buckets[b][fp.And(mask)]; ok {
			lists = append(lists, bm)
		}
	}
	if len(lists) == 0 {
		return roaring.New()
	}
	return roaring.FastOr(lists...)
}
