// Package grouper turns pairwise within-threshold relations over an index
// into a duplicate map, a flat removal set and single-linkage clusters.
package grouper

import (
	"context"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"imagededup/index"
)

// Duplicates maps an identity to the sorted identities within threshold of
// it, excluding itself. Identities without neighbors are absent.
type Duplicates map[string][]string

// Set is a set of identities.
type Set map[string]struct{}

// Sorted returns the members in ascending order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Contains reports whether id is a member.
func (s Set) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// GroupDuplicates queries every record of idx at threshold t. The index must
// not be written to while this runs. workers <= 0 uses GOMAXPROCS.
func GroupDuplicates(ctx context.Context, idx *index.Index, t, workers int) (Duplicates, error) {
	if err := index.ValidateThreshold(t, idx.Width()); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	records := idx.Records()
	neighbors := make([][]string, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, rec := range records {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			hits, err := idx.QueryNeighbors(rec.Fingerprint, t)
			if err != nil {
				return err
			}
			var ids []string
			for _, h := range hits {
				if h.ID != rec.ID {
					ids = append(ids, h.ID)
				}
			}
			sort.Strings(ids)
			neighbors[i] = ids
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dups := make(Duplicates)
	for i, rec := range records {
		if len(neighbors[i]) > 0 {
			dups[rec.ID] = neighbors[i]
		}
	}
	return dups, nil
}

// FlattenToRemovalSet returns the union of every neighbor list. Because the
// relation is symmetric this is every identity that has a neighbor.
func FlattenToRemovalSet(d Duplicates) Set {
	out := make(Set)
	for _, ids := range d {
		for _, id := range ids {
			out[id] = struct{}{}
		}
	}
	return out
}
