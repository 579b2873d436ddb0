// Copyright 2024 The kernmm Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package kernspace

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"

	"kernmm.dev/kernmm/pkg/hostarch"
	"kernmm.dev/kernmm/pkg/kernspace/auth"
)

func testAddressSpace(t *testing.T) *AddressSpace {
	t.Helper()
	as := NewAddressSpace(auth.RootNamespace(), NewPageTables(1, 0x4000))
	t.Cleanup(as.DecUsers)
	return as
}

func TestInsertAndFindRegion(t *testing.T) {
	as := testAddressSpace(t)
	r := Region{
		Range:   hostarch.AddrRange{Start: 0x1000, End: 0x3000},
		Perms:   hostarch.ReadWrite,
		Backing: "heap",
	}
	if err := as.InsertRegion(r); err != nil {
		t.Fatalf("InsertRegion(%v): got err %v, wanted nil", r.Range, err)
	}
	for _, addr := range []hostarch.Addr{0x1000, 0x2abc, 0x2fff} {
		got, ok := as.FindRegion(addr)
		if !ok {
			t.Fatalf("FindRegion(%#x): got no region, wanted %v", addr, r.Range)
		}
		if diff := cmp.Diff(r, got); diff != "" {
			t.Errorf("FindRegion(%#x) mismatch (-want +got):\n%s", addr, diff)
		}
	}
	for _, addr := range []hostarch.Addr{0xfff, 0x3000, 0x8000} {
		if got, ok := as.FindRegion(addr); ok {
			t.Errorf("FindRegion(%#x): got %v, wanted no region", addr, got.Range)
		}
	}
}

func TestInsertRegionRejectsOverlap(t *testing.T) {
	as := testAddressSpace(t)
	if err := as.InsertRegion(Region{Range: hostarch.AddrRange{Start: 0x2000, End: 0x4000}}); err != nil {
		t.Fatalf("InsertRegion: got err %v, wanted nil", err)
	}
	for _, ar := range []hostarch.AddrRange{
		{Start: 0x1000, End: 0x2001},
		{Start: 0x3fff, End: 0x5000},
		{Start: 0x2800, End: 0x3000},
		{Start: 0x1000, End: 0x5000},
	} {
		err := as.InsertRegion(Region{Range: ar})
		if !errors.Is(err, ErrOverlap) {
			t.Errorf("InsertRegion(%v): got err %v, wanted ErrOverlap", ar, err)
		}
	}
	// Adjacent ranges do not overlap.
	for _, ar := range []hostarch.AddrRange{
		{Start: 0x1000, End: 0x2000},
		{Start: 0x4000, End: 0x5000},
	} {
		if err := as.InsertRegion(Region{Range: ar}); err != nil {
			t.Errorf("InsertRegion(%v): got err %v, wanted nil", ar, err)
		}
	}
}

func TestInsertRegionRejectsInvalidRange(t *testing.T) {
	as := testAddressSpace(t)
	for _, ar := range []hostarch.AddrRange{
		{Start: 0x2000, End: 0x1000},
		{Start: 0x1000, End: 0x1000},
	} {
		err := as.InsertRegion(Region{Range: ar})
		if !errors.Is(err, ErrInvalidRange) {
			t.Errorf("InsertRegion(%v): got err %v, wanted ErrInvalidRange", ar, err)
		}
	}
}

func TestRemoveRegion(t *testing.T) {
	as := testAddressSpace(t)
	ar := hostarch.AddrRange{Start: 0x1000, End: 0x2000}
	if err := as.InsertRegion(Region{Range: ar}); err != nil {
		t.Fatalf("InsertRegion: got err %v, wanted nil", err)
	}
	// Same start, different end: not an exact match.
	if err := as.RemoveRegion(hostarch.AddrRange{Start: 0x1000, End: 0x1800}); !errors.Is(err, ErrNoSuchRegion) {
		t.Errorf("RemoveRegion(partial): got err %v, wanted ErrNoSuchRegion", err)
	}
	if err := as.RemoveRegion(ar); err != nil {
		t.Fatalf("RemoveRegion: got err %v, wanted nil", err)
	}
	if got := as.RegionCount(); got != 0 {
		t.Errorf("RegionCount after removal: got %d, wanted 0", got)
	}
	if err := as.RemoveRegion(ar); !errors.Is(err, ErrNoSuchRegion) {
		t.Errorf("RemoveRegion(again): got err %v, wanted ErrNoSuchRegion", err)
	}
}

func TestForEachRegionOrdered(t *testing.T) {
	as := testAddressSpace(t)
	// Insert out of order; iteration must be sorted by start address.
	ranges := []hostarch.AddrRange{
		{Start: 0x5000, End: 0x6000},
		{Start: 0x1000, End: 0x2000},
		{Start: 0x3000, End: 0x4000},
	}
	for _, ar := range ranges {
		if err := as.InsertRegion(Region{Range: ar}); err != nil {
			t.Fatalf("InsertRegion(%v): got err %v, wanted nil", ar, err)
		}
	}
	want := []hostarch.AddrRange{
		{Start: 0x1000, End: 0x2000},
		{Start: 0x3000, End: 0x4000},
		{Start: 0x5000, End: 0x6000},
	}
	var got []hostarch.AddrRange
	as.ForEachRegion(func(r Region) bool {
		got = append(got, r.Range)
		return true
	})
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ForEachRegion order mismatch (-want +got):\n%s", diff)
	}
	if gotSpan, wantSpan := as.RegionSpan(), uint64(3*0x1000); gotSpan != wantSpan {
		t.Errorf("RegionSpan: got %d, wanted %d", gotSpan, wantSpan)
	}
}

func TestLockSeqIncreasesOnStructuralChange(t *testing.T) {
	as := testAddressSpace(t)
	ar := hostarch.AddrRange{Start: 0x1000, End: 0x2000}
	seq0 := as.LockSeq()
	if err := as.InsertRegion(Region{Range: ar}); err != nil {
		t.Fatalf("InsertRegion: got err %v, wanted nil", err)
	}
	seq1 := as.LockSeq()
	if seq1 <= seq0 {
		t.Errorf("LockSeq after insert: got %d, wanted > %d", seq1, seq0)
	}
	// Lookups are not structural changes.
	as.FindRegion(0x1000)
	if got := as.LockSeq(); got != seq1 {
		t.Errorf("LockSeq after lookup: got %d, wanted %d", got, seq1)
	}
	if err := as.RemoveRegion(ar); err != nil {
		t.Fatalf("RemoveRegion: got err %v, wanted nil", err)
	}
	if got := as.LockSeq(); got <= seq1 {
		t.Errorf("LockSeq after remove: got %d, wanted > %d", got, seq1)
	}
}

// Concurrent shared-mode readers never observe a torn insertion: every
// region they see is one that was fully inserted, and the table they walk is
// always sorted and disjoint.
func TestConcurrentReadersDuringInsertion(t *testing.T) {
	as := testAddressSpace(t)
	const regions = 64
	var g errgroup.Group
	g.Go(func() error {
		for i := 0; i < regions; i++ {
			start := hostarch.Addr(0x1000 * (2*i + 1))
			ar := hostarch.AddrRange{Start: start, End: start + 0x1000}
			if err := as.InsertRegion(Region{Range: ar, Perms: hostarch.Read}); err != nil {
				return err
			}
		}
		return nil
	})
	for reader := 0; reader < 4; reader++ {
		g.Go(func() error {
			for {
				var (
					prev hostarch.AddrRange
					n    int
				)
				var bad error
				as.ForEachRegion(func(r Region) bool {
					if !r.Range.WellFormed() || r.Range.Length() != 0x1000 {
						bad = errors.New("observed a torn region: " + r.Range.String())
						return false
					}
					if n > 0 && r.Range.Start < prev.End {
						bad = errors.New("observed out-of-order or overlapping regions")
						return false
					}
					prev = r.Range
					n++
					return true
				})
				if bad != nil {
					return bad
				}
				if n == regions {
					return nil
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		t.Errorf("concurrent readers: %v", err)
	}
}
