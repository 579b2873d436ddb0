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

package cpumask

import (
	"sync"
	"testing"
)

func TestZeroValueIsEmpty(t *testing.T) {
	var s CPUSet
	if !s.IsEmpty() {
		t.Errorf("IsEmpty: got false, wanted true")
	}
	if got := s.Count(); got != 0 {
		t.Errorf("Count: got %d, wanted 0", got)
	}
}

func TestSetClearTest(t *testing.T) {
	var s CPUSet
	for _, cpu := range []uint32{0, 1, 63, 64, MaxCPUs - 1} {
		s.Set(cpu)
		if !s.Test(cpu) {
			t.Errorf("Test(%d) after Set: got false, wanted true", cpu)
		}
	}
	if got := s.Count(); got != 5 {
		t.Errorf("Count: got %d, wanted 5", got)
	}
	s.Clear(63)
	if s.Test(63) {
		t.Errorf("Test(63) after Clear: got true, wanted false")
	}
	if got := s.Count(); got != 4 {
		t.Errorf("Count: got %d, wanted 4", got)
	}
}

func TestForEachOrder(t *testing.T) {
	var s CPUSet
	want := []uint32{3, 64, 100, 511}
	for _, cpu := range want {
		s.Set(cpu)
	}
	var got []uint32
	s.ForEach(func(cpu uint32) bool {
		got = append(got, cpu)
		return true
	})
	if len(got) != len(want) {
		t.Fatalf("ForEach visited %d CPUs, wanted %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ForEach[%d]: got %d, wanted %d", i, got[i], want[i])
		}
	}
}

func TestConcurrentSetClear(t *testing.T) {
	var s CPUSet
	var wg sync.WaitGroup
	for cpu := uint32(0); cpu < 64; cpu++ {
		wg.Add(1)
		go func(cpu uint32) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				s.Set(cpu)
				s.Clear(cpu)
			}
			s.Set(cpu)
		}(cpu)
	}
	wg.Wait()
	if got := s.Count(); got != 64 {
		t.Errorf("Count after concurrent mutation: got %d, wanted 64", got)
	}
}

func TestOutOfRangePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("Set(MaxCPUs) did not panic")
		}
	}()
	var s CPUSet
	s.Set(MaxCPUs)
}
