package main

import (
	"testing"

	"github.com/google/pprof/profile"
)

func TestTopAllocationSitesSumsByLeafFunction(t *testing.T) {
	allocPage := &profile.Function{Name: "mem.(*Allocator).Alloc"}
	heapGrow := &profile.Function{Name: "heap.(*Heap).grow"}
	locA := &profile.Location{Line: []profile.Line{{Function: allocPage}}}
	locB := &profile.Location{Line: []profile.Line{{Function: heapGrow}}}

	p := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "alloc_objects", Unit: "count"},
			{Type: "alloc_space", Unit: "bytes"},
		},
		Sample: []*profile.Sample{
			{Location: []*profile.Location{locA}, Value: []int64{10, 4096}},
			{Location: []*profile.Location{locA}, Value: []int64{5, 2048}},
			{Location: []*profile.Location{locB}, Value: []int64{1, 8192}},
		},
	}

	sites, idx, unit := topAllocationSites(p)
	if unit != "bytes" {
		t.Fatalf("unit = %q, want bytes", unit)
	}
	if idx != 1 {
		t.Fatalf("valueIdx = %d, want 1", idx)
	}

	totals := make(map[string]int64)
	for _, s := range sites {
		totals[s.name] = s.value
	}
	if totals["mem.(*Allocator).Alloc"] != 6144 {
		t.Fatalf("Alloc total = %d, want 6144", totals["mem.(*Allocator).Alloc"])
	}
	if totals["heap.(*Heap).grow"] != 8192 {
		t.Fatalf("grow total = %d, want 8192", totals["heap.(*Heap).grow"])
	}
}

func TestBytesValueIndexFallsBackToLastColumn(t *testing.T) {
	p := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "cpu", Unit: "nanoseconds"},
			{Type: "samples", Unit: "count"},
		},
	}
	idx, unit := bytesValueIndex(p)
	if idx != 1 || unit != "count" {
		t.Fatalf("bytesValueIndex = (%d, %q), want (1, count)", idx, unit)
	}
}
