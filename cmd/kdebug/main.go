// Command kdebug loads a heap profile captured from the kernel heap
// (package heap's allocation sites, captured through runtime/pprof the
// same way any Go program's heap profile is) and prints the top
// allocation sites by bytes (the profile's first byte-valued sample
// column, allocated space in a Go heap profile) — a hosted stand-in for the
// original kernel's D_PROF debug device (defs.D_PROF), which a real
// build would instead stream over a debug console. google/pprof's
// profile package is a direct teacher go.mod dependency, used here for
// exactly the purpose the teacher pulls it in for: reading a profile
// back, not collecting one.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/google/pprof/profile"
)

func main() {
	top := flag.Int("top", 10, "number of allocation sites to print")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: kdebug [-top N] <profile.pb.gz>")
		os.Exit(2)
	}

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		log.Fatalf("kdebug: %v", err)
	}
	defer f.Close()

	p, err := profile.Parse(f)
	if err != nil {
		log.Fatalf("kdebug: parsing profile: %v", err)
	}

	sites, valueIdx, unit := topAllocationSites(p)
	sort.Slice(sites, func(i, j int) bool { return sites[i].value > sites[j].value })

	n := *top
	if n > len(sites) {
		n = len(sites)
	}
	fmt.Printf("top %d allocation sites by %s (sample value index %d):\n", n, unit, valueIdx)
	for i := 0; i < n; i++ {
		fmt.Printf("%10d %s  %s\n", sites[i].value, unit, sites[i].name)
	}
}

type site struct {
	name  string
	value int64
}

// topAllocationSites sums each sample's value (at the in_use/alloc
// value index this profile reports, whichever column the profile
// calls "bytes"-flavored) by its innermost (leaf) function, since a
// heap profile's leaf frame is the allocation site itself.
func topAllocationSites(p *profile.Profile) ([]site, int, string) {
	valueIdx, unit := bytesValueIndex(p)
	totals := make(map[string]int64)
	for _, s := range p.Sample {
		if len(s.Location) == 0 || len(s.Location[0].Line) == 0 {
			continue
		}
		fn := s.Location[0].Line[0].Function
		name := "?"
		if fn != nil {
			name = fn.Name
		}
		if valueIdx < len(s.Value) {
			totals[name] += s.Value[valueIdx]
		}
	}
	out := make([]site, 0, len(totals))
	for name, v := range totals {
		out = append(out, site{name: name, value: v})
	}
	return out, valueIdx, unit
}

// bytesValueIndex picks the sample-value column whose unit is "bytes",
// falling back to the last column (pprof's own convention for heap
// profiles, whose last sample type is typically inuse_space/alloc_space).
func bytesValueIndex(p *profile.Profile) (int, string) {
	for i, vt := range p.SampleType {
		if vt.Unit == "bytes" {
			return i, vt.Unit
		}
	}
	if len(p.SampleType) > 0 {
		last := p.SampleType[len(p.SampleType)-1]
		return len(p.SampleType) - 1, last.Unit
	}
	return 0, "units"
}
