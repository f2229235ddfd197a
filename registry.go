package rhscache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/apex/log"
)

// ReportFileName is the file Finalize writes into each reports directory.
const ReportFileName = "linear_rhs_cache_stats.html"

// SystemStats is the stats of one cache, keyed by its system path.
type SystemStats struct {
	Path  string `json:"path" yaml:"path"`
	Stats Stats  `json:"stats" yaml:"stats"`
}

// Report groups the stats of all systems writing to one reports directory.
type Report struct {
	Dir     string        `json:"dir" yaml:"dir"`
	Systems []SystemStats `json:"systems" yaml:"systems"`
}

// Snapshot is a point-in-time copy of registered stats, ordered by directory
// then system path.
type Snapshot struct {
	Reports []Report `json:"reports" yaml:"reports"`
}

// StatsRegistry collects the caches of a process that collect stats so they
// can be exported together.
//
// The owning process calls Finalize (or Export) as part of its shutdown; the
// registry installs no exit hooks.
type StatsRegistry struct {
	mu   sync.Mutex
	dirs map[string]map[string]*Cache
}

// NewStatsRegistry returns an empty registry.
func NewStatsRegistry() *StatsRegistry {
	return &StatsRegistry{dirs: make(map[string]map[string]*Cache)}
}

// Register adds c under reportsDir. Caches built without CollectStats are
// ignored and Register returns false. A later cache with the same directory
// and path replaces the earlier one.
func (r *StatsRegistry) Register(reportsDir string, c *Cache) bool {
	if c.stats == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	systems, ok := r.dirs[reportsDir]
	if !ok {
		systems = make(map[string]*Cache)
		r.dirs[reportsDir] = systems
	}
	systems[c.Path()] = c

	return true
}

// Len returns the number of registered caches.
func (r *StatsRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, systems := range r.dirs {
		n += len(systems)
	}

	return n
}

// Snapshot returns the current stats of every registered cache.
func (r *StatsRegistry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	var snap Snapshot
	for dir, systems := range r.dirs {
		rep := Report{Dir: dir}
		for path, c := range systems {
			var s Stats
			c.UpdateStats(&s)
			rep.Systems = append(rep.Systems, SystemStats{Path: path, Stats: s})
		}
		snap.Reports = append(snap.Reports, rep)
	}
	snap.sort()

	return snap
}

// Finalize writes ReportFileName as an HTML table into every reports
// directory, creating directories as needed.
func (r *StatsRegistry) Finalize() error {
	snap := r.Snapshot()

	var errs []error
	for _, rep := range snap.Reports {
		if err := writeReportFile(rep); err != nil {
			errs = append(errs, err)
			continue
		}
		log.WithFields(log.Fields{
			"dir":     rep.Dir,
			"systems": len(rep.Systems),
		}).Debug("wrote rhs cache stats")
	}

	return errors.Join(errs...)
}

func writeReportFile(rep Report) error {
	if err := os.MkdirAll(rep.Dir, 0755); err != nil {
		return fmt.Errorf("cannot create dir %q: %w", rep.Dir, err)
	}

	path := filepath.Join(rep.Dir, ReportFileName)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create %q: %w", path, err)
	}

	if err := writeHTML(f, Snapshot{Reports: []Report{rep}}); err != nil {
		_ = f.Close()
		return fmt.Errorf("cannot write %q: %w", path, err)
	}

	return f.Close()
}

// Total returns the sum of all stats in s.
func (s Snapshot) Total() Stats {
	var t Stats
	for _, rep := range s.Reports {
		for _, sys := range rep.Systems {
			t.Add(sys.Stats)
		}
	}

	return t
}

// MergeSnapshots sums the stats of snapshots by directory and system path.
// It combines the per-worker snapshots of a distributed run.
func MergeSnapshots(snaps ...Snapshot) Snapshot {
	merged := make(map[string]map[string]*Stats)
	for _, snap := range snaps {
		for _, rep := range snap.Reports {
			systems, ok := merged[rep.Dir]
			if !ok {
				systems = make(map[string]*Stats)
				merged[rep.Dir] = systems
			}
			for _, sys := range rep.Systems {
				s, ok := systems[sys.Path]
				if !ok {
					s = &Stats{}
					systems[sys.Path] = s
				}
				s.Add(sys.Stats)
			}
		}
	}

	var out Snapshot
	for dir, systems := range merged {
		rep := Report{Dir: dir}
		for path, s := range systems {
			rep.Systems = append(rep.Systems, SystemStats{Path: path, Stats: *s})
		}
		out.Reports = append(out.Reports, rep)
	}
	out.sort()

	return out
}

func (s *Snapshot) sort() {
	sort.Slice(s.Reports, func(i, j int) bool {
		return s.Reports[i].Dir < s.Reports[j].Dir
	})
	for _, rep := range s.Reports {
		sort.Slice(rep.Systems, func(i, j int) bool {
			return rep.Systems[i].Path < rep.Systems[j].Path
		})
	}
}
