package rhscache

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValidOptions lists the recognised option keys in their canonical order.
var ValidOptions = []string{
	"use_cache", "check_zero", "rtol", "atol", "max_cache_entries", "collect_stats", "auto",
}

// ErrUnknownOption is matched by errors.Is on every *OptionsError.
var ErrUnknownOption = errors.New("unrecognized rhs_checking option")

// Options configures a Cache.
//
// UseCache and Auto are accepted and carried for the owning solver but do
// not affect matching.
type Options struct {
	UseCache        bool    `yaml:"use_cache" json:"use_cache"`
	CheckZero       bool    `yaml:"check_zero" json:"check_zero"`
	RTol            float64 `yaml:"rtol" json:"rtol"`
	ATol            float64 `yaml:"atol" json:"atol"`
	MaxCacheEntries int     `yaml:"max_cache_entries" json:"max_cache_entries"`
	CollectStats    bool    `yaml:"collect_stats" json:"collect_stats"`
	Auto            bool    `yaml:"auto" json:"auto"`
}

// DefaultOptions returns the options used when a key is not set.
func DefaultOptions() Options {
	return Options{
		UseCache:        true,
		CheckZero:       true,
		RTol:            3e-16,
		ATol:            3e-16,
		MaxCacheEntries: 3,
	}
}

// Validate checks value ranges.
func (o Options) Validate() error {
	if o.MaxCacheEntries < 0 {
		return fmt.Errorf("max_cache_entries must be non-negative; got %d", o.MaxCacheEntries)
	}
	if !validTolerance(o.RTol) || !validTolerance(o.ATol) {
		return fmt.Errorf("tolerances must be finite and non-negative; got rtol=%g atol=%g", o.RTol, o.ATol)
	}

	return nil
}

func validTolerance(x float64) bool {
	return x >= 0 && !math.IsInf(x, 1)
}

func (o Options) tolerance() Tolerance {
	return Tolerance{RTol: o.RTol, ATol: o.ATol}
}

// OptionsError reports option keys that are not in ValidOptions.
type OptionsError struct {
	// Owner names the system the options were given to. May be empty.
	Owner   string
	Unknown []string
}

func (e *OptionsError) Error() string {
	var b strings.Builder
	if e.Owner != "" {
		b.WriteString(e.Owner)
		b.WriteString(": ")
	}
	fmt.Fprintf(&b, "unrecognized 'rhs_checking' options [%s]. Valid options are [%s].",
		strings.Join(e.Unknown, ", "), strings.Join(ValidOptions, ", "))

	return b.String()
}

func (e *OptionsError) Is(target error) bool {
	return target == ErrUnknownOption
}

// CheckOptions returns an *OptionsError naming every key of opts outside
// ValidOptions, sorted. owner is used as the message prefix.
func CheckOptions(owner string, opts map[string]any) error {
	var unknown []string
	for k := range opts {
		if !slices.Contains(ValidOptions, k) {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)

	return &OptionsError{Owner: owner, Unknown: unknown}
}

// OptionsFromMap checks opts and decodes it on top of DefaultOptions.
func OptionsFromMap(owner string, opts map[string]any) (Options, error) {
	if err := CheckOptions(owner, opts); err != nil {
		return Options{}, err
	}

	raw, err := yaml.Marshal(opts)
	if err != nil {
		return Options{}, fmt.Errorf("cannot encode options: %w", err)
	}

	o := DefaultOptions()
	if err := yaml.Unmarshal(raw, &o); err != nil {
		return Options{}, fmt.Errorf("cannot decode options: %w", err)
	}
	if err := o.Validate(); err != nil {
		return Options{}, err
	}

	return o, nil
}

// LoadOptions reads YAML options from r. The document is either a flat
// mapping of option keys or a mapping with a single "rhs_checking" key
// holding them.
func LoadOptions(owner string, r io.Reader) (Options, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Options{}, fmt.Errorf("cannot read options: %w", err)
	}

	var doc map[string]any
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return Options{}, fmt.Errorf("cannot parse options: %w", err)
	}

	if nested, ok := doc["rhs_checking"]; ok && len(doc) == 1 {
		m, ok := nested.(map[string]any)
		if !ok {
			return Options{}, fmt.Errorf("rhs_checking must be a mapping; got %T", nested)
		}
		doc = m
	}

	return OptionsFromMap(owner, doc)
}

// LoadOptionsFile reads YAML options from the file at path.
func LoadOptionsFile(path string) (Options, error) {
	f, err := os.Open(path)
	if err != nil {
		return Options{}, err
	}
	defer func() {
		_ = f.Close()
	}()

	return LoadOptions(path, f)
}
