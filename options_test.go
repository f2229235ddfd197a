package rhscache

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckOptions(t *testing.T) {
	assert.NoError(t, CheckOptions("model", map[string]any{
		"use_cache": true, "check_zero": false, "rtol": 1e-10, "atol": 1e-10,
		"max_cache_entries": 4, "collect_stats": true, "auto": true,
	}))
	assert.NoError(t, CheckOptions("model", nil))

	err := CheckOptions("model.sub", map[string]any{"bad_key": 1, "another": 2, "rtol": 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownOption)
	assert.Contains(t, err.Error(), "bad_key")
	assert.Contains(t, err.Error(), "model.sub: ")

	var oerr *OptionsError
	require.True(t, errors.As(err, &oerr))
	assert.Equal(t, []string{"another", "bad_key"}, oerr.Unknown)
	for _, k := range ValidOptions {
		assert.Contains(t, err.Error(), k)
	}
}

func TestOptionsFromMap(t *testing.T) {
	o, err := OptionsFromMap("", map[string]any{"max_cache_entries": 7, "rtol": 0})
	require.NoError(t, err)

	want := DefaultOptions()
	want.MaxCacheEntries = 7
	want.RTol = 0
	assert.Equal(t, want, o)

	_, err = OptionsFromMap("", map[string]any{"max_cache_entries": -1})
	assert.Error(t, err)

	_, err = OptionsFromMap("", map[string]any{"bad_key": 1})
	assert.ErrorIs(t, err, ErrUnknownOption)

	_, err = OptionsFromMap("", map[string]any{"rtol": "loose"})
	assert.Error(t, err)
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Options)
		wantErr string
	}{
		{"defaults", func(*Options) {}, ""},
		{"zero tolerances", func(o *Options) { o.RTol, o.ATol = 0, 0 }, ""},
		{"zero capacity", func(o *Options) { o.MaxCacheEntries = 0 }, ""},
		{"negative capacity", func(o *Options) { o.MaxCacheEntries = -1 }, "max_cache_entries"},
		{"negative rtol", func(o *Options) { o.RTol = -1e-12 }, "finite and non-negative"},
		{"NaN rtol", func(o *Options) { o.RTol = math.NaN() }, "finite and non-negative"},
		{"NaN atol", func(o *Options) { o.ATol = math.NaN() }, "finite and non-negative"},
		{"+Inf rtol", func(o *Options) { o.RTol = math.Inf(1) }, "finite and non-negative"},
		{"-Inf atol", func(o *Options) { o.ATol = math.Inf(-1) }, "finite and non-negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := DefaultOptions()
			tt.modify(&o)

			err := o.Validate()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}

	_, err := LoadOptions("model", strings.NewReader("atol: .nan\n"))
	assert.Error(t, err)
}

func TestLoadOptions(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
		check   func(*testing.T, Options)
	}{
		{
			name: "flat",
			doc:  "check_zero: false\natol: 1.0e-9\n",
			check: func(t *testing.T, o Options) {
				assert.False(t, o.CheckZero)
				assert.Equal(t, 1e-9, o.ATol)
				assert.Equal(t, 3, o.MaxCacheEntries)
			},
		},
		{
			name: "nested",
			doc:  "rhs_checking:\n  collect_stats: true\n  max_cache_entries: 0\n",
			check: func(t *testing.T, o Options) {
				assert.True(t, o.CollectStats)
				assert.Equal(t, 0, o.MaxCacheEntries)
			},
		},
		{
			name: "empty",
			doc:  "",
			check: func(t *testing.T, o Options) {
				assert.Equal(t, DefaultOptions(), o)
			},
		},
		{
			name:    "unknown key",
			doc:     "bad_key: 1\n",
			wantErr: true,
		},
		{
			name:    "nested not a mapping",
			doc:     "rhs_checking: 3\n",
			wantErr: true,
		},
		{
			name:    "malformed",
			doc:     "rtol: [1\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := LoadOptions("test", strings.NewReader(tt.doc))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, o)
		})
	}
}

func TestLoadOptionsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bad_key: 1\n"), 0o644))

	_, err := LoadOptionsFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)

	_, err = LoadOptionsFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
