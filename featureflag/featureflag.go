package featureflag

import (
	"slices"
	"strings"
)

// FeatureFlag is a lookup map for culling features that are enabled or
// disabled at startup.
type FeatureFlag map[Flag]struct{}

// New returns feature flags initialized with a list of flag names. Names are
// trimmed and upper cased, so "manual_update" sets FlagManualUpdate. Empty
// names are ignored.
func New(flags []string) FeatureFlag {
	featureFlag := make(FeatureFlag)
	for _, f := range flags {
		f = strings.ToUpper(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		featureFlag[Flag(f)] = struct{}{}
	}
	return featureFlag
}

// IsSet reports whether flag is set.
func (f FeatureFlag) IsSet(flag Flag) bool {
	_, ok := f[flag]
	return ok
}

// IfSet runs do if flag is set.
func (f FeatureFlag) IfSet(flag Flag, do func()) {
	if !f.IsSet(flag) {
		return
	}
	do()
}

// IfNotSet runs do if flag is not set.
func (f FeatureFlag) IfNotSet(flag Flag, do func()) {
	if f.IsSet(flag) {
		return
	}
	do()
}

// Unknown returns the sorted names of the set flags that no culling feature
// reads.
func (f FeatureFlag) Unknown() []string {
	var unknown []string
	for flag := range f {
		if !slices.Contains(knownFlags, flag) {
			unknown = append(unknown, string(flag))
		}
	}
	slices.Sort(unknown)
	return unknown
}

// Strings returns the sorted names of the set flags.
func (f FeatureFlag) Strings() []string {
	names := make([]string, 0, len(f))
	for flag := range f {
		names = append(names, string(flag))
	}
	slices.Sort(names)
	return names
}
