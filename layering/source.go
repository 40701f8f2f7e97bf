package layering

import (
	"slices"
	"strings"
)

// Source identifies where a configuration snapshot came from. Higher values
// win when layers are merged.
type Source int

const (
	SourceUnknown Source = iota
	SourceDefaults
	SourceFile
	SourceEnv
	SourceFlags
)

// ParseSource maps a textual source name onto a Source.
func ParseSource(value string) Source {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "default", "defaults":
		return SourceDefaults
	case "file", "yaml":
		return SourceFile
	case "env", "environment":
		return SourceEnv
	case "flag", "flags":
		return SourceFlags
	default:
		return SourceUnknown
	}
}

func (s Source) String() string {
	switch s {
	case SourceDefaults:
		return "defaults"
	case SourceFile:
		return "file"
	case SourceEnv:
		return "env"
	case SourceFlags:
		return "flags"
	default:
		return "unknown"
	}
}

// Layer pairs a snapshot with the source that produced it.
type Layer[T any] struct {
	Source   Source
	Snapshot T
}

// Chain holds layers ordered from strongest to weakest.
type Chain[T any] struct {
	ordered []Layer[T]
}

// NewChain orders layers by source precedence. Unknown sources are dropped
// and a later layer replaces an earlier one from the same source.
func NewChain[T any](layers ...Layer[T]) Chain[T] {
	filtered := make([]Layer[T], 0, len(layers))
	index := map[Source]int{}
	for _, layer := range layers {
		if layer.Source == SourceUnknown {
			continue
		}
		if at, exists := index[layer.Source]; exists {
			filtered[at] = layer
			continue
		}
		index[layer.Source] = len(filtered)
		filtered = append(filtered, layer)
	}

	slices.SortStableFunc(filtered, func(a, b Layer[T]) int {
		switch {
		case a.Source == b.Source:
			return 0
		case a.Source > b.Source:
			return -1
		default:
			return 1
		}
	})
	return Chain[T]{ordered: filtered}
}

// Sources lists the chain from strongest to weakest.
func (c Chain[T]) Sources() []Source {
	out := make([]Source, len(c.ordered))
	for i, layer := range c.ordered {
		out[i] = layer.Source
	}
	return out
}

// Resolve merges the chain into a single snapshot.
func (c Chain[T]) Resolve() T {
	snapshots := make([]T, len(c.ordered))
	for i, layer := range c.ordered {
		snapshots[i] = Clone(layer.Snapshot)
	}
	return MergeLayers(snapshots...)
}

// Provenance reports, for every top-level field name set by any layer, the
// strongest source that set it. Fields left nil or zero in every layer are
// absent from the result.
func (c Chain[T]) Provenance() map[string]Source {
	out := map[string]Source{}
	for i := len(c.ordered) - 1; i >= 0; i-- {
		for _, name := range setFields(c.ordered[i].Snapshot) {
			out[name] = c.ordered[i].Source
		}
	}
	return out
}
