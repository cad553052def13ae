// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source loads books and annotations for a run. Two readers exist: a
// YAML/JSON records file and the Apple Books sqlite databases.
package source

import (
	"context"
	"fmt"

	"github.com/pdiddy/marginalia/pkg/types"
)

// Reader loads the full record set. Every returned annotation belongs to a
// book in the same result.
type Reader interface {
	Load(ctx context.Context) ([]types.Entry, error)
}

// New returns the reader selected by cfg.
func New(cfg types.SourceConfig) (Reader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	switch cfg.Kind {
	case types.SourceAppleBooks:
		return &AppleBooks{Dir: cfg.Path}, nil
	default:
		return &File{Path: cfg.Path}, nil
	}
}
