// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// ErrGroupNotFound is matched by every *GroupNotFoundError.
var ErrGroupNotFound = errors.New("template group not found")

// ConfigError reports a template whose configuration block is missing,
// malformed or invalid. The template is skipped; other templates are not
// affected.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("template %s: invalid configuration: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// GroupNotFoundError reports requested groups that no template declares.
type GroupNotFoundError struct {
	Missing   []string
	Available []string
}

func (e *GroupNotFoundError) Error() string {
	return fmt.Sprintf("template group not found: %s (available: %s)",
		strings.Join(e.Missing, ", "), strings.Join(e.Available, ", "))
}

func (e *GroupNotFoundError) Is(target error) bool { return target == ErrGroupNotFound }
