// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package process

import "github.com/pdiddy/marginalia/pkg/types"

// Post applies the enabled post-process transformations to rendered text:
// block trimming first, then wrapping.
func Post(text string, cfg types.PostProcessConfig) string {
	if cfg.TrimBlocks {
		text = TrimBlocks(text)
	}
	if cfg.WrapText > 0 {
		text = WrapText(text, cfg.WrapText)
	}
	return text
}
