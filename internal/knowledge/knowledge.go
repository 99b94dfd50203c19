// Package knowledge holds the helpdesk knowledge-base text injected into every
// generation call's instruction preamble.
package knowledge

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"
)

// Base is an immutable snapshot of the knowledge-base file. Reload swaps the
// snapshot atomically; readers never observe a partial update.
type Base struct {
	path string
	text atomic.Value // string
}

// Load reads the knowledge-base file at path. A missing file is not fatal:
// the base starts empty and can be filled by a later reload.
func Load(path string) (*Base, error) {
	b := &Base{path: path}
	b.text.Store("")
	if err := b.Reload(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return b, nil
		}
		return nil, err
	}
	return b, nil
}

// Reload re-reads the file and swaps the snapshot. On error the previous
// snapshot is kept.
func (b *Base) Reload() error {
	data, err := os.ReadFile(b.path)
	if err != nil {
		return fmt.Errorf("load knowledge base %s: %w", b.path, err)
	}
	b.text.Store(string(data))
	return nil
}

// Text returns the current snapshot.
func (b *Base) Text() string {
	s, _ := b.text.Load().(string)
	return s
}

// Loaded reports whether any knowledge text is present.
func (b *Base) Loaded() bool {
	return b.Text() != ""
}
