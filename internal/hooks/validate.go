package hooks

import (
	"fmt"
	"log/slog"
)

// Validate checks a hook declaration against the registry. It returns an
// error describing the first problem found; callers drop invalid hooks with
// a warning rather than failing the build.
func Validate(h Hook, reg *Registry) error {
	if h.Name == "" {
		return fmt.Errorf("hook on point %q has no name", h.Point)
	}
	if h.Run == nil {
		return fmt.Errorf("hook %q has no run function", h.Name)
	}
	if _, ok := reg.Lookup(h.Point); !ok {
		return fmt.Errorf("hook %q targets unknown hook point %q", h.Name, h.Point)
	}
	return nil
}

// FilterValid validates a hook list as a whole and applies the disable-list.
// Invalid hooks are dropped with a logged warning. Order is preserved.
func FilterValid(list []Hook, reg *Registry, disabled []string) []Hook {
	off := make(map[string]bool, len(disabled))
	for _, name := range disabled {
		off[name] = true
	}

	valid := make([]Hook, 0, len(list))
	for _, h := range list {
		if err := Validate(h, reg); err != nil {
			slog.Warn("Dropping invalid hook", "error", err, "added_by", h.Meta.String())
			continue
		}
		if off[h.Name] {
			slog.Debug("Hook disabled by configuration", "hook", h.Name, "point", h.Point)
			continue
		}
		valid = append(valid, h)
	}
	return valid
}
