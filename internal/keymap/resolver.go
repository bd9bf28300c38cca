package keymap

import (
	"slices"
	"strings"
)

// Resolver maps key strings to actions and lists bindings for help.
type Resolver struct {
	actions map[string]Action
	keys    map[Action][]string
	order   []Action
	desc    map[Action]string
}

// NewResolver indexes bindings. When a key is bound twice the later binding
// wins; help keeps the order in which actions first appear.
func NewResolver(bindings []Binding) *Resolver {
	r := &Resolver{
		actions: make(map[string]Action),
		keys:    make(map[Action][]string),
		desc:    make(map[Action]string),
	}
	for _, b := range bindings {
		if _, seen := r.keys[b.Action]; !seen {
			r.order = append(r.order, b.Action)
			r.desc[b.Action] = b.Description
		}
		for _, key := range b.Keys {
			r.actions[key] = b.Action
			if !slices.Contains(r.keys[b.Action], key) {
				r.keys[b.Action] = append(r.keys[b.Action], key)
			}
		}
	}
	return r
}

// Resolve returns the action bound to key, or "" when unbound.
func (r *Resolver) Resolve(key string) Action {
	return r.actions[key]
}

// KeysFor returns the keys bound to action, nil when none.
func (r *Resolver) KeysFor(action Action) []string {
	return r.keys[action]
}

// Help returns one "keys description" entry per action.
func (r *Resolver) Help() []string {
	entries := make([]string, 0, len(r.order))
	for _, action := range r.order {
		entries = append(entries, strings.Join(r.keys[action], "/")+" "+r.desc[action])
	}
	return entries
}
