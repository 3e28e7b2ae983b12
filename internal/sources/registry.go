package sources

import (
	"fmt"
	"log/slog"

	"ordermail/internal"
)

// Registry holds the sources in classification order.
type Registry struct {
	order  []string
	byName map[string]*Source
}

// NewRegistry returns every built-in source. Classification tries them in
// this order and stops at the first sender match.
func NewRegistry(log *slog.Logger) *Registry {
	r := &Registry{byName: map[string]*Source{}}
	for _, src := range []*Source{
		footlocker(),
		champs(),
		dicks(),
		hibbett(),
		finishline(),
		shoepalace(),
		shopsimon(),
		snipes(),
		prepworx(),
	} {
		src.Log = log
		r.order = append(r.order, src.Name)
		r.byName[src.Name] = src
	}
	return r
}

func (r *Registry) Get(name string) (*Source, error) {
	src, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", internal.ErrUnknownSource, name)
	}
	return src, nil
}

func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

func (r *Registry) All() []*Source {
	out := make([]*Source, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

func (r *Registry) remove(name string) {
	delete(r.byName, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

// Classify returns the first source whose sender rules claim doc. The
// error is ErrNotMine when nobody claims it and ErrNotConfirmation when
// the claiming source rejects the subject.
func (r *Registry) Classify(doc internal.Document) (*Source, error) {
	for _, src := range r.All() {
		if !src.Claims(doc) {
			continue
		}
		if !src.IsConfirmation(doc) {
			return src, fmt.Errorf("%s: %w", src.Name, internal.ErrNotConfirmation)
		}
		return src, nil
	}
	return nil, internal.ErrNotMine
}
