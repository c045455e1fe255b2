package route

import (
	"spatial-search-be/internal/entity"
)

// Route binds one dataset collection to the embedded utterances used to
// recognize requests for it.
type Route struct {
	Collection *entity.Collection
	Vectors    [][]float32
}

// Table is an immutable set of routes. Rebuilds produce a fresh table
// that is swapped into the classifier atomically.
type Table struct {
	routes []Route
	byName map[string]*entity.Collection
}

func NewTable(routes []Route) *Table {
	byName := make(map[string]*entity.Collection, len(routes))
	for _, r := range routes {
		byName[r.Collection.Name] = r.Collection
	}
	return &Table{
		routes: routes,
		byName: byName,
	}
}

func (t *Table) Routes() []Route {
	return t.routes
}

func (t *Table) Lookup(name string) (*entity.Collection, bool) {
	c, ok := t.byName[name]
	return c, ok
}

func (t *Table) Len() int {
	return len(t.routes)
}
