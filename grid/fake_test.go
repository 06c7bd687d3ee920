package grid

import (
	"context"
	"fmt"
	"sync"
)

// fakeAPI is an in-memory backend. Setting an err field makes the matching
// call fail; server holds what GetGrid returns.
type fakeAPI struct {
	mu     sync.Mutex
	server Categories

	getErr, saveErr, addErr, updateErr, deleteErr error
	correctErr, conjugateErr                      error

	forms     map[string]string
	corrected string

	// onAdd runs while AddItem is in flight.
	onAdd  func()
	nextID int

	saved      []Categories
	added      []Item
	deleted    []string
	conjugated [][]string
	getCalls   int
}

func (f *fakeAPI) GetGrid(context.Context) (Categories, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.server.Clone(), nil
}

func (f *fakeAPI) SaveGrid(_ context.Context, cats Categories) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, cats.Clone())
	f.server = cats.Clone()
	return nil
}

func (f *fakeAPI) AddItem(_ context.Context, item Item, parent string) error {
	if f.onAdd != nil {
		f.onAdd()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	f.added = append(f.added, item)
	f.nextID++
	item.ID = fmt.Sprintf("srv-%d", f.nextID)
	if f.server == nil {
		f.server = Categories{}
	}
	f.server[parent] = append(f.server[parent], item)
	if t, ok := item.Target(); ok {
		f.server[t] = []Item{}
	}
	return nil
}

func (f *fakeAPI) UpdateItem(context.Context, string, Patch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updateErr
}

func (f *fakeAPI) DeleteItem(_ context.Context, id, target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id+":"+target)
	return nil
}

func (f *fakeAPI) Correct(context.Context, string) (string, error) {
	if f.correctErr != nil {
		return "", f.correctErr
	}
	return f.corrected, nil
}

func (f *fakeAPI) Conjugate(_ context.Context, _ string, bases []string, _ Tense) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conjugated = append(f.conjugated, bases)
	if f.conjugateErr != nil {
		return nil, f.conjugateErr
	}
	return f.forms, nil
}

func sym(id, label string) Item {
	it := NewSymbol(label, "", "", SymbolNoun)
	it.ID = id
	return it
}

func cat(id, label, target string) Item {
	it := NewCategory(label, target)
	it.ID = id
	return it
}

func ids(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

// loaded returns a store whose local map matches the fake server.
func loaded(t interface {
	Helper()
	Fatal(...any)
}, api *fakeAPI, opts ...Option) *Store {
	s := NewStore(api, opts...)
	t.Helper()
	if !s.LoadGrid(context.Background()) {
		t.Fatal("initial load failed")
	}
	return s
}
