package grid

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/miosa/aac-board/apierr"
)

// API is the slice of the backend the store talks to. *client.Client
// satisfies it.
type API interface {
	GetGrid(ctx context.Context) (Categories, error)
	SaveGrid(ctx context.Context, cats Categories) error
	AddItem(ctx context.Context, item Item, parent string) error
	UpdateItem(ctx context.Context, id string, patch Patch) error
	DeleteItem(ctx context.Context, id, categoryTarget string) error
	Correct(ctx context.Context, sentence string) (string, error)
	Conjugate(ctx context.Context, sentence string, baseForms []string, tense Tense) (map[string]string, error)
}

// State is a copy of the store's data. Mutating it has no effect on the
// store.
type State struct {
	Categories    Categories
	Stack         []string
	Text          []TextItem
	Mode          Mode
	Tense         Tense
	PageSize      PageSize
	SessionActive bool
	Loading       bool
	Err           string
}

// CurrentCategory is the key on top of the navigation stack.
func (s State) CurrentCategory() string {
	if len(s.Stack) == 0 {
		return HomeKey
	}
	return s.Stack[len(s.Stack)-1]
}

// CurrentItems returns the items of the current category. A key without
// items yields an empty list.
func (s State) CurrentItems() []Item {
	return s.Categories[s.CurrentCategory()]
}

// VisibleItems is CurrentItems without hidden items, except in editor mode
// where everything is shown.
func (s State) VisibleItems() []Item {
	items := s.CurrentItems()
	if s.Mode == ModeEditor {
		return items
	}
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it.Visible {
			out = append(out, it)
		}
	}
	return out
}

func (s State) clone() State {
	out := s
	out.Categories = s.Categories.Clone()
	out.Stack = append([]string(nil), s.Stack...)
	out.Text = append([]TextItem(nil), s.Text...)
	return out
}

func initialState() State {
	return State{
		Categories: Categories{},
		Stack:      []string{HomeKey},
		Mode:       ModeUser,
		Tense:      TensePresent,
		PageSize:   SizeMedium,
	}
}

// Option configures a Store.
type Option func(*Store)

// WithLogger routes store diagnostics to l.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithIDGenerator replaces the placeholder id generator used for optimistic
// adds and copies.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithInitialRetry sets the attempts and first delay of InitialLoad.
func WithInitialRetry(attempts int, delay time.Duration) Option {
	return func(s *Store) {
		s.retryAttempts = attempts
		s.retryDelay = delay
	}
}

// Store owns the board state. All methods are safe for concurrent use;
// network calls are made without holding the lock.
type Store struct {
	api           API
	log           *slog.Logger
	newID         func() string
	retryAttempts int
	retryDelay    time.Duration

	mu        sync.Mutex
	st        State
	listeners map[int]func(State)
	nextID    int
}

// NewStore creates a store with the initial state: an empty board showing
// home.
func NewStore(api API, opts ...Option) *Store {
	s := &Store{
		api:           api,
		log:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		newID:         uuid.NewString,
		retryAttempts: 3,
		retryDelay:    200 * time.Millisecond,
		st:            initialState(),
		listeners:     make(map[int]func(State)),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.clone()
}

// OnChange registers fn to be called with a fresh State after every change.
// The returned function unregisters it.
func (s *Store) OnChange(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify() {
	s.mu.Lock()
	st := s.st.clone()
	fns := make([]func(State), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(st)
	}
}

func (s *Store) update(fn func(st *State)) {
	s.mu.Lock()
	fn(&s.st)
	s.mu.Unlock()
	s.notify()
}

// Reset drops all board data and returns to the initial state. Listeners
// stay registered.
func (s *Store) Reset() {
	s.update(func(st *State) { *st = initialState() })
}

// SetError records a user-facing error; an empty string clears it.
func (s *Store) SetError(msg string) {
	s.update(func(st *State) { st.Err = msg })
}

// -- Loading --

// LoadGrid replaces the category map with the server's. On failure the
// previous map is kept and the error recorded.
func (s *Store) LoadGrid(ctx context.Context) bool {
	s.update(func(st *State) {
		st.Loading = true
		st.Err = ""
	})
	cats, err := s.api.GetGrid(ctx)
	if err != nil {
		s.log.Warn("load grid failed", "err", err)
		s.update(func(st *State) {
			st.Loading = false
			st.Err = describe("load the grid", err)
		})
		return false
	}
	if cats == nil {
		cats = Categories{}
	}
	if _, ok := cats[HomeKey]; !ok {
		cats[HomeKey] = []Item{}
	}
	s.update(func(st *State) {
		st.Loading = false
		st.Categories = cats
	})
	s.log.Debug("grid loaded", "categories", len(cats))
	return true
}

// InitialLoad is LoadGrid with retries for application start: a fixed
// number of attempts with a doubling delay between them.
func (s *Store) InitialLoad(ctx context.Context) bool {
	delay := s.retryDelay
	for attempt := 1; ; attempt++ {
		if s.LoadGrid(ctx) {
			return true
		}
		if attempt >= s.retryAttempts {
			return false
		}
		s.log.Info("retrying grid load", "attempt", attempt, "delay", delay)
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return false
		case <-t.C:
		}
		delay *= 2
	}
}

// SaveGrid sends the whole category map to the server.
func (s *Store) SaveGrid(ctx context.Context) bool {
	cats := s.State().Categories
	if err := s.api.SaveGrid(ctx, cats); err != nil {
		s.SetError(describe("save the grid", err))
		return false
	}
	return true
}

// -- Navigation --

// NavigateToCategory pushes key. The key is not checked against the map so
// a category still waiting for server confirmation can be opened.
func (s *Store) NavigateToCategory(key string) {
	s.update(func(st *State) { st.Stack = append(st.Stack, key) })
}

// GoBack pops the navigation stack unless only the root is left.
func (s *Store) GoBack() {
	s.update(func(st *State) {
		if len(st.Stack) > 1 {
			st.Stack = st.Stack[:len(st.Stack)-1]
		}
	})
}

// GoHome returns to the root category.
func (s *Store) GoHome() {
	s.update(func(st *State) { st.Stack = st.Stack[:1] })
}

// -- Text bar --

// AddToTextBuffer appends a word.
func (s *Store) AddToTextBuffer(t TextItem) {
	if t.Base == "" {
		t.Base = t.Text
	}
	s.update(func(st *State) { st.Text = append(st.Text, t) })
}

// RemoveFromTextBuffer removes the word at index. Out of range is a no-op.
func (s *Store) RemoveFromTextBuffer(index int) {
	s.update(func(st *State) {
		if index < 0 || index >= len(st.Text) {
			return
		}
		out := make([]TextItem, 0, len(st.Text)-1)
		for i, t := range st.Text {
			if i != index {
				out = append(out, t)
			}
		}
		st.Text = out
	})
}

// RemoveLastWord drops the most recent word.
func (s *Store) RemoveLastWord() {
	s.mu.Lock()
	n := len(s.st.Text)
	s.mu.Unlock()
	s.RemoveFromTextBuffer(n - 1)
}

// ClearTextBuffer empties the text bar.
func (s *Store) ClearTextBuffer() {
	s.update(func(st *State) { st.Text = nil })
}

// -- Settings --

// SetMode switches between user and editor mode. Checking the editor
// password is the caller's job.
func (s *Store) SetMode(m Mode) {
	s.update(func(st *State) { st.Mode = m })
}

// SetPageSize changes the cell size.
func (s *Store) SetPageSize(p PageSize) {
	s.update(func(st *State) { st.PageSize = p })
}

// SetSessionActive flags whether a communication session is running.
func (s *Store) SetSessionActive(active bool) {
	s.update(func(st *State) { st.SessionActive = active })
}

// -- Grid items --

// AddGridItem appends item to parent (the current category when empty)
// before the server confirms it. A missing id or category target gets a
// placeholder; the reload after success brings in the server's values.
func (s *Store) AddGridItem(ctx context.Context, item Item, parent string) bool {
	if strings.TrimSpace(item.Label) == "" {
		s.SetError("Label is required.")
		return false
	}
	if item.ID == "" {
		item.ID = s.newID()
	}
	if c, ok := item.Variant.(Category); ok && c.Target == "" {
		item.Variant = Category{Target: s.newID()}
	}
	ok := runOptimistic(ctx, s, mutation[Categories]{
		action: "add",
		take:   takeAll,
		apply: func(st *State) error {
			if parent == "" {
				parent = st.CurrentCategory()
			}
			st.Categories[parent] = append(st.Categories[parent], item)
			if target, isCat := item.Target(); isCat {
				if _, exists := st.Categories[target]; !exists {
					st.Categories[target] = []Item{}
				}
			}
			return nil
		},
		revert: revertAll,
		commit: func(ctx context.Context) error { return s.api.AddItem(ctx, item, parent) },
	})
	if ok {
		s.LoadGrid(ctx)
	}
	return ok
}

type itemSnapshot struct {
	item  Item
	found bool
}

// UpdateGridItem patches the item with the given id in place. A rejected
// update restores only that item.
func (s *Store) UpdateGridItem(ctx context.Context, id string, patch Patch) bool {
	ok := runOptimistic(ctx, s, mutation[itemSnapshot]{
		action: "update",
		take: func(st *State) itemSnapshot {
			loc, found := st.Categories.FindItemByID(id)
			return itemSnapshot{item: loc.Item, found: found}
		},
		apply: func(st *State) error {
			loc, found := st.Categories.FindItemByID(id)
			if !found {
				return errItemNotFound
			}
			st.Categories[loc.Parent][loc.Index] = patch.Apply(loc.Item)
			return nil
		},
		revert: func(st *State, snap itemSnapshot) {
			loc, found := st.Categories.FindItemByID(id)
			if !found || !snap.found {
				return
			}
			st.Categories[loc.Parent][loc.Index] = snap.item
		},
		commit: func(ctx context.Context) error { return s.api.UpdateItem(ctx, id, patch) },
	})
	if ok {
		s.LoadGrid(ctx)
	}
	return ok
}

// ToggleVisibility hides a visible item or shows a hidden one.
func (s *Store) ToggleVisibility(ctx context.Context, id string) bool {
	s.mu.Lock()
	loc, found := s.st.Categories.FindItemByID(id)
	s.mu.Unlock()
	if !found {
		s.SetError(string(errItemNotFound))
		return false
	}
	if loc.Item.Visible && !loc.Item.Hideable {
		s.SetError("This item cannot be hidden.")
		return false
	}
	return s.UpdateGridItem(ctx, id, Patch{Visible: Ptr(!loc.Item.Visible)})
}

// DeleteGridItem removes an item and, for a category, the pages under it.
// categoryTarget overrides the target read from the item. Because the change
// spans several categories a rejected delete restores the whole map.
func (s *Store) DeleteGridItem(ctx context.Context, id, categoryTarget string) bool {
	ok := runOptimistic(ctx, s, mutation[Categories]{
		action: "delete",
		take:   takeAll,
		apply: func(st *State) error {
			loc, found := st.Categories.FindItemByID(id)
			if !found {
				return errItemNotFound
			}
			if loc.Item.Kind() == KindSystem {
				return errSystemItem
			}
			if categoryTarget == "" {
				categoryTarget, _ = loc.Item.Target()
			}
			st.Categories[loc.Parent] = removeAt(st.Categories[loc.Parent], loc.Index)
			if categoryTarget != "" && categoryTarget != HomeKey {
				st.Categories.RemoveSubtree(categoryTarget)
			}
			return nil
		},
		revert: revertAll,
		commit: func(ctx context.Context) error { return s.api.DeleteItem(ctx, id, categoryTarget) },
	})
	if ok {
		s.LoadGrid(ctx)
	}
	return ok
}

type sliceSnapshot struct {
	key   string
	items []Item
}

// MoveItem reorders the current category: the dragged item is taken out and
// reinserted at the index the target had before the removal. Dragging onto
// the next item therefore swaps the two. Unknown ids are a no-op. The new
// order is persisted by saving the whole map.
func (s *Store) MoveItem(ctx context.Context, draggedID, targetID string) bool {
	if draggedID == targetID {
		return false
	}
	s.mu.Lock()
	items := s.st.CurrentItems()
	from, to := indexOf(items, draggedID), indexOf(items, targetID)
	s.mu.Unlock()
	if from < 0 || to < 0 {
		return false
	}
	var saved Categories
	return runOptimistic(ctx, s, mutation[sliceSnapshot]{
		action: "reorder",
		take: func(st *State) sliceSnapshot {
			key := st.CurrentCategory()
			return sliceSnapshot{key: key, items: append([]Item(nil), st.Categories[key]...)}
		},
		apply: func(st *State) error {
			key := st.CurrentCategory()
			items := st.Categories[key]
			from, to := indexOf(items, draggedID), indexOf(items, targetID)
			if from < 0 || to < 0 {
				return errItemNotFound
			}
			dragged := items[from]
			st.Categories[key] = insertAt(removeAt(items, from), to, dragged)
			saved = st.Categories.Clone()
			return nil
		},
		revert: func(st *State, snap sliceSnapshot) { st.Categories[snap.key] = snap.items },
		commit: func(ctx context.Context) error { return s.api.SaveGrid(ctx, saved) },
	})
}

// CopyToCategory appends a copy of the item, with a new id, to targetKey.
func (s *Store) CopyToCategory(ctx context.Context, id, targetKey string) bool {
	return s.relocate(ctx, "copy", id, targetKey, false)
}

// MoveToCategory moves the item from its category to the end of targetKey.
func (s *Store) MoveToCategory(ctx context.Context, id, targetKey string) bool {
	return s.relocate(ctx, "move", id, targetKey, true)
}

func (s *Store) relocate(ctx context.Context, action, id, targetKey string, removeSource bool) bool {
	var saved Categories
	return runOptimistic(ctx, s, mutation[Categories]{
		action: action,
		take:   takeAll,
		apply: func(st *State) error {
			loc, found := st.Categories.FindItemByID(id)
			if !found {
				return errItemNotFound
			}
			if loc.Item.Kind() == KindSystem {
				return errSystemItem
			}
			if t, ok := loc.Item.Target(); ok && (t == targetKey || isDescendant(st.Categories, t, targetKey)) {
				return errCategoryCycle
			}
			if _, ok := st.Categories[targetKey]; !ok {
				return errUnknownCategory
			}
			it := loc.Item
			if removeSource {
				if loc.Parent == targetKey {
					return nil
				}
				st.Categories[loc.Parent] = removeAt(st.Categories[loc.Parent], loc.Index)
			} else {
				it.ID = s.newID()
			}
			st.Categories[targetKey] = append(st.Categories[targetKey], it)
			saved = st.Categories.Clone()
			return nil
		},
		revert: revertAll,
		commit: func(ctx context.Context) error {
			if saved == nil {
				return nil
			}
			return s.api.SaveGrid(ctx, saved)
		},
	})
}

// isDescendant reports whether key lies in the subtree under root.
func isDescendant(c Categories, root, key string) bool {
	seen := map[string]bool{}
	var walk func(k string) bool
	walk = func(k string) bool {
		if seen[k] {
			return false
		}
		seen[k] = true
		for _, it := range c[k] {
			if t, ok := it.Target(); ok {
				if t == key || walk(t) {
					return true
				}
			}
		}
		return false
	}
	return walk(root)
}

// -- AI text services --

// SetTense changes the tense. With words in the text bar the backend
// conjugates them from their base forms; a word the backend does not return
// keeps its text. On failure the tense and the text are left unchanged.
func (s *Store) SetTense(ctx context.Context, t Tense) bool {
	s.mu.Lock()
	buf := append([]TextItem(nil), s.st.Text...)
	s.mu.Unlock()

	bases := conjugableBases(buf)
	if len(buf) == 0 || len(bases) == 0 {
		s.update(func(st *State) { st.Tense = t })
		return true
	}
	forms, err := s.api.Conjugate(ctx, Sentence(buf), bases, t)
	if err != nil {
		s.log.Warn("conjugate failed", "tense", t, "err", err)
		s.SetError(describe("conjugate the text", err))
		return false
	}
	s.update(func(st *State) {
		st.Text = conjugate(st.Text, forms)
		st.Tense = t
		st.Err = ""
	})
	return true
}

// CorrectText replaces the text bar with the backend's corrected sentence.
func (s *Store) CorrectText(ctx context.Context) bool {
	s.mu.Lock()
	sentence := Sentence(s.st.Text)
	s.mu.Unlock()
	if sentence == "" {
		return true
	}
	corrected, err := s.api.Correct(ctx, sentence)
	if err != nil {
		s.SetError(describe("correct the text", err))
		return false
	}
	if corrected == "" {
		return true
	}
	s.update(func(st *State) {
		st.Text = []TextItem{{Text: corrected, Speak: corrected, Base: corrected}}
		st.Err = ""
	})
	return true
}

// -- Persistence hooks --

// Prefs is the part of the state kept across restarts.
type Prefs struct {
	Tense      Tense      `json:"tense"`
	PageSize   PageSize   `json:"page_size"`
	Mode       Mode       `json:"mode"`
	Categories Categories `json:"categories,omitempty"`
}

// Prefs returns the persisted subset of the state.
func (s *Store) Prefs() Prefs {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Prefs{
		Tense:      s.st.Tense,
		PageSize:   s.st.PageSize,
		Mode:       s.st.Mode,
		Categories: s.st.Categories.Clone(),
	}
}

// RestorePrefs applies previously persisted values. Empty fields keep their
// current value.
func (s *Store) RestorePrefs(p Prefs) {
	s.update(func(st *State) {
		if p.Tense != "" {
			st.Tense = p.Tense
		}
		if p.PageSize != "" {
			st.PageSize = p.PageSize
		}
		if p.Mode != "" {
			st.Mode = p.Mode
		}
		if len(p.Categories) > 0 {
			st.Categories = p.Categories.Clone()
		}
	})
}

// -- Errors --

type userError string

func (e userError) Error() string { return string(e) }

const (
	errItemNotFound    userError = "Item not found. It may have been deleted."
	errSystemItem      userError = "System controls cannot be moved, copied or deleted."
	errCategoryCycle   userError = "A category cannot be placed inside itself."
	errUnknownCategory userError = "Destination category does not exist."
)

// describe turns a failure into the message shown to the user.
func describe(action string, err error) string {
	var ue userError
	switch {
	case errors.As(err, &ue):
		return string(ue)
	case errors.Is(err, apierr.ErrSessionExpired), errors.Is(err, apierr.ErrUnauthorized):
		return "Authentication required. Please login again."
	case errors.Is(err, apierr.ErrForbidden):
		return fmt.Sprintf("Permission denied. You need admin or editor role to %s.", actionTarget(action))
	case errors.Is(err, apierr.ErrNotFound):
		return string(errItemNotFound)
	case errors.Is(err, apierr.ErrNetwork):
		return fmt.Sprintf("Network error while trying to %s. Please check your connection.", actionTarget(action))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("Timed out while trying to %s.", actionTarget(action))
	}
	if msg := apierr.Message(err); msg != "" {
		return msg
	}
	return fmt.Sprintf("Failed to %s.", actionTarget(action))
}

func actionTarget(action string) string {
	switch action {
	case "add", "update", "delete", "copy", "move", "reorder":
		return action + " items"
	}
	return action
}
