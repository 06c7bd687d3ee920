package grid

import (
	"fmt"
	"reflect"
	"testing"

	"pgregory.net/rapid"
)

func TestProperty_NavigationStackNeverEmpties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := NewStore(&fakeAPI{})
		pushes := rapid.IntRange(0, 10).Draw(t, "pushes")
		for i := 0; i < pushes; i++ {
			s.NavigateToCategory(fmt.Sprintf("c%d", i))
		}
		pops := rapid.IntRange(0, 20).Draw(t, "pops")
		for i := 0; i < pops; i++ {
			s.GoBack()
			if len(s.State().Stack) < 1 {
				t.Fatal("stack emptied")
			}
		}
		if pops >= pushes {
			if got := s.State().Stack; !reflect.DeepEqual(got, []string{HomeKey}) {
				t.Fatalf("want [home], got %v", got)
			}
		} else if n := len(s.State().Stack); n != 1+pushes-pops {
			t.Fatalf("want depth %d, got %d", 1+pushes-pops, n)
		}
	})
}

func TestProperty_AdjacentReorderRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(2, 8).Draw(t, "n")
		items := make([]Item, n)
		for i := range items {
			items[i] = sym(fmt.Sprintf("i%d", i), fmt.Sprintf("Item %d", i))
		}
		s := loaded(t, &fakeAPI{server: Categories{HomeKey: items}})
		before := ids(s.State().CurrentItems())

		i := rapid.IntRange(0, n-2).Draw(t, "i")
		a, b := before[i], before[i+1]
		s.MoveItem(ctx, a, b)
		s.MoveItem(ctx, b, a)

		if got := ids(s.State().CurrentItems()); !reflect.DeepEqual(got, before) {
			t.Fatalf("want %v, got %v", before, got)
		}
	})
}

func TestProperty_MovePermutes(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(t, "n")
		items := make([]Item, n)
		for i := range items {
			items[i] = sym(fmt.Sprintf("i%d", i), "x")
		}
		s := loaded(t, &fakeAPI{server: Categories{HomeKey: items}})
		from := rapid.IntRange(0, n-1).Draw(t, "from")
		to := rapid.IntRange(0, n-1).Draw(t, "to")
		s.MoveItem(ctx, items[from].ID, items[to].ID)

		got := s.State().CurrentItems()
		if len(got) != n {
			t.Fatalf("want %d items, got %d", n, len(got))
		}
		if got[to].ID != items[from].ID {
			t.Fatalf("want dragged item at index %d, got %v", to, ids(got))
		}
	})
}

func TestProperty_FailedAddLeavesMapUnchanged(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 5).Draw(t, "n")
		items := make([]Item, n)
		for i := range items {
			items[i] = sym(fmt.Sprintf("i%d", i), "x")
		}
		api := &fakeAPI{server: Categories{HomeKey: items}}
		s := loaded(t, api)
		before := s.State().Categories
		api.addErr = fmt.Errorf("rejected")

		asCategory := rapid.Bool().Draw(t, "category")
		item := sym("", "New")
		if asCategory {
			item = NewCategory("New", "")
		}
		if s.AddGridItem(ctx, item, HomeKey) {
			t.Fatal("want failure")
		}
		if !reflect.DeepEqual(s.State().Categories, before) {
			t.Fatalf("map changed after rollback")
		}
	})
}
