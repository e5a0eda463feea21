package suggest

import (
	"context"
	"errors"
	"testing"

	"github.com/shopscope/shopscope/internal/repository/history"
)

type fakeRemote struct {
	suggestions []string
	err         error
	called      bool
}

func (f *fakeRemote) Suggestions(context.Context, string, int) ([]string, error) {
	f.called = true
	return f.suggestions, f.err
}

type fakeHistory struct {
	entries []history.Entry
	err     error
}

func (f *fakeHistory) Recent(context.Context, int) ([]history.Entry, error) {
	return f.entries, f.err
}

func texts(in []Suggestion) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = s.Text
	}
	return out
}

func TestSuggest_RemoteFirstThenHistoryThenTrending(t *testing.T) {
	svc := New(
		&fakeRemote{suggestions: []string{"wireless earbuds"}},
		&fakeHistory{entries: []history.Entry{{Query: "wireless charger"}}},
		[]string{"wireless headphones"},
		10,
	)

	got, err := svc.Suggest(context.Background(), "wireless", 10)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	want := []string{"wireless earbuds", "wireless charger", "wireless headphones"}
	if len(got) != len(want) {
		t.Fatalf("got %v", texts(got))
	}
	for i, w := range want {
		if got[i].Text != w {
			t.Errorf("position %d: got %q, want %q", i, got[i].Text, w)
		}
	}
	if got[0].Source != SourceRemote || got[1].Source != SourceHistory || got[2].Source != SourceTrending {
		t.Errorf("sources wrong: %+v", got)
	}
}

func TestSuggest_DeDupExactText(t *testing.T) {
	svc := New(
		&fakeRemote{suggestions: []string{"wireless headphones"}},
		&fakeHistory{entries: []history.Entry{{Query: "Wireless Headphones"}}},
		[]string{"wireless headphones"},
		10,
	)

	got, _ := svc.Suggest(context.Background(), "wireless", 10)
	if len(got) != 1 {
		t.Fatalf("duplicates must collapse, got %v", texts(got))
	}
	if got[0].Source != SourceRemote {
		t.Errorf("remote wins the duplicate, got %v", got[0].Source)
	}
}

func TestSuggest_HistoryCollapsesToMostRecent(t *testing.T) {
	svc := New(nil, &fakeHistory{entries: []history.Entry{
		{Query: "headphones", ResultCount: 5},
		{Query: "headphones", ResultCount: 2},
		{Query: "headphone stand"},
	}}, nil, 10)

	got, _ := svc.Suggest(context.Background(), "headphone", 10)
	if len(got) != 2 {
		t.Fatalf("repeated queries must collapse, got %v", texts(got))
	}
}

func TestSuggest_RemoteFailureDegrades(t *testing.T) {
	svc := New(
		&fakeRemote{err: errors.New("upstream down")},
		&fakeHistory{entries: []history.Entry{{Query: "coffee grinder"}}},
		nil, 10,
	)

	got, err := svc.Suggest(context.Background(), "coffee", 10)
	if err != nil {
		t.Fatalf("remote failure must not fail the call: %v", err)
	}
	// history hit plus the built-in "coffee maker" trending term
	if len(got) != 2 {
		t.Errorf("got %v", texts(got))
	}
}

func TestSuggest_EmptyPrefix(t *testing.T) {
	remote := &fakeRemote{}
	svc := New(remote, nil, nil, 10)

	got, err := svc.Suggest(context.Background(), "   ", 10)
	if err != nil || got != nil {
		t.Errorf("blank prefix yields nothing, got %v, %v", got, err)
	}
	if remote.called {
		t.Error("blank prefix must not hit the upstream")
	}
}

func TestSuggest_LimitApplied(t *testing.T) {
	svc := New(&fakeRemote{suggestions: []string{"a1", "a2", "a3"}}, nil, []string{"a4"}, 10)
	got, _ := svc.Suggest(context.Background(), "a", 2)
	if len(got) != 2 {
		t.Errorf("limit not applied, got %v", texts(got))
	}
}
