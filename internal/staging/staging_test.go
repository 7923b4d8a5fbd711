package staging

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/fan-ledger/constants"
	"github.com/joseph-ayodele/fan-ledger/internal/common"
	"github.com/joseph-ayodele/fan-ledger/internal/extract"
)

func TestAggregateMaxWins(t *testing.T) {
	in := []extract.Entry{
		{Nickname: "A", FanCount: 100},
		{Nickname: "B", FanCount: 300},
		{Nickname: "A", FanCount: 250},
		{Nickname: "C", FanCount: 300},
	}
	got := Aggregate(in)
	want := []extract.Entry{{Nickname: "B", FanCount: 300}, {Nickname: "C", FanCount: 300}, {Nickname: "A", FanCount: 250}}
	if len(got) != len(want) {
		t.Fatalf("Aggregate = %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("row %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if in[0].FanCount != 100 {
		t.Fatal("input was mutated")
	}
}

func TestAggregateOrderIndependent(t *testing.T) {
	a := Aggregate([]extract.Entry{{Nickname: "X", FanCount: 1}, {Nickname: "Y", FanCount: 5}, {Nickname: "X", FanCount: 9}})
	b := Aggregate([]extract.Entry{{Nickname: "X", FanCount: 9}, {Nickname: "X", FanCount: 1}, {Nickname: "Y", FanCount: 5}})
	if len(a) != len(b) {
		t.Fatalf("%+v vs %+v", a, b)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("%+v vs %+v", a, b)
		}
	}
}

func TestReviewRoundTripAndRules(t *testing.T) {
	sess := NewSession([]extract.Entry{{Nickname: "별빛", FanCount: 1200}, {Nickname: "별빛", FanCount: 900}}, time.Now())
	var buf bytes.Buffer
	if err := WriteReview(&buf, sess); err != nil {
		t.Fatalf("WriteReview: %v", err)
	}
	rv, err := ReadReview(&buf)
	if err != nil {
		t.Fatalf("ReadReview: %v", err)
	}
	if rv.SessionID != sess.ID.String() || len(rv.Entries) != 1 || rv.Entries[0].FanCount != 1200 {
		t.Fatalf("review = %+v", rv)
	}

	bad := []struct {
		name string
		body string
	}{
		{"negative", `{"entries":[{"nickname":"a","fan_count":-1}]}`},
		{"fraction", `{"entries":[{"nickname":"a","fan_count":1.5}]}`},
		{"blank name", `{"entries":[{"nickname":"  ","fan_count":1}]}`},
		{"missing entries", `{"session_id":"x"}`},
		{"extra field", `{"entries":[{"nickname":"a","fan_count":1,"rank":2}]}`},
		{"not json", `nope`},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadReview(strings.NewReader(tt.body))
			if !errors.Is(err, common.ErrValidation) {
				t.Fatalf("err = %v, want validation error", err)
			}
		})
	}
}

func TestReviewEditedDuplicatesReaggregate(t *testing.T) {
	rv, err := ReadReview(strings.NewReader(`{"entries":[
		{"nickname":" kim ","fan_count":5},
		{"nickname":"kim","fan_count":7}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(rv.Entries) != 1 || rv.Entries[0] != (extract.Entry{Nickname: "kim", FanCount: 7}) {
		t.Fatalf("entries = %+v", rv.Entries)
	}
}

func TestSessionsLifecycle(t *testing.T) {
	store := NewSessions(2)
	s1 := NewSession([]extract.Entry{{Nickname: "a", FanCount: 1}}, time.Unix(100, 0))
	store.Put(s1)

	got, err := store.Get(s1.ID)
	if err != nil || got.Status != constants.SessionStaged {
		t.Fatalf("Get = %+v, %v", got, err)
	}

	entries, err := store.Claim(s1.ID, []extract.Entry{{Nickname: "b", FanCount: 2}})
	if err != nil || len(entries) != 1 || entries[0].Nickname != "b" {
		t.Fatalf("Claim = %+v, %v", entries, err)
	}
	if _, err := store.Claim(s1.ID, nil); !errors.Is(err, common.ErrConflict) {
		t.Fatalf("second claim err = %v", err)
	}
	store.Release(s1.ID)
	if _, err := store.Claim(s1.ID, nil); err != nil {
		t.Fatalf("claim after release: %v", err)
	}
	if err := store.Cancel(s1.ID); !errors.Is(err, common.ErrConflict) {
		t.Fatalf("cancel committed err = %v", err)
	}
	if _, err := store.Get(uuid.New()); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("unknown session err = %v", err)
	}
}

func TestSessionsEvictOldest(t *testing.T) {
	store := NewSessions(2)
	oldest := NewSession(nil, time.Unix(1, 0))
	store.Put(oldest)
	store.Put(NewSession(nil, time.Unix(2, 0)))
	store.Put(NewSession(nil, time.Unix(3, 0)))
	if store.Len() != 2 {
		t.Fatalf("len = %d", store.Len())
	}
	if _, err := store.Get(oldest.ID); !errors.Is(err, common.ErrNotFound) {
		t.Fatal("oldest session should have been evicted")
	}
}

func TestCancelClearsEntries(t *testing.T) {
	store := NewSessions(0)
	s := NewSession([]extract.Entry{{Nickname: "a", FanCount: 1}}, time.Now())
	store.Put(s)
	if err := store.Cancel(s.ID); err != nil {
		t.Fatal(err)
	}
	got, _ := store.Get(s.ID)
	if got.Status != constants.SessionCancelled || got.Entries != nil {
		t.Fatalf("cancelled session = %+v", got)
	}
	if _, err := store.Claim(s.ID, nil); !errors.Is(err, common.ErrConflict) {
		t.Fatalf("claim cancelled err = %v", err)
	}
}
