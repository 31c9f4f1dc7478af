package state

import (
	"testing"
	"time"

	"github.com/mskgit8695/chatapp-frontend/internal/model"
)

func testMsg(id, chatID, sender string, at time.Time) model.Message {
	return model.Message{
		ID:        id,
		ChatID:    chatID,
		Sender:    sender,
		Text:      "msg " + id,
		Type:      model.MessageText,
		CreatedAt: at,
	}
}

func messageIDs(tl *Timeline) []string {
	var ids []string
	for _, m := range tl.Messages() {
		ids = append(ids, m.ID)
	}
	return ids
}

func TestAppend_DeduplicatesByID(t *testing.T) {
	tl := &Timeline{}
	tl.Reset("c1")
	now := time.Now()

	if !tl.Append(testMsg("m1", "c1", "u1", now)) {
		t.Fatal("first append rejected")
	}
	// the dual-delivery race: confirmation and mirrored push both insert
	if tl.Append(testMsg("m1", "c1", "u1", now)) {
		t.Error("duplicate append accepted")
	}
	if len(tl.Messages()) != 1 {
		t.Fatalf("len = %d, want 1", len(tl.Messages()))
	}
}

func TestAppend_RejectsOtherChat(t *testing.T) {
	tl := &Timeline{}
	tl.Reset("c1")

	if tl.Append(testMsg("m1", "c2", "u1", time.Now())) {
		t.Error("message for another chat accepted")
	}
	if len(tl.Messages()) != 0 {
		t.Errorf("len = %d, want 0", len(tl.Messages()))
	}
}

func TestAppend_KeepsCreationOrder(t *testing.T) {
	tl := &Timeline{}
	tl.Reset("c1")
	base := time.Now()

	// out-of-order confirmation arrival
	tl.Append(testMsg("m2", "c1", "u1", base.Add(2*time.Second)))
	tl.Append(testMsg("m1", "c1", "u1", base.Add(1*time.Second)))
	tl.Append(testMsg("m3", "c1", "u1", base.Add(3*time.Second)))

	got := messageIDs(tl)
	want := []string{"m1", "m2", "m3"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}

	msgs := tl.Messages()
	for i := 1; i < len(msgs); i++ {
		if msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt) {
			t.Fatal("creation order decreased")
		}
	}
}

func TestAppend_EqualTimestampsKeepArrivalOrder(t *testing.T) {
	tl := &Timeline{}
	tl.Reset("c1")
	now := time.Now()

	tl.Append(testMsg("m1", "c1", "u1", now))
	tl.Append(testMsg("m2", "c1", "u1", now))

	got := messageIDs(tl)
	if got[0] != "m1" || got[1] != "m2" {
		t.Errorf("order = %v, want [m1 m2]", got)
	}
}

func TestReplace_SortsByCreatedAt(t *testing.T) {
	tl := &Timeline{}
	tl.Reset("c1")
	base := time.Now()

	tl.Replace([]model.Message{
		testMsg("m3", "c1", "u1", base.Add(3*time.Second)),
		testMsg("m1", "c1", "u1", base.Add(1*time.Second)),
		testMsg("m2", "c1", "u1", base.Add(2*time.Second)),
	})

	got := messageIDs(tl)
	want := []string{"m1", "m2", "m3"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestMarkSeen_AllWhenNoIDList(t *testing.T) {
	tl := &Timeline{}
	tl.Reset("c1")
	base := time.Now()
	tl.Replace([]model.Message{
		testMsg("m1", "c1", me, base),
		testMsg("m2", "c1", me, base.Add(time.Second)),
		testMsg("m3", "c1", "u1", base.Add(2*time.Second)),
	})

	at := time.Now()
	tl.MarkSeen(me, nil, at)

	for _, m := range tl.Messages() {
		if m.Sender == me {
			if !m.Seen || m.SeenAt == nil {
				t.Errorf("message %s not marked seen", m.ID)
			}
		} else if m.Seen {
			t.Errorf("peer message %s marked seen", m.ID)
		}
	}
}

func TestMarkSeen_WithIDList(t *testing.T) {
	tl := &Timeline{}
	tl.Reset("c1")
	base := time.Now()
	tl.Replace([]model.Message{
		testMsg("m1", "c1", me, base),
		testMsg("m2", "c1", me, base.Add(time.Second)),
	})

	tl.MarkSeen(me, []string{"m1"}, time.Now())

	msgs := tl.Messages()
	if !msgs[0].Seen {
		t.Error("m1 should be seen")
	}
	if msgs[1].Seen {
		t.Error("m2 should not be seen")
	}

	// an explicitly empty list marks nothing
	tl.MarkSeen(me, []string{}, time.Now())
	if tl.Messages()[1].Seen {
		t.Error("empty id list should mark nothing")
	}
}

func TestReset_ScopesToNewChat(t *testing.T) {
	tl := &Timeline{}
	tl.Reset("c1")
	tl.Append(testMsg("m1", "c1", "u1", time.Now()))

	tl.Reset("c2")

	if tl.ChatID() != "c2" {
		t.Errorf("chatID = %q, want c2", tl.ChatID())
	}
	if len(tl.Messages()) != 0 {
		t.Errorf("len = %d, want 0", len(tl.Messages()))
	}
}
