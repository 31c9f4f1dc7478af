package state

import (
	"time"

	"github.com/mskgit8695/chatapp-frontend/internal/model"
)

// Registry is the ordered conversation list, most recent activity first.
// It is not safe for concurrent use on its own; the Engine serializes all
// access under its lock.
type Registry struct {
	entries []model.ChatEntry
}

// Replace installs an authoritative list from the full-registry fetch.
// Incremental operations never replace the list wholesale.
func (r *Registry) Replace(entries []model.ChatEntry) {
	r.entries = append([]model.ChatEntry(nil), entries...)
}

// Entries returns a copy of the current ordering.
func (r *Registry) Entries() []model.ChatEntry {
	return append([]model.ChatEntry(nil), r.entries...)
}

// Len returns the number of known conversations.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Find returns the entry for chatID, if known.
func (r *Registry) Find(chatID string) (model.ChatEntry, bool) {
	for i := range r.entries {
		if r.entries[i].Chat.ID == chatID {
			return r.entries[i], true
		}
	}
	return model.ChatEntry{}, false
}

// UpsertAndPromote merges preview and a fresh timestamp into the entry for
// chatID and moves it to the front. The unseen counter grows only when
// incrementUnseen is set and the sender is not localUser. Unknown chat ids
// are a silent no-op: the registry may race with a late full-list refresh,
// which is the collaborator's job to resolve.
func (r *Registry) UpsertAndPromote(chatID string, preview model.LatestMessage, localUser string, incrementUnseen bool) {
	idx := -1
	for i := range r.entries {
		if r.entries[i].Chat.ID == chatID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}

	entry := r.entries[idx]
	entry.Chat.LatestMessage = preview
	entry.Chat.UpdatedAt = time.Now()
	if incrementUnseen && preview.Sender != localUser {
		entry.Chat.UnseenCount++
	}

	// move-to-front, never a full re-sort: untouched entries keep their
	// relative order
	r.entries = append(r.entries[:idx], r.entries[idx+1:]...)
	r.entries = append([]model.ChatEntry{entry}, r.entries...)
}

// ResetUnseen zeroes the unseen counter for chatID in place. Position is
// unchanged; unknown ids are ignored.
func (r *Registry) ResetUnseen(chatID string) {
	for i := range r.entries {
		if r.entries[i].Chat.ID == chatID {
			r.entries[i].Chat.UnseenCount = 0
			return
		}
	}
}
