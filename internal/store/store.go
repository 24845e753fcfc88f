// Package store persists assistant state as flat JSON documents:
// user preferences, per-conversation message logs and per-command
// counters. Every mutation rewrites the whole backing file, which is
// fine at assistant-log scale but offers no partial-write protection.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Speaker labels for logged messages.
const (
	SpeakerUser      = "USER"
	SpeakerAssistant = "ASSISTANT"
	SpeakerSystem    = "SYSTEM"
)

// timestampLayout is fixed-width, so lexicographic order over formatted
// timestamps equals chronological order.
const timestampLayout = "2006-01-02 15:04:05"

// Message is one logged turn inside a conversation.
type Message struct {
	Timestamp string `json:"timestamp"`
	Speaker   string `json:"speaker"`
	Text      string `json:"message_text"`
}

// CommandStat is the accumulated counter for one command type.
type CommandStat struct {
	Type       string `json:"command_type"`
	Count      int    `json:"count"`
	Successful int    `json:"successful"`
}

type statRecord struct {
	Count      int `json:"count"`
	Successful int `json:"successful"`
}

// Store owns the three JSON files. One instance is constructed at boot
// and handed to everything that needs persistence; the mutex keeps the
// foreground readers and the background worker from tearing each
// other's writes within this process. Concurrent writers from another
// process are not guarded against.
type Store struct {
	mu    sync.Mutex
	prefs string
	hist  string
	stats string

	now func() time.Time
}

// Open prepares a store rooted at dir, creating the directory and
// empty JSON documents as needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create dir %s: %w", dir, err)
	}

	s := &Store{
		prefs: filepath.Join(dir, "preferences.json"),
		hist:  filepath.Join(dir, "conversation_history.json"),
		stats: filepath.Join(dir, "command_stats.json"),
		now:   time.Now,
	}

	for _, path := range []string{s.prefs, s.hist, s.stats} {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
				return nil, fmt.Errorf("store: init %s: %w", path, err)
			}
		}
	}

	return s, nil
}

// readJSON decodes path into out. A missing or corrupt file degrades
// to the zero value rather than failing; readers always see a usable
// (possibly empty) state.
func readJSON(path string, out any) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return
	}
	_ = json.Unmarshal(raw, out)
}

func writeJSON(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("store: marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("store: write %s: %w", path, err)
	}
	return nil
}

// Preference returns the stored value for key, or def when absent.
func (s *Store) Preference(key, def string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefs := map[string]string{}
	readJSON(s.prefs, &prefs)
	if v, ok := prefs[key]; ok {
		return v
	}
	return def
}

// SetPreference upserts key and persists immediately. Last write wins.
func (s *Store) SetPreference(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefs := map[string]string{}
	readJSON(s.prefs, &prefs)
	prefs[key] = value
	return writeJSON(s.prefs, prefs)
}

// StartConversation allocates the next conversation id, defined as the
// number of existing conversations plus one. Ids are only unique for a
// single assistant instance; the intended deployment is one operator.
func (s *Store) StartConversation() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	hist := map[string][]Message{}
	readJSON(s.hist, &hist)
	return len(hist) + 1
}

// EndConversation marks a conversation finished. The file format keeps
// no end marker, so this is a no-op kept for lifecycle symmetry.
func (s *Store) EndConversation(int) {}

// LogMessage appends a turn with a server-generated timestamp to the
// named conversation, creating the bucket on first use.
func (s *Store) LogMessage(speaker, text string, conversationID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hist := map[string][]Message{}
	readJSON(s.hist, &hist)

	key := fmt.Sprintf("%d", conversationID)
	hist[key] = append(hist[key], Message{
		Timestamp: s.now().Format(timestampLayout),
		Speaker:   speaker,
		Text:      text,
	})
	return writeJSON(s.hist, hist)
}

// LogCommand bumps the counter for commandType, and the success
// counter when success is set. Both move in the same write, so
// successful can never exceed count.
func (s *Store) LogCommand(commandType, raw string, success bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := map[string]statRecord{}
	readJSON(s.stats, &stats)

	rec := stats[commandType]
	rec.Count++
	if success {
		rec.Successful++
	}
	stats[commandType] = rec
	_ = raw // the raw utterance is already captured in the conversation log
	return writeJSON(s.stats, stats)
}

// History flattens all conversations, sorts by timestamp descending
// and truncates to limit. O(total messages) per call.
func (s *Store) History(limit int) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	hist := map[string][]Message{}
	readJSON(s.hist, &hist)

	var all []Message
	for _, msgs := range hist {
		all = append(all, msgs...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp > all[j].Timestamp
	})

	if limit >= 0 && len(all) > limit {
		all = all[:limit]
	}
	return all
}

// Conversation returns the messages of a single conversation in
// insertion order.
func (s *Store) Conversation(conversationID int) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	hist := map[string][]Message{}
	readJSON(s.hist, &hist)
	return hist[fmt.Sprintf("%d", conversationID)]
}

// CommandStats returns counters for every recorded command type,
// sorted by type for stable display. The days parameter is accepted
// for the statistics surface but does not filter yet: counters carry
// no timestamps to filter on.
func (s *Store) CommandStats(days int) []CommandStat {
	s.mu.Lock()
	defer s.mu.Unlock()

	_ = days

	stats := map[string]statRecord{}
	readJSON(s.stats, &stats)

	out := make([]CommandStat, 0, len(stats))
	for typ, rec := range stats {
		out = append(out, CommandStat{Type: typ, Count: rec.Count, Successful: rec.Successful})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}
