package chat

import (
	"sort"

	"github.com/invayl/tutor-cli/internal/client"
)

// BuildThreads groups a flat message listing into one preview per session.
// The latest created_at supplies the snippet; on equal timestamps the
// first-seen message is kept. Input order is not assumed. Items without a
// session id are skipped. The result is sorted by LastAt, newest first.
func BuildThreads(items []client.MessageItem) []ThreadPreview {
	index := make(map[string]int)
	threads := make([]ThreadPreview, 0)

	for _, m := range items {
		if m.SessionID == "" {
			continue
		}
		at := ParseTime(m.CreatedAt)

		i, ok := index[m.SessionID]
		if !ok {
			index[m.SessionID] = len(threads)
			threads = append(threads, ThreadPreview{
				ID:          m.SessionID,
				LastSnippet: m.Content,
				LastAt:      at,
				Count:       1,
			})
			continue
		}

		t := &threads[i]
		t.Count++
		if at.After(t.LastAt) {
			t.LastAt = at
			t.LastSnippet = m.Content
		}
	}

	sort.SliceStable(threads, func(i, j int) bool {
		return threads[i].LastAt.After(threads[j].LastAt)
	})
	return threads
}
