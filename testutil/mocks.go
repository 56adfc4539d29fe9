package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// MockYouTubeServer creates a test server that mocks YouTube Data API v3 responses.
// Handlers are keyed by resource path ("videos", "search", "liveChat/messages") and
// matched by suffix so the client base path does not matter.
type MockYouTubeServer struct {
	*httptest.Server
	mu       sync.Mutex
	Handlers map[string]http.HandlerFunc
	calls    map[string]int
}

// NewMockYouTubeServer creates a new mock YouTube API server.
func NewMockYouTubeServer(t *testing.T) *MockYouTubeServer {
	t.Helper()
	m := &MockYouTubeServer{
		Handlers: make(map[string]http.HandlerFunc),
		calls:    make(map[string]int),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		var handler http.HandlerFunc
		for key, h := range m.Handlers {
			if strings.HasSuffix(r.URL.Path, "/"+key) {
				handler = h
				m.calls[key]++
				break
			}
		}
		m.mu.Unlock()
		if handler != nil {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// Calls reports how many requests hit the handler registered under key.
func (m *MockYouTubeServer) Calls(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[key]
}

// Handle registers a handler under key.
func (m *MockYouTubeServer) Handle(key string, h http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Handlers[key] = h
}

// MockVideoLiveChat adds a handler for the videos endpoint returning a live chat id
// for videoID. An empty chatID mimics a video that is not live.
func (m *MockYouTubeServer) MockVideoLiveChat(videoID, chatID string) {
	m.Handle("videos", func(w http.ResponseWriter, r *http.Request) {
		item := map[string]interface{}{"id": videoID}
		if chatID != "" {
			item["liveStreamingDetails"] = map[string]string{"activeLiveChatId": chatID}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"items": []interface{}{item}})
	})
}

// MockLiveSearch adds a handler for the search endpoint. An empty videoID returns no results.
func (m *MockYouTubeServer) MockLiveSearch(videoID string) {
	m.Handle("search", func(w http.ResponseWriter, r *http.Request) {
		items := []interface{}{}
		if videoID != "" {
			items = append(items, map[string]interface{}{"id": map[string]string{"kind": "youtube#video", "videoId": videoID}})
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
	})
}

// ChatMessage is one fake live chat message.
type ChatMessage struct {
	ID          string
	Author      string
	Text        string
	PublishedAt string
}

// MockLiveChatPages adds a handler for liveChat/messages serving pages in order. Requests past
// the last page receive the error status given, or an empty page when status is 0.
func (m *MockYouTubeServer) MockLiveChatPages(pollMillis int64, status int, pages ...[]ChatMessage) {
	var (
		mu   sync.Mutex
		next int
	)
	m.Handle("liveChat/messages", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		idx := next
		next++
		mu.Unlock()
		if idx >= len(pages) {
			if status != 0 {
				writeJSON(w, status, map[string]interface{}{
					"error": map[string]interface{}{
						"code":    status,
						"message": http.StatusText(status),
						"errors":  []map[string]string{{"reason": "liveChatEnded", "message": "The live chat is no longer live."}},
					},
				})
				return
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{"items": []interface{}{}, "pollingIntervalMillis": pollMillis})
			return
		}
		items := make([]interface{}, 0, len(pages[idx]))
		for _, msg := range pages[idx] {
			items = append(items, map[string]interface{}{
				"id": msg.ID,
				"snippet": map[string]interface{}{
					"type":           "textMessageEvent",
					"publishedAt":    msg.PublishedAt,
					"displayMessage": msg.Text,
				},
				"authorDetails": map[string]string{"displayName": msg.Author},
			})
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"items":                 items,
			"nextPageToken":         "page-" + string(rune('a'+idx)),
			"pollingIntervalMillis": pollMillis,
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // test mock response
}
