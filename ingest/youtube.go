package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/onnwee/vote-tender/config"
	"github.com/onnwee/vote-tender/vote"
)

// SourceYouTube is the submission source tag for YouTube live chat.
const SourceYouTube = "youtube"

// NewYouTubeService builds a Data API client from configuration. An OAuth refresh token
// takes precedence over an API key.
func NewYouTubeService(ctx context.Context, cfg *config.Config) (*youtube.Service, error) {
	var opts []option.ClientOption
	switch {
	case cfg.YTRefreshToken != "":
		oc := &oauth2.Config{
			ClientID:     cfg.YTClientID,
			ClientSecret: cfg.YTClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{youtube.YoutubeReadonlyScope},
		}
		ts := oc.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.YTRefreshToken})
		opts = append(opts, option.WithTokenSource(ts))
	case cfg.YTAPIKey != "":
		opts = append(opts, option.WithAPIKey(cfg.YTAPIKey))
	default:
		return nil, fmt.Errorf("youtube: no credentials: set YT_API_KEY or YT_REFRESH_TOKEN")
	}
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	return svc, nil
}

// YouTubeSource polls the live chat of a broadcast. The broadcast is named by VideoID,
// or discovered as the current live video of ChannelID.
type YouTubeSource struct {
	Service   *youtube.Service
	VideoID   string
	ChannelID string
	// MinPoll floors the server-suggested polling interval. Defaults to one second.
	MinPoll time.Duration
}

func (s *YouTubeSource) Name() string { return SourceYouTube }

// Run resolves the live chat and polls it until the chat ends or ctx is cancelled.
func (s *YouTubeSource) Run(ctx context.Context, emit Emit) error {
	chatID, err := s.resolveChatID(ctx)
	if err != nil {
		return err
	}
	slog.Info("youtube live chat resolved", slog.String("component", "ingest"), slog.String("live_chat_id", chatID))

	minPoll := s.MinPoll
	if minPoll <= 0 {
		minPoll = time.Second
	}
	pageToken := ""
	for {
		call := s.Service.LiveChatMessages.List(chatID, []string{"id", "snippet", "authorDetails"}).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("youtube live chat poll: %w", err)
		}
		for _, item := range resp.Items {
			if sub, ok := youtubeSubmission(item); ok {
				emit(sub)
			}
		}
		if resp.OfflineAt != "" {
			return ErrOffline
		}
		if resp.NextPageToken != "" {
			pageToken = resp.NextPageToken
		}

		wait := time.Duration(resp.PollingIntervalMillis) * time.Millisecond
		if wait < minPoll {
			wait = minPoll
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (s *YouTubeSource) resolveChatID(ctx context.Context) (string, error) {
	videoID := s.VideoID
	if videoID == "" {
		if s.ChannelID == "" {
			return "", fmt.Errorf("youtube: video id or channel id required")
		}
		resp, err := s.Service.Search.List([]string{"id"}).
			ChannelId(s.ChannelID).
			EventType("live").
			Type("video").
			MaxResults(1).
			Context(ctx).
			Do()
		if err != nil {
			return "", fmt.Errorf("youtube live search: %w", err)
		}
		if len(resp.Items) == 0 || resp.Items[0].Id == nil || resp.Items[0].Id.VideoId == "" {
			return "", fmt.Errorf("youtube channel %s: %w", s.ChannelID, ErrOffline)
		}
		videoID = resp.Items[0].Id.VideoId
	}
	resp, err := s.Service.Videos.List([]string{"liveStreamingDetails"}).Id(videoID).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("youtube video lookup: %w", err)
	}
	if len(resp.Items) == 0 || resp.Items[0].LiveStreamingDetails == nil || resp.Items[0].LiveStreamingDetails.ActiveLiveChatId == "" {
		return "", fmt.Errorf("youtube video %s has no active chat: %w", videoID, ErrOffline)
	}
	return resp.Items[0].LiveStreamingDetails.ActiveLiveChatId, nil
}

func youtubeSubmission(item *youtube.LiveChatMessage) (vote.Submission, bool) {
	if item == nil || item.Snippet == nil || item.AuthorDetails == nil {
		return vote.Submission{}, false
	}
	text := item.Snippet.DisplayMessage
	if item.Snippet.TextMessageDetails != nil && item.Snippet.TextMessageDetails.MessageText != "" {
		text = item.Snippet.TextMessageDetails.MessageText
	}
	text = strings.TrimSpace(text)
	if _, ok := vote.Normalize(text); !ok {
		return vote.Submission{}, false
	}
	sub := vote.Submission{
		Source:    SourceYouTube,
		Username:  item.AuthorDetails.DisplayName,
		Message:   text,
		MessageID: item.Id,
	}
	if ts, err := time.Parse(time.RFC3339Nano, item.Snippet.PublishedAt); err == nil {
		sub.Timestamp = vote.Seconds(ts)
	}
	return sub, true
}
