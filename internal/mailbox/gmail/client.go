// Package gmail finds receipt PDFs attached to Gmail messages.
package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/oauth2"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Config selects the mailbox and the messages to look at.
type Config struct {
	User              string // default "me"
	RequestsPerSecond float64
	Burst             int
	PageSize          int64 // default 100
}

// Store implements the pipeline's message store over the Gmail API.
type Store struct {
	svc     *gmailapi.Service
	cfg     Config
	limiter *RateLimiter
	logger  *slog.Logger
}

// NewStore creates a Gmail-backed store authenticated by ts.
func NewStore(ctx context.Context, ts oauth2.TokenSource, cfg Config, logger *slog.Logger) (*Store, error) {
	return NewStoreWithOptions(ctx, cfg, logger, option.WithTokenSource(ts))
}

// NewStoreWithOptions lets callers (and tests) pass raw client options such as an endpoint.
func NewStoreWithOptions(ctx context.Context, cfg Config, logger *slog.Logger, opts ...option.ClientOption) (*Store, error) {
	svc, err := gmailapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.User == "" {
		cfg.User = "me"
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	return &Store{
		svc:     svc,
		cfg:     cfg,
		limiter: NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst),
		logger:  logger,
	}, nil
}

// Search returns the IDs of every message matching query, across all pages.
func (s *Store) Search(ctx context.Context, query string) ([]string, error) {
	start := time.Now()
	var ids []string
	pageToken := ""
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return ids, err
		}
		call := s.svc.Users.Messages.List(s.cfg.User).Q(query).MaxResults(s.cfg.PageSize).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			err = s.observe(err)
			s.logger.Error("gmail.search.failed", "query", query, "error", err)
			return ids, fmt.Errorf("list messages: %w", err)
		}
		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
		}
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}
	s.logger.Info("gmail.search.ok", "query", query, "messages", len(ids), "elapsed_ms", time.Since(start).Milliseconds())
	return ids, nil
}

// Attachment returns the bytes of the first PDF attached to message id.
// A message without a PDF yields nil bytes and a nil error.
func (s *Store) Attachment(ctx context.Context, id string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	msg, err := s.svc.Users.Messages.Get(s.cfg.User, id).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get message %s: %w", id, s.observe(err))
	}

	part := FindPDFPart(msg.Payload)
	if part == nil || part.Body == nil {
		s.logger.Debug("gmail.message.no_pdf", "message_id", id)
		return nil, nil
	}

	data := part.Body.Data
	if part.Body.AttachmentId != "" {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		body, err := s.svc.Users.Messages.Attachments.Get(s.cfg.User, id, part.Body.AttachmentId).Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("get attachment %s/%s: %w", id, part.Filename, s.observe(err))
		}
		data = body.Data
	}

	b, err := DecodeBase64URL(data)
	if err != nil {
		return nil, fmt.Errorf("decode attachment %s/%s: %w", id, part.Filename, err)
	}
	s.logger.Debug("gmail.attachment.ok", "message_id", id, "filename", part.Filename, "bytes", len(b))
	return b, nil
}

func (s *Store) observe(err error) error {
	err = classify(err)
	if errors.Is(err, ErrRateLimited) {
		s.limiter.RecordRateLimitError(0)
	}
	return err
}

// FindPDFPart walks the MIME tree depth-first and returns the first part
// whose filename ends in .pdf.
func FindPDFPart(part *gmailapi.MessagePart) *gmailapi.MessagePart {
	if part == nil {
		return nil
	}
	if strings.HasSuffix(strings.ToLower(part.Filename), ".pdf") {
		return part
	}
	for _, p := range part.Parts {
		if found := FindPDFPart(p); found != nil {
			return found
		}
	}
	return nil
}

// DecodeBase64URL accepts Gmail's URL-safe alphabet with or without padding.
func DecodeBase64URL(s string) ([]byte, error) {
	s = strings.TrimRight(s, "=")
	return base64.RawURLEncoding.DecodeString(s)
}
