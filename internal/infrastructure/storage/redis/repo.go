package redis

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"networth/internal/application/port"
	"networth/internal/domain/model"
)

// Repo publishes committed snapshots to Redis: the latest snapshot under a
// key, a compact entry on a stream and a notification on a channel.
type Repo struct {
	rdb       *redis.Client
	ttl       time.Duration
	maxLen    int64
	keyLatest string
	stream    string
	channel   string
}

// Summary is the compact form sent on the stream and the channel.
type Summary struct {
	ID             string            `json:"id"`
	TakenAt        time.Time         `json:"taken_at"`
	Currency       string            `json:"currency"`
	Total          string            `json:"total"`
	UnrealizedPL   string            `json:"unrealized_pl"`
	CategoryTotals map[string]string `json:"category_totals"`
	Partial        bool              `json:"partial"`
	Missing        []string          `json:"missing,omitempty"`
}

func New(rdb *redis.Client, prefix string, ttl time.Duration, maxLen int64) *Repo {
	if strings.TrimSpace(prefix) == "" {
		prefix = "networth"
	}
	return &Repo{
		rdb:       rdb,
		ttl:       ttl,
		maxLen:    maxLen,
		keyLatest: prefix + ":snapshot:latest",
		stream:    prefix + ":snapshots",
		channel:   prefix + ":snapshots:pub",
	}
}

func (r *Repo) Name() string { return "redis" }

func (r *Repo) Close() error { return r.rdb.Close() }

func (r *Repo) Publish(ctx context.Context, s *model.Snapshot) error {
	full, err := json.Marshal(s)
	if err != nil {
		return err
	}
	sum := Summarize(s)
	msg, err := json.Marshal(sum)
	if err != nil {
		return err
	}

	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, r.keyLatest, full, r.ttl)
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		MaxLen: r.maxLen,
		Approx: r.maxLen > 0,
		Values: map[string]any{
			"id":       s.ID,
			"taken_ms": s.TakenAt.UnixMilli(),
			"total":    sum.Total,
			"partial":  s.Partial,
			"payload":  string(msg),
		},
	})
	pipe.Publish(ctx, r.channel, string(msg))
	_, err = pipe.Exec(ctx)
	return err
}

func Summarize(s *model.Snapshot) Summary {
	sum := Summary{
		ID:             s.ID,
		TakenAt:        s.TakenAt,
		Currency:       s.ReportingCurrency,
		Total:          s.Total.StringFixed(2),
		UnrealizedPL:   s.UnrealizedPL.StringFixed(2),
		CategoryTotals: make(map[string]string, len(s.CategoryTotals)),
		Partial:        s.Partial,
		Missing:        s.MissingIDs(),
	}
	for c, v := range s.CategoryTotals {
		sum.CategoryTotals[string(c)] = v.StringFixed(2)
	}
	return sum
}

var _ port.Sink = (*Repo)(nil)
