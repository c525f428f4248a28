package httpx

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/aussiebroadwan/identity/pkg/slogx"
)

const (
	IdempotencyKeyHeader      = "Idempotency-Key"
	IdempotentReplayedHeader  = "Idempotent-Replayed"
	DefaultIdempotencyTTL     = 24 * time.Hour
	maxIdempotentResponseSize = 1 << 20
)

// ResponseStore persists idempotent responses. Implementations report a miss
// as (nil, false, nil).
type ResponseStore interface {
	GetResponse(ctx context.Context, key string) ([]byte, bool, error)
	PutResponse(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
}

// IdempotencyKey is the cache key for one use of a client supplied key. The
// same header value sent by another principal, or against another resource,
// maps to a different entry.
func IdempotencyKey(command, principal, target, key string) string {
	h := sha256.New()
	for _, part := range []string{principal, target, key} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return "idempotency:" + command + ":" + hex.EncodeToString(h.Sum(nil))
}

// Idempotent replays the first successful response for a given
// Idempotency-Key header, scoped to the authenticated subject and the request
// path. Requests without the header pass straight through. Store failures
// never fail the request.
func Idempotent(store ResponseStore, command string, ttl time.Duration) Middleware {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyKeyHeader)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			log := slogx.FromContext(ctx)
			cacheKey := IdempotencyKey(command, UserIDFromContext(ctx), r.URL.Path, key)

			data, found, err := store.GetResponse(ctx, cacheKey)
			if err != nil {
				log.Warn("idempotency lookup failed", "key", cacheKey, "err", err)
			}
			if found {
				var sr storedResponse
				if err := json.Unmarshal(data, &sr); err == nil {
					if sr.ContentType != "" {
						w.Header().Set("Content-Type", sr.ContentType)
					}
					w.Header().Set(IdempotentReplayedHeader, "true")
					w.WriteHeader(sr.Status)
					_, _ = w.Write(sr.Body)
					return
				}
				log.Warn("idempotency record unreadable", "key", cacheKey)
			}

			rec := &captureWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			// Only successful outcomes are pinned; failures may be retried.
			if rec.status >= 300 || rec.overflow {
				return
			}
			out, _ := json.Marshal(storedResponse{
				Status:      rec.status,
				ContentType: w.Header().Get("Content-Type"),
				Body:        rec.buf.Bytes(),
			})
			if err := store.PutResponse(ctx, cacheKey, out, ttl); err != nil {
				log.Warn("idempotency store failed", "key", cacheKey, "err", err)
			}
		})
	}
}

type captureWriter struct {
	http.ResponseWriter
	status   int
	buf      bytes.Buffer
	overflow bool
	wrote    bool
}

func (c *captureWriter) WriteHeader(code int) {
	if !c.wrote {
		c.status = code
		c.wrote = true
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *captureWriter) Write(p []byte) (int, error) {
	c.wrote = true
	if c.buf.Len()+len(p) > maxIdempotentResponseSize {
		c.overflow = true
	} else {
		c.buf.Write(p)
	}
	return c.ResponseWriter.Write(p)
}

func (c *captureWriter) Unwrap() http.ResponseWriter { return c.ResponseWriter }
