package relay_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"prism/internal/domain"
	"prism/internal/relay"
)

const box = "00112233445566778899"

func newRelay(t *testing.T, q relay.Queue) (*relay.HTTPClient, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	srv := httptest.NewServer(relay.NewServer(q, logger).Handler())
	t.Cleanup(srv.Close)
	return relay.NewHTTP(srv.URL, srv.Client()), hook
}

func TestPostFetchAck(t *testing.T) {
	ctx := context.Background()
	c, hook := newRelay(t, relay.NewMemoryQueue(0))

	sent := []domain.Envelope{
		{Kind: domain.EnvelopePacket, Wire: "a:b", Timestamp: 1},
		{Kind: domain.EnvelopeTransport, Wire: "c:d", Timestamp: 2},
		{Kind: domain.EnvelopeTransport, Wire: "e:f", Timestamp: 3},
	}
	for _, env := range sent {
		require.NoError(t, c.Post(ctx, box, env))
	}

	got, err := c.Fetch(ctx, box, 2)
	require.NoError(t, err)
	if diff := cmp.Diff(sent[:2], got); diff != "" {
		t.Fatalf("fetch mismatch (-want +got):\n%s", diff)
	}

	// Fetch does not consume.
	got, err = c.Fetch(ctx, box, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)

	require.NoError(t, c.Ack(ctx, box, 2))
	got, err = c.Fetch(ctx, box, 0)
	require.NoError(t, err)
	if diff := cmp.Diff(sent[2:], got); diff != "" {
		t.Fatalf("after ack (-want +got):\n%s", diff)
	}

	require.NoError(t, c.Ack(ctx, box, 10))
	got, err = c.Fetch(ctx, box, 0)
	require.NoError(t, err)
	require.Empty(t, got)

	require.NotEmpty(t, hook.AllEntries())
	require.Equal(t, "relay request", hook.LastEntry().Message)
}

func TestServerStampsMissingTimestamp(t *testing.T) {
	ctx := context.Background()
	c, _ := newRelay(t, relay.NewMemoryQueue(0))

	require.NoError(t, c.Post(ctx, box, domain.Envelope{Kind: domain.EnvelopePacket, Wire: "x:y"}))
	got, err := c.Fetch(ctx, box, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NotZero(t, got[0].Timestamp)
}

func TestServerRejectsBadRequests(t *testing.T) {
	logger, _ := test.NewNullLogger()
	srv := httptest.NewServer(relay.NewServer(relay.NewMemoryQueue(0), logger).Handler())
	defer srv.Close()

	cases := []struct {
		name, method, path, body string
		want                     int
	}{
		{"unknown kind", http.MethodPost, "/mailbox/" + box, `{"kind":"bogus","wire":"a:b"}`, http.StatusBadRequest},
		{"empty wire", http.MethodPost, "/mailbox/" + box, `{"kind":"packet"}`, http.StatusBadRequest},
		{"not json", http.MethodPost, "/mailbox/" + box, `{`, http.StatusBadRequest},
		{"bad mailbox", http.MethodPost, "/mailbox/alice", `{"kind":"packet","wire":"a:b"}`, http.StatusNotFound},
		{"bad limit", http.MethodGet, "/mailbox/" + box + "?limit=-1", "", http.StatusBadRequest},
		{"negative ack", http.MethodPost, "/mailbox/" + box + "/ack", `{"count":-1}`, http.StatusBadRequest},
		{"health", http.MethodGet, "/healthz", "", http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(tc.method, srv.URL+tc.path, strings.NewReader(tc.body))
			require.NoError(t, err)
			resp, err := srv.Client().Do(req)
			require.NoError(t, err)
			resp.Body.Close()
			require.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestMailboxLimit(t *testing.T) {
	ctx := context.Background()
	c, _ := newRelay(t, relay.NewMemoryQueue(1))

	env := domain.Envelope{Kind: domain.EnvelopePacket, Wire: "a:b"}
	require.NoError(t, c.Post(ctx, box, env))
	err := c.Post(ctx, box, env)
	require.Error(t, err)
	require.Contains(t, err.Error(), "429")
}

func TestMailboxesAreIsolated(t *testing.T) {
	ctx := context.Background()
	q := relay.NewMemoryQueue(0)
	require.NoError(t, q.Push(ctx, "a", domain.Envelope{Wire: "1"}))
	require.NoError(t, q.Push(ctx, "b", domain.Envelope{Wire: "2"}))

	got, err := q.Peek(ctx, "a", 0)
	require.NoError(t, err)
	require.Equal(t, []domain.Envelope{{Wire: "1"}}, got)
}

// fillConcurrently pushes twice the limit at once and checks that exactly the
// accepted envelopes were queued.
func fillConcurrently(t *testing.T, q relay.Queue, mailbox string, limit int) {
	t.Helper()
	ctx := context.Background()
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted = map[string]bool{}
		full     int
	)
	for i := 0; i < 2*limit; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			wire := "w:" + strconv.Itoa(i)
			err := q.Push(ctx, mailbox, domain.Envelope{Kind: domain.EnvelopeTransport, Wire: wire})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted[wire] = true
			case errors.Is(err, relay.ErrMailboxFull):
				full++
			default:
				t.Errorf("push %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	require.Len(t, accepted, limit)
	require.Equal(t, limit, full)
	queued, err := q.Peek(ctx, mailbox, 0)
	require.NoError(t, err)
	require.Len(t, queued, limit)
	for _, env := range queued {
		require.True(t, accepted[env.Wire], "queued envelope %q was reported full", env.Wire)
	}
}

func TestMemoryQueueLimitUnderConcurrency(t *testing.T) {
	fillConcurrently(t, relay.NewMemoryQueue(8), box, 8)
}

// Set PRISM_TEST_REDIS to a Redis address to run against a live server.
func TestRedisQueue(t *testing.T) {
	addr := os.Getenv("PRISM_TEST_REDIS")
	if addr == "" {
		t.Skip("PRISM_TEST_REDIS not set")
	}
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, rdb.Ping(ctx).Err())
	q := relay.NewRedisQueue(rdb, 2)
	t.Cleanup(func() { _ = q.Close() })

	const rbox = "ffeeddccbbaa99887766"
	require.NoError(t, q.Drop(ctx, rbox, 1<<20))

	c, _ := newRelay(t, q)
	require.NoError(t, c.Post(ctx, rbox, domain.Envelope{Kind: domain.EnvelopePacket, Wire: "a:b", Timestamp: 1}))
	require.NoError(t, c.Post(ctx, rbox, domain.Envelope{Kind: domain.EnvelopePacket, Wire: "c:d", Timestamp: 2}))
	require.Error(t, c.Post(ctx, rbox, domain.Envelope{Kind: domain.EnvelopePacket, Wire: "e:f", Timestamp: 3}))

	got, err := c.Fetch(ctx, rbox, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "a:b", got[0].Wire)

	require.NoError(t, c.Ack(ctx, rbox, 1))
	got, err = c.Fetch(ctx, rbox, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "c:d", got[0].Wire)
	require.NoError(t, c.Ack(ctx, rbox, 1))

	const cbox = "0123456789abcdef0123"
	require.NoError(t, q.Drop(ctx, cbox, 1<<20))
	fillConcurrently(t, relay.NewRedisQueue(rdb, 8), cbox, 8)
	require.NoError(t, q.Drop(ctx, cbox, 1<<20))
}
