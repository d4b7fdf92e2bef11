package crawler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedqa/internal/crawler/parsers"
	"feedqa/internal/logger"
	"feedqa/internal/models"
)

func newTestClient(proxyEndpoint string) *Client {
	return NewClientWithDeps(newTestScraper(proxyEndpoint), parsers.NewParser(), logger.Nop())
}

func TestClient_CrawlFeed(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(feedBody))
	}))
	defer origin.Close()

	feed, err := newTestClient(origin.URL).CrawlFeed(context.Background(), origin.URL)
	require.NoError(t, err)

	_, err = uuid.Parse(feed.ID)
	require.NoError(t, err)
	assert.Equal(t, origin.URL, feed.URL)
	assert.Equal(t, "Test Feed", feed.Title)
	require.Len(t, feed.Articles, 1)
	assert.Equal(t, "A", feed.Articles[0].Title)
	assert.False(t, feed.AddedAt.IsZero())
}

func TestClient_CrawlFeed_LogsRoute(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer origin.Close()

	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(feedBody))
	}))
	defer proxy.Close()

	var buf bytes.Buffer

	client := NewClientWithDeps(newTestScraper(proxy.URL), parsers.NewParser(), logger.New("info", logger.FormatText, &buf))

	_, err := client.CrawlFeed(context.Background(), origin.URL)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "via=proxy")
}

func TestClient_CrawlFeed_EmptyFeedIsUntitled(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<rss><channel><title>Nothing yet</title></channel></rss>`))
	}))
	defer origin.Close()

	feed, err := newTestClient(origin.URL).CrawlFeed(context.Background(), origin.URL)
	require.NoError(t, err)
	assert.Equal(t, models.UntitledFeed, feed.Title)
	assert.NotNil(t, feed.Articles)
	assert.Empty(t, feed.Articles)
}

func TestClient_CrawlFeed_ParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"html page", "<html><body>hi</body></html>", parsers.ErrInvalidFeedFormat},
		{"garbage", "{\"not\": \"xml\"}", parsers.ErrMalformedXML},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer origin.Close()

			feed, err := newTestClient(origin.URL).CrawlFeed(context.Background(), origin.URL)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, feed)
		})
	}
}

func TestClient_CrawlFeed_InvalidURL(t *testing.T) {
	_, err := newTestClient("https://proxy.test/raw").CrawlFeed(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestClient_ParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.xml")
	require.NoError(t, os.WriteFile(path, []byte(feedBody), 0o600))

	articles, err := NewClient().ParseFile(path)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "Test Feed", articles[0].FeedTitle)

	_, err = NewClient().ParseFile(filepath.Join(t.TempDir(), "missing.xml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestClient_DetectFileFormat(t *testing.T) {
	dir := t.TempDir()

	rss := filepath.Join(dir, "feed.xml")
	require.NoError(t, os.WriteFile(rss, []byte(feedBody), 0o600))

	atom := filepath.Join(dir, "atom.xml")
	require.NoError(t, os.WriteFile(atom, []byte(`<feed xmlns="http://www.w3.org/2005/Atom"><title>A</title></feed>`), 0o600))

	page := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(page, []byte(`<html><body/></html>`), 0o600))

	client := NewClient()

	format, err := client.DetectFileFormat(rss)
	require.NoError(t, err)
	assert.Equal(t, parsers.FormatRSS, format)

	format, err = client.DetectFileFormat(atom)
	require.NoError(t, err)
	assert.Equal(t, parsers.FormatAtom, format)

	_, err = client.DetectFileFormat(page)
	assert.ErrorIs(t, err, parsers.ErrInvalidFeedFormat)
}
