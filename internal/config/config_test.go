package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfigFile(t, `
workflow:
  workflow_id: wf-123
  service_key: secret
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.True(t, cfg.Discovery.UseFeeds)
	require.Equal(t, 7, cfg.Discovery.FeedFreshnessDays)
	require.Equal(t, 3, cfg.Discovery.MaxArticlesPerFeed)
	require.Equal(t, 500, cfg.Discovery.MinContentLength)
	require.Equal(t, 0.5, cfg.Selection.MinRelevance)
	require.Equal(t, 15, cfg.Selection.MaxItemsPerRun)
	require.Equal(t, 30, cfg.Selection.DailyLimit)
	require.Equal(t, "memory", cfg.DB.Provider)
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfigFile(t, `
workflow:
  workflow_id: wf-123
  service_key: secret
selection:
  daily_limit: 10
  max_items_per_run: 5
discovery:
  max_crawl_pages: 8
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 10, cfg.Selection.DailyLimit)
	require.Equal(t, 5, cfg.Selection.MaxItemsPerRun)
	require.Equal(t, 8, cfg.Discovery.MaxCrawlPages)
}

func TestValidateMissingWorkflowID(t *testing.T) {
	path := writeConfigFile(t, `
workflow:
  service_key: secret
`)
	_, err := Load(path)
	require.ErrorContains(t, err, "workflow.workflow_id")
}

func TestValidateMissingServiceKey(t *testing.T) {
	path := writeConfigFile(t, `
workflow:
  workflow_id: wf-123
`)
	_, err := Load(path)
	require.ErrorContains(t, err, "workflow.service_key")
}

func TestValidatePostgresNeedsDSN(t *testing.T) {
	path := writeConfigFile(t, `
workflow:
  workflow_id: wf-123
  service_key: secret
db:
  provider: postgres
`)
	_, err := Load(path)
	require.ErrorContains(t, err, "db.dsn")
}

func TestValidateSourceEntries(t *testing.T) {
	path := writeConfigFile(t, `
workflow:
  workflow_id: wf-123
  service_key: secret
sources:
  - name: alpha
    url: https://alpha.example.com
    has_feed: true
`)
	_, err := Load(path)
	require.ErrorContains(t, err, "feed_url")

	path = writeConfigFile(t, `
workflow:
  workflow_id: wf-123
  service_key: secret
sources:
  - name: alpha
    url: https://alpha.example.com
    has_feed: true
    feed_url: https://alpha.example.com/feed.xml
  - name: beta
    url: https://beta.example.com
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Sources, 2)
	require.Equal(t, "https://alpha.example.com/feed.xml", cfg.Sources[0].FeedURL)
}

func TestValidateRelevanceRange(t *testing.T) {
	path := writeConfigFile(t, `
workflow:
  workflow_id: wf-123
  service_key: secret
selection:
  min_relevance: 1.5
`)
	_, err := Load(path)
	require.ErrorContains(t, err, "min_relevance")
}
