package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "from-env")

	path := writeConfig(t, `
server:
  port: 9090
database:
  driver: sqlite
  database: /tmp/ci.db
github:
  repos:
    - octo/widgets
    - octo/gadgets
backfill:
  enabled: true
  fetch_jobs: true
dashboard:
  timezone: Asia/Shanghai
notification:
  enabled: true
  provider: lark
  lark_webhook: https://open.larksuite.com/hook/xyz
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/ci.db", cfg.Database.GetDSN())
	assert.Equal(t, "from-env", cfg.GitHub.Token)
	assert.Equal(t, "https://api.github.com", cfg.GitHub.BaseURL)
	assert.Equal(t, []string{"octo/widgets", "octo/gadgets"}, cfg.GitHub.Repos)
	assert.True(t, cfg.Backfill.Enabled)
	assert.True(t, cfg.Backfill.FetchJobs)
	assert.Equal(t, 7, cfg.Backfill.LookbackDays)
	assert.Equal(t, "0 */30 * * * *", cfg.Backfill.Cron)
	assert.Equal(t, "main", cfg.Dashboard.MainBranch)
	assert.Equal(t, 7, cfg.Dashboard.DefaultDays)
	assert.Equal(t, "5m", cfg.Core.LinkInterval)
	assert.Equal(t, "lark", cfg.Notification.Provider)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestGetDSN(t *testing.T) {
	mysql := &DatabaseConfig{Driver: "mysql", Host: "db", Port: 3306, Username: "root", Password: "pw", Database: "ci"}
	assert.Equal(t, "root:pw@tcp(db:3306)/ci?charset=utf8mb4&parseTime=True&loc=Local", mysql.GetDSN())

	postgres := &DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, Username: "ci", Password: "pw", Database: "ci"}
	assert.Equal(t, "host=db port=5432 user=ci password=pw dbname=ci sslmode=disable TimeZone=UTC", postgres.GetDSN())
}

func TestLocation(t *testing.T) {
	assert.Equal(t, time.UTC, (&DashboardConfig{}).Location())
	assert.Equal(t, time.UTC, (&DashboardConfig{Timezone: "Mars/Olympus"}).Location())
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 90*time.Second, ParseDuration("90s", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("soon", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("-5s", time.Minute))
}
