package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ci-dashboard/internal/dto"
	"ci-dashboard/internal/pkg/config"
	"ci-dashboard/internal/repository"
	"ci-dashboard/pkg/constants"
	pkgErrors "ci-dashboard/pkg/errors"
)

var errConnRefused = errors.New("dial tcp 127.0.0.1:3306: connect: connection refused")

func newMockRepos(t *testing.T) (*repository.Repositories, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Discard,
	})
	require.NoError(t, err)

	return repository.NewRepositories(db), mock
}

func TestRecordWorkflowRun_StoreUnavailable(t *testing.T) {
	repos, mock := newMockRepos(t)
	svc := NewReconcileService(repos, zap.NewNop())

	mock.ExpectExec("INSERT INTO `repos`").WillReturnError(errConnRefused)

	err := svc.RecordWorkflowRun(context.Background(),
		runEvent(1, constants.RunStatusCompleted, nil, baseTime, time.Minute, time.Minute))
	require.Error(t, err)
	assert.Equal(t, pkgErrors.CodeDatabaseError, pkgErrors.CodeOf(err))
	assert.True(t, pkgErrors.IsRetryable(err))
	assert.ErrorIs(t, err, errConnRefused)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordCommits_StoreUnavailable(t *testing.T) {
	repos, mock := newMockRepos(t)
	svc := NewReconcileService(repos, zap.NewNop())

	mock.ExpectExec("INSERT INTO `repos`").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO `commits`").WillReturnError(errConnRefused)

	result, err := svc.RecordCommits(context.Background(), &dto.PushEvent{
		Repo:    testRepo,
		Commits: []dto.CommitRecord{{Hash: "c1", Time: baseTime.Unix()}},
	})
	assert.True(t, pkgErrors.IsRetryable(err))
	assert.Equal(t, 0, result.Stored)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMetrics_StoreUnavailable(t *testing.T) {
	repos, mock := newMockRepos(t)
	svc := NewMetricsService(repos, &config.DashboardConfig{}, zap.NewNop())

	mock.ExpectQuery("SELECT").WillReturnError(errConnRefused)

	_, err := svc.FailureRate(context.Background(), testRepo, 24*time.Hour, "")
	assert.Equal(t, pkgErrors.CodeDatabaseError, pkgErrors.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
