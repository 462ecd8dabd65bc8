package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ci-dashboard/internal/dto"
	"ci-dashboard/internal/repository"
	"ci-dashboard/internal/testutil"
	"ci-dashboard/pkg/constants"
	pkgErrors "ci-dashboard/pkg/errors"
)

const sampleBundleYAML = `
repo: octo/widgets
branches:
  - name: main
    author: alice
commits:
  - hash: abc123
    author: alice
    message: add widgets
    time: 1704276000
  - hash: ""
    message: missing hash
    time: 1704276000
workflows:
  - name: pull
    url: https://github.com/octo/widgets/actions/workflows/pull.yml
workflow_runs:
  - gitid: 500
    branch_name: main
    commit_hash: abc123
    workflow_name: pull
    author: alice
    runtime: 321.5
    createtime: 1704276000
    starttime: 1704276060
    endtime: 1704276400
    queuetime: 60
    status: completed
    conclusion: failure
    url: https://github.com/octo/widgets/actions/runs/500
    os: Windows
  - gitid: 0
    status: completed
`

func newTestBundle(t *testing.T) (BundleService, *repository.Repositories) {
	t.Helper()
	repos := repository.NewRepositories(testutil.NewDB(t))
	return NewBundleService(NewReconcileService(repos, zap.NewNop()), repos, zap.NewNop()), repos
}

func TestBundleImportExport(t *testing.T) {
	svc, repos := newTestBundle(t)
	ctx := context.Background()

	bundle, err := DecodeBundle([]byte(sampleBundleYAML), BundleFormatYAML)
	require.NoError(t, err)

	result, err := svc.Import(ctx, "", bundle)
	require.NoError(t, err)
	assert.Equal(t, &dto.BundleImportResult{Branches: 1, Commits: 1, Workflows: 1, WorkflowRuns: 1, Dropped: 2}, result)

	run, err := repos.WorkflowRun.FindByGitID(ctx, 500)
	require.NoError(t, err)
	assert.Equal(t, 321.5, run.Runtime)
	assert.Equal(t, float64(60), run.QueueTime)
	assert.Equal(t, constants.OSWindows, run.OS)
	assert.NotNil(t, run.CommitID)
	assert.NotNil(t, run.WorkflowID)
	assert.NotNil(t, run.BranchID)

	exported, err := svc.Export(ctx, testRepo)
	require.NoError(t, err)
	assert.Equal(t, testRepo, exported.Repo)
	require.Len(t, exported.WorkflowRuns, 1)
	assert.Equal(t, bundle.WorkflowRuns[0].CreateTime, exported.WorkflowRuns[0].CreateTime)
	assert.Equal(t, "failure", *exported.WorkflowRuns[0].Conclusion)
	assert.Equal(t, []dto.BundleBranch{{Name: "main", Author: "alice"}}, exported.Branches)

	// 导出再导入到另一个仓库，结果一致
	data, err := EncodeBundle(exported, BundleFormatJSON)
	require.NoError(t, err)
	again, err := DecodeBundle(data, BundleFormatJSON)
	require.NoError(t, err)
	_, err = svc.Import(ctx, "octo/mirror", again)
	require.NoError(t, err)

	mirrored, err := svc.Export(ctx, "octo/mirror")
	require.NoError(t, err)
	assert.Equal(t, exported.Commits, mirrored.Commits)
	assert.Equal(t, exported.Workflows, mirrored.Workflows)
}

func TestBundleImport_RequiresRepo(t *testing.T) {
	svc, _ := newTestBundle(t)
	_, err := svc.Import(context.Background(), "", &dto.Bundle{})
	assert.Equal(t, pkgErrors.CodeBadRequest, pkgErrors.CodeOf(err))

	_, err = svc.Export(context.Background(), "")
	assert.Equal(t, pkgErrors.CodeBadRequest, pkgErrors.CodeOf(err))
}

func TestBundleFormat(t *testing.T) {
	format, err := BundleFormat("data/export.YML")
	require.NoError(t, err)
	assert.Equal(t, BundleFormatYAML, format)

	format, err = BundleFormat("export.json")
	require.NoError(t, err)
	assert.Equal(t, BundleFormatJSON, format)

	_, err = BundleFormat("export.csv")
	assert.ErrorIs(t, err, pkgErrors.ErrUnsupportedFormat)

	_, err = DecodeBundle([]byte("{"), BundleFormatJSON)
	assert.Equal(t, pkgErrors.CodeBadRequest, pkgErrors.CodeOf(err))
}

func TestRunServiceList(t *testing.T) {
	svc, repos := newTestBundle(t)
	ctx := context.Background()

	bundle, err := DecodeBundle([]byte(sampleBundleYAML), BundleFormatYAML)
	require.NoError(t, err)
	_, err = svc.Import(ctx, "", bundle)
	require.NoError(t, err)

	runs := NewRunService(repos.WorkflowRun)
	list, total, err := runs.List(ctx, &dto.RunListQuery{Repo: testRepo, Conclusion: "failure"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, int64(500), list[0].GitID)

	_, total, err = runs.List(ctx, &dto.RunListQuery{Repo: testRepo, Branch: "release"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)

	_, err = runs.GetByGitID(ctx, 404)
	assert.ErrorIs(t, err, pkgErrors.ErrRecordNotFound)
}
