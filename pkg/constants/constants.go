package constants

// RunStatus 工作流运行状态（GitHub Actions 原值）
const (
	RunStatusQueued     = "queued"
	RunStatusInProgress = "in_progress"
	RunStatusCompleted  = "completed"
	RunStatusWaiting    = "waiting"
	RunStatusRequested  = "requested"
	RunStatusPending    = "pending"
)

// RunConclusion 工作流运行结论，运行未结束时为空
const (
	ConclusionSuccess        = "success"
	ConclusionFailure        = "failure"
	ConclusionCancelled      = "cancelled"
	ConclusionSkipped        = "skipped"
	ConclusionTimedOut       = "timed_out"
	ConclusionActionRequired = "action_required"
	ConclusionNeutral        = "neutral"
	ConclusionStale          = "stale"
)

// 矩阵单元格状态
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultUnknown = "unknown"
)

// 矩阵分类: 操作系统维度
const (
	CategoryLinux = "Linux"
	CategoryWin   = "Win"
	CategoryMac   = "Mac"
)

// 矩阵分类: 用途维度（按工作流名称子串匹配）
const (
	CategoryDoc  = "Doc"
	CategoryLint = "Lint"
	CategoryTest = "Test"
)

// MatrixCategories 矩阵列，顺序即前端展示顺序
var MatrixCategories = []string{
	CategoryLinux, CategoryWin, CategoryMac,
	CategoryDoc, CategoryLint, CategoryTest,
}

// 运行器操作系统，存储为小写
const (
	OSLinux   = "linux"
	OSWindows = "windows"
	OSMacOS   = "macos"
)

// RunnerTypeUnknown 未上报运行器标签的运行
const RunnerTypeUnknown = "unknown"

// 默认值
const (
	DefaultMainBranch    = "main"
	DefaultStrictPattern = "strict"
	DefaultDays          = 7
	DefaultWindowHours   = 24
	MaxLookbackDays      = 3650 // 查询窗口上限（天）
)
