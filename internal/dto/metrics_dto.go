package dto

// MetricsQuery 看板查询参数
// Days/Hours 为空时使用默认窗口，上限与 constants.MaxLookbackDays 一致
type MetricsQuery struct {
	Repo   string `form:"repo" binding:"required"`
	Days   *int   `form:"days" binding:"omitempty,min=0,max=3650"`
	Hours  *int   `form:"hours" binding:"omitempty,min=0,max=87600"`
	Branch string `form:"branch"`
}

// RepoQuery 只需要 repo 的查询
type RepoQuery struct {
	Repo string `form:"repo" binding:"required"`
}

// DailyPoint 按日统计点
type DailyPoint struct {
	Date         string `json:"date"` // 2006-01-02
	Total        int64  `json:"total"`
	SuccessCount int64  `json:"success_count"`
	FailureCount int64  `json:"failure_count"`
}

// FailureRateResult 失败率
type FailureRateResult struct {
	Rate     float64 `json:"rate"` // 百分比
	Total    int64   `json:"total"`
	Failures int64   `json:"failures"`
}

// RedOnMainResult 主干失败率，Broken/Flaky 为按 strict 工作流拆分的可选口径
type RedOnMainResult struct {
	Branch      string  `json:"branch"`
	Rate        float64 `json:"rate"`
	Total       int64   `json:"total"`
	Failures    int64   `json:"failures"`
	BrokenRate  float64 `json:"broken_rate"`
	FlakyRate   float64 `json:"flaky_rate"`
	Broken      int64   `json:"broken"`
	Flaky       int64   `json:"flaky"`
	WindowHours int     `json:"window_hours"`
}

// TimeToRedSignal 失败信号耗时，单位秒
type TimeToRedSignal struct {
	Average float64 `json:"average"`
	P75     float64 `json:"p75"`
	Max     float64 `json:"max"`
	Count   int     `json:"count"`
}

// QueueGroup 按运行器类型的排队统计
type QueueGroup struct {
	RunnerType       string  `json:"runner_type"`
	Queued           int64   `json:"queued"`
	Total            int64   `json:"total"`
	AverageQueueTime float64 `json:"average_queuetime"` // 秒
}

// WorkflowSummary 单个工作流汇总
type WorkflowSummary struct {
	Name             string  `json:"name"`
	TotalRuns        int64   `json:"total_runs"`
	SuccessRate      float64 `json:"success_rate"`
	AverageRuntime   float64 `json:"average_runtime"`   // 秒
	AverageQueueTime float64 `json:"average_queuetime"` // 秒
}

// MatrixRow 提交 x 分类 结果矩阵的一行
type MatrixRow struct {
	Hash    string            `json:"hash"`
	Message string            `json:"message"`
	Author  string            `json:"author"`
	Time    int64             `json:"time"` // 提交时间，提交未入库时为0
	Date    string            `json:"date"` // 运行创建日期
	RunTime int64             `json:"run_time"`
	Results map[string]string `json:"results"`
}

// StatsResult 仓库概览
type StatsResult struct {
	Commits          int64   `json:"commits"`
	Workflows        int64   `json:"workflows"`
	Runs             int64   `json:"runs"`
	SuccessRate      float64 `json:"success_rate"`
	AverageRuntime   float64 `json:"average_runtime"`
	AverageQueueTime float64 `json:"average_queuetime"`
}

// DashboardMetrics 看板卡片
type DashboardMetrics struct {
	RedOnMain       *RedOnMainResult `json:"redOnMain"`
	TimeToRedSignal *TimeToRedSignal `json:"timeToRedSignal"`
	Queue           []*QueueGroup    `json:"queue"`
}

// DashboardResult 看板组合结果
type DashboardResult struct {
	ChartData []*DailyPoint     `json:"chartData"`
	Metrics   *DashboardMetrics `json:"metrics"`
}
