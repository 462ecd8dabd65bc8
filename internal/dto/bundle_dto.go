package dto

// Bundle 数据包，与导入导出脚本的 JSON 结构一致
type Bundle struct {
	Repo         string           `json:"repo,omitempty" yaml:"repo,omitempty"`
	Branches     []BundleBranch   `json:"branches" yaml:"branches"`
	Commits      []CommitRecord   `json:"commits" yaml:"commits"`
	Workflows    []WorkflowRecord `json:"workflows" yaml:"workflows"`
	WorkflowRuns []BundleRun      `json:"workflow_runs" yaml:"workflow_runs"`
}

// BundleBranch 分支
type BundleBranch struct {
	Name   string `json:"name" yaml:"name"`
	Author string `json:"author,omitempty" yaml:"author,omitempty"`
}

// BundleRun 运行记录，时间为 Unix 秒
type BundleRun struct {
	GitID        int64    `json:"gitid" yaml:"gitid"`
	BranchName   string   `json:"branch_name" yaml:"branch_name"`
	CommitHash   string   `json:"commit_hash" yaml:"commit_hash"`
	WorkflowName string   `json:"workflow_name" yaml:"workflow_name"`
	Author       string   `json:"author" yaml:"author"`
	Runtime      float64  `json:"runtime" yaml:"runtime"`
	CreateTime   *int64   `json:"createtime" yaml:"createtime"`
	StartTime    *int64   `json:"starttime" yaml:"starttime"`
	EndTime      *int64   `json:"endtime" yaml:"endtime"`
	QueueTime    float64  `json:"queuetime" yaml:"queuetime"`
	Status       string   `json:"status" yaml:"status"`
	Conclusion   *string  `json:"conclusion" yaml:"conclusion"`
	URL          string   `json:"url" yaml:"url"`
	OS           string   `json:"os,omitempty" yaml:"os,omitempty"`
	Labels       []string `json:"labels,omitempty" yaml:"labels,omitempty"`
}

// BundleImportResult 导入结果
type BundleImportResult struct {
	Branches     int `json:"branches"`
	Commits      int `json:"commits"`
	Workflows    int `json:"workflows"`
	WorkflowRuns int `json:"workflow_runs"`
	Dropped      int `json:"dropped"`
}
