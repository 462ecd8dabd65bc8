package dto

// BackfillRepoResult 单个仓库的回填结果
type BackfillRepoResult struct {
	Repo      string `json:"repo"`
	Branches  int    `json:"branches"`
	Workflows int    `json:"workflows"`
	Commits   int    `json:"commits"`
	Runs      int    `json:"runs"`
	Jobs      int    `json:"jobs"`
	Dropped   int    `json:"dropped"`
	Error     string `json:"error,omitempty"`
}

// BackfillResult 一次回填的汇总
type BackfillResult struct {
	Repos []*BackfillRepoResult `json:"repos"`
}
