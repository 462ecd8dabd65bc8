package service

import (
	"strings"

	"github.com/samber/lo"

	"ci-dashboard/pkg/constants"
)

// self-hosted 运行器的通用标签，不参与运行器类型
var genericRunnerLabels = []string{
	"self-hosted", "linux", "windows", "macos", "x64", "x86", "arm", "arm64",
}

// NormalizeOS 统一为 linux/windows/macos，无法识别返回空串
func NormalizeOS(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	switch {
	case v == "":
		return ""
	case strings.Contains(v, "windows") || v == "win" || strings.HasPrefix(v, "win-"):
		return constants.OSWindows
	case strings.Contains(v, "macos") || strings.Contains(v, "osx") || v == "mac" || strings.HasPrefix(v, "mac-"):
		return constants.OSMacOS
	case strings.Contains(v, "linux") || strings.Contains(v, "ubuntu"):
		return constants.OSLinux
	}
	return ""
}

// RunnerFromLabels 从 runs-on 标签推断操作系统与运行器类型
func RunnerFromLabels(labels []string) (os string, runnerType string) {
	for _, label := range labels {
		if os = NormalizeOS(label); os != "" {
			break
		}
	}

	if len(labels) == 0 {
		return os, ""
	}

	selfHosted := lo.ContainsBy(labels, func(l string) bool { return strings.EqualFold(l, "self-hosted") })
	if !selfHosted {
		return os, labels[0]
	}

	custom := lo.Filter(labels, func(l string, _ int) bool {
		return !lo.Contains(genericRunnerLabels, strings.ToLower(l))
	})
	if len(custom) == 0 {
		return os, "self-hosted"
	}
	return os, strings.Join(custom, ",")
}

// OSCategory 矩阵操作系统列，未命中返回空串
func OSCategory(os string) string {
	switch NormalizeOS(os) {
	case constants.OSLinux:
		return constants.CategoryLinux
	case constants.OSWindows:
		return constants.CategoryWin
	case constants.OSMacOS:
		return constants.CategoryMac
	}
	return ""
}

// PurposeCategory 矩阵用途列，按 doc、lint、test 顺序子串匹配
func PurposeCategory(workflowName string) string {
	name := strings.ToLower(workflowName)
	switch {
	case strings.Contains(name, "doc"):
		return constants.CategoryDoc
	case strings.Contains(name, "lint"):
		return constants.CategoryLint
	case strings.Contains(name, "test"):
		return constants.CategoryTest
	}
	return ""
}

// ResultSymbol 结论映射为矩阵单元格
func ResultSymbol(conclusion *string) string {
	if conclusion == nil {
		return constants.ResultUnknown
	}
	switch *conclusion {
	case constants.ConclusionSuccess:
		return constants.ResultSuccess
	case constants.ConclusionFailure:
		return constants.ResultFailure
	}
	return constants.ResultUnknown
}
