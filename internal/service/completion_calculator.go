package service

// IsModuleFullyComplete 步骤数为 0 的模块永远不算完成
func IsModuleFullyComplete(totalSteps int, completedStepIDs map[string]struct{}) bool {
	return totalSteps > 0 && len(completedStepIDs) == totalSteps
}

// CompletionPercentage 四舍五入（half-up）到整数百分比，结果限制在 [0,100]
func CompletionPercentage(totalSteps, completedCount int) int {
	if totalSteps <= 0 || completedCount <= 0 {
		return 0
	}
	if completedCount >= totalSteps {
		return 100
	}
	return (200*completedCount + totalSteps) / (2 * totalSteps)
}
