package domain

// Rule 有序规则表中的一条 (谓词, 产出) 规则
type Rule[S, O any] struct {
	// 规则名，用于审计与日志
	Name string
	// 命中条件
	When func(S) bool
	// 命中后的产出
	Then func(S) O
}

// EvaluateRules 自上而下求值规则表，首个命中生效。
// 返回产出、命中的规则名与是否命中。
func EvaluateRules[S, O any](rules []Rule[S, O], subject S) (O, string, bool) {
	for _, r := range rules {
		if r.When(subject) {
			return r.Then(subject), r.Name, true
		}
	}
	var zero O
	return zero, "", false
}
