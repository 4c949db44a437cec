package model

// Failure 是失败报告中的一行，用于人工重跑。
type Failure struct {
	ID     string
	Reason string
}
