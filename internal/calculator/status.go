package calculator

import "autoconvert/internal/model"

// Classify 汇总错误与警告得出单文件结论
// 所有阶段跑完后只调用一次：有任一错误即 Failed；
// 仅有白名单警告时 Attention；两者皆无为 Success
func Classify(errs []*model.ProcessingError, warns []*model.ProcessingWarning) model.Status {
	if len(errs) > 0 {
		return model.StatusFailed
	}
	if len(warns) > 0 {
		return model.StatusAttention
	}
	return model.StatusSuccess
}
