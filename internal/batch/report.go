package batch

import (
	"fmt"
	"log"

	"autoconvert/internal/model"
)

const (
	sepMajor = "==========================================================================="
	sepMinor = "---------------------------------------------------------------------------"
)

// PrintSummary 打印批处理汇总：计数、耗时、失败与待复核文件明细
func PrintSummary(result model.BatchResult) {
	log.Println(sepMajor)
	log.Println("                   BATCH PROCESSING SUMMARY")
	log.Println(sepMajor)
	log.Printf("Total files:        %d", result.TotalFiles)
	log.Printf("Successful:         %d", result.SuccessCount)
	log.Printf("Attention:          %d", result.AttentionCount)
	log.Printf("Failed:             %d", result.FailedCount)
	log.Printf("Processing time:    %.2f seconds", result.ProcessingTime)
	log.Printf("Log file:           %s", result.LogPath)
	log.Println(sepMajor)

	hasFailed := result.FailedCount > 0
	hasAttention := result.AttentionCount > 0

	if hasFailed {
		log.Println("FAILED FILES:")
		for _, fr := range result.FileResults {
			if fr.Status != model.StatusFailed {
				continue
			}
			log.Printf("  %s:", fr.Filename)
			for _, line := range condenseErrors(fr.Errors) {
				log.Printf("    %s", line)
			}
		}
	}

	// 两节都有时中间加分隔线
	if hasFailed && hasAttention {
		log.Println(sepMinor)
	}

	if hasAttention {
		log.Println("FILES NEEDING ATTENTION:")
		for _, fr := range result.FileResults {
			if fr.Status != model.StatusAttention {
				continue
			}
			log.Printf("  %s:", fr.Filename)
			for _, w := range fr.Warnings {
				log.Printf("    %s: %s", w.Code, w.Message)
			}
		}
	}
}

// condenseErrors 同一错误码在单文件内折叠为一条，附出现次数
// 顺序保持各码首次出现的先后
func condenseErrors(errs []*model.ProcessingError) []string {
	var order []model.ErrorCode
	groups := make(map[model.ErrorCode][]*model.ProcessingError)
	for _, e := range errs {
		if _, seen := groups[e.Code]; !seen {
			order = append(order, e.Code)
		}
		groups[e.Code] = append(groups[e.Code], e)
	}

	lines := make([]string, 0, len(order))
	for _, code := range order {
		group := groups[code]
		msg := group[0].Message
		if len(group) > 1 {
			msg = fmt.Sprintf("%s (%d occurrences)", msg, len(group))
		}
		lines = append(lines, fmt.Sprintf("%s: %s", code, msg))
	}
	return lines
}
