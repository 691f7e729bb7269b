package dashboard

import (
	"fmt"
	"strings"
	"time"
)

// ReportFilename 导出报告的文件名
func ReportFilename(now time.Time) string {
	return fmt.Sprintf("farm-report-%s.txt", now.UTC().Format("2006-01-02"))
}

// BuildReport 生成纯文本农场报告
func BuildReport(stats FarmStats, now time.Time) string {
	var b strings.Builder
	b.WriteString("AgriSmart Farm Report\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", now.Format("1/2/2006, 3:04:05 PM"))
	fmt.Fprintf(&b, "Total Crops: %d\n", stats.TotalCrops)
	fmt.Fprintf(&b, "Fertilizer Used: %dkg\n", stats.FertilizerUsed)
	fmt.Fprintf(&b, "Pests Detected: %d\n", stats.PestsDetected)
	fmt.Fprintf(&b, "Soil Tests: %d", stats.SoilTests)
	return b.String()
}
