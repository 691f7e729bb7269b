package soil

import (
	"fmt"
	"strconv"
)

// IdealRanges 各指标的理想区间（pH 展示区间为 6.0-7.0）
var IdealRanges = map[string]Range{
	"pH":            {Min: 6.0, Max: 7.0},
	"nitrogen":      {Min: 20, Max: 50},
	"phosphorous":   {Min: 10, Max: 30},
	"potassium":     {Min: 100, Max: 200},
	"organicCarbon": {Min: 1.0, Max: 2.0},
}

// pH 超过 7.5 才需要调酸
const phHighThreshold = 7.5

func classify(value float64, r Range) Level {
	switch {
	case value < r.Min:
		return LevelLow
	case value > r.Max:
		return LevelHigh
	default:
		return LevelOptimal
	}
}

// Analyze 评估土壤报告并生成建议
func Analyze(report Report) Analysis {
	levels := map[string]Level{
		"pH":            classify(report.PH, Range{Min: IdealRanges["pH"].Min, Max: phHighThreshold}),
		"nitrogen":      classify(report.Nitrogen, IdealRanges["nitrogen"]),
		"phosphorous":   classify(report.Phosphorous, IdealRanges["phosphorous"]),
		"potassium":     classify(report.Potassium, IdealRanges["potassium"]),
		"organicCarbon": classify(report.OrganicCarbon, IdealRanges["organicCarbon"]),
	}

	var phAdvice string
	switch levels["pH"] {
	case LevelLow:
		phAdvice = "adding lime to raise pH"
	case LevelHigh:
		phAdvice = "adding sulfur to lower pH"
	default:
		phAdvice = "maintaining current pH levels"
	}

	ranges := make(map[string]Range, len(IdealRanges))
	for k, v := range IdealRanges {
		ranges[k] = v
	}

	return Analysis{
		Report:      report,
		IdealRanges: ranges,
		Levels:      levels,
		Recommendations: []string{
			fmt.Sprintf("Based on your soil pH of %s, consider %s", strconv.FormatFloat(report.PH, 'f', 1, 64), phAdvice),
			fmt.Sprintf("Nitrogen levels are %s for most crops", levels["nitrogen"]),
			fmt.Sprintf("Phosphorous levels are %s", levels["phosphorous"]),
			fmt.Sprintf("Potassium levels are %s", levels["potassium"]),
		},
	}
}
