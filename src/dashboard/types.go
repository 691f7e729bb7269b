package dashboard

// FarmStats 农场统计
type FarmStats struct {
	TotalCrops     int `json:"totalCrops"`
	FertilizerUsed int `json:"fertilizerUsed"` // kg
	PestsDetected  int `json:"pestsDetected"`
	SoilTests      int `json:"soilTests"`
}

// Weather 天气概况
type Weather struct {
	Temperature int     `json:"temperature"` // °C
	Humidity    int     `json:"humidity"`    // %
	Rainfall    float64 `json:"rainfall"`    // mm
	Condition   string  `json:"condition"`
}

// Activity 最近活动
type Activity struct {
	Action  string `json:"action"`
	Details string `json:"details"`
	Time    string `json:"time"`
	Success bool   `json:"success"`
}

// Dashboard 仪表盘数据
type Dashboard struct {
	FarmStats        FarmStats  `json:"farmStats"`
	Weather          Weather    `json:"weather"`
	RecentActivities []Activity `json:"recentActivities"`
	Recommendations  []string   `json:"recommendations"`
}

// DefaultRecommendations 通用农事建议
var DefaultRecommendations = []string{
	"Water crops in the morning for better absorption",
	"Consider rotating crops next season",
	"Add organic compost to improve soil quality",
}
