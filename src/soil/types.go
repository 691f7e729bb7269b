package soil

// Report 土壤分析结果，字段名与前端保持一致
type Report struct {
	PH            float64 `json:"pH"`
	Nitrogen      float64 `json:"nitrogen"`      // mg/kg
	Phosphorous   float64 `json:"phosphorous"`   // mg/kg
	Potassium     float64 `json:"potassium"`     // mg/kg
	OrganicCarbon float64 `json:"organicCarbon"` // %
	Clay          float64 `json:"clay"`          // %
	Sand          float64 `json:"sand"`          // %
	Silt          float64 `json:"silt"`          // %
	CEC           float64 `json:"cec"`           // cmol/kg
}

// Location 经纬度
type Location struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	DisplayName string  `json:"displayName,omitempty"`
}

// Range 理想区间
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Level 指标水平
type Level string

const (
	LevelLow     Level = "low"
	LevelOptimal Level = "optimal"
	LevelHigh    Level = "high"
)

// Analysis 带理想区间与评估的分析结果
type Analysis struct {
	Report          Report           `json:"soil"`
	IdealRanges     map[string]Range `json:"idealRanges"`
	Levels          map[string]Level `json:"levels"`
	Recommendations []string         `json:"recommendations"`
}
