package models

import (
	"time"

	"gorm.io/datatypes"
)

// SoilHandoff 土壤分析结果，供作物推荐表单预填（每个客户端一条）
type SoilHandoff struct {
	ID         uint   `gorm:"primaryKey"`
	ClientID   string `gorm:"uniqueIndex;size:64;not null"`
	PH         float64
	Nitrogen   float64
	Phosphorus float64
	Potassium  float64
	Report     datatypes.JSON // 完整分析报告
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Activity 预测与分析操作记录，用于仪表盘最近活动
type Activity struct {
	ID        uint   `gorm:"primaryKey"`
	ClientID  string `gorm:"index;size:64"`
	Action    string `gorm:"size:64;not null"`
	Details   string `gorm:"type:text"`
	Success   bool
	CreatedAt time.Time `gorm:"index"`
}

// All 需要自动迁移的模型
func All() []interface{} {
	return []interface{}{&SoilHandoff{}, &Activity{}}
}
