// Package store 持久化土壤分析交接数据与操作记录
package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"agropulse/src/models"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("record not found")

// Store gorm 存储
type Store struct {
	db *gorm.DB
}

// New 创建存储
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// SaveHandoff 保存客户端的土壤分析结果，已存在时覆盖
func (s *Store) SaveHandoff(ctx context.Context, handoff *models.SoilHandoff) error {
	if handoff.ClientID == "" {
		return errors.New("client id is required")
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "client_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"ph", "nitrogen", "phosphorus", "potassium", "report", "updated_at"}),
	}).Create(handoff).Error
	if err != nil {
		return fmt.Errorf("保存土壤数据失败: %w", err)
	}
	return nil
}

// LoadHandoff 读取客户端最近一次保存的土壤分析结果
func (s *Store) LoadHandoff(ctx context.Context, clientID string) (*models.SoilHandoff, error) {
	var handoff models.SoilHandoff
	err := s.db.WithContext(ctx).Where("client_id = ?", clientID).First(&handoff).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("读取土壤数据失败: %w", err)
	}
	return &handoff, nil
}

// RecordActivity 记录一次操作
func (s *Store) RecordActivity(ctx context.Context, activity *models.Activity) error {
	if err := s.db.WithContext(ctx).Create(activity).Error; err != nil {
		return fmt.Errorf("记录操作失败: %w", err)
	}
	return nil
}

// RecentActivities 按时间倒序返回指定客户端最近的操作记录
func (s *Store) RecentActivities(ctx context.Context, clientID string, limit int) ([]models.Activity, error) {
	if limit <= 0 {
		limit = 10
	}
	var activities []models.Activity
	err := s.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&activities).Error
	if err != nil {
		return nil, fmt.Errorf("读取操作记录失败: %w", err)
	}
	return activities, nil
}
