package soil

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"agropulse/src/configs"
)

var ErrLocationNotFound = errors.New("Location not found. Please try a different address.")

// Geocoder 地址转经纬度
type Geocoder interface {
	Geocode(ctx context.Context, query string) (*Location, error)
}

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// NominatimGeocoder 基于 OpenStreetMap Nominatim 的地理编码
type NominatimGeocoder struct {
	client *resty.Client
}

// NewNominatimGeocoder 创建地理编码客户端
func NewNominatimGeocoder(cfg configs.GeocodeConfig) *NominatimGeocoder {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.URL, "/")).
		SetTimeout(configs.ParseDuration(cfg.Timeout, 10*time.Second)).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json")
	return &NominatimGeocoder{client: client}
}

// Geocode 查询第一个匹配地点
func (g *NominatimGeocoder) Geocode(ctx context.Context, query string) (*Location, error) {
	var places []nominatimPlace
	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":      query,
			"format": "json",
			"limit":  "1",
		}).
		SetResult(&places).
		Get("/search")
	if err != nil {
		return nil, fmt.Errorf("地理编码请求失败: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("地理编码服务返回 %d", resp.StatusCode())
	}
	if len(places) == 0 {
		return nil, ErrLocationNotFound
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("无效的纬度 %q: %w", places[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("无效的经度 %q: %w", places[0].Lon, err)
	}
	return &Location{Latitude: lat, Longitude: lon, DisplayName: places[0].DisplayName}, nil
}
