package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const (
	HealthStatusHealthy   = "healthy"
	HealthStatusUnhealthy = "unhealthy"
)

// Health 健康检查结果；后端返回 JSON 时即为原始响应体
type Health map[string]interface{}

// Status 状态字段
func (h Health) Status() string {
	s, _ := h["status"].(string)
	return s
}

// Healthy 后端是否健康
func (h Health) Healthy() bool {
	return h.Status() == HealthStatusHealthy
}

func unhealthy(reason string) Health {
	return Health{"status": HealthStatusUnhealthy, "error": reason}
}

// HealthCheck 探测后端 /health 接口，失败时降级为 unhealthy
func (c *Client) HealthCheck(ctx context.Context) Health {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return unhealthy(err.Error())
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("健康检查失败", map[string]interface{}{"error": err.Error()})
		return unhealthy(networkFailureMessage)
	}
	defer drainAndClose(resp.Body)

	if !isSuccessStatus(resp.StatusCode) {
		c.logger.Warn("健康检查返回异常状态", map[string]interface{}{"status": resp.StatusCode})
		return unhealthy(fmt.Sprintf("Server returned %d", resp.StatusCode))
	}

	if strings.Contains(strings.ToLower(resp.Header.Get("Content-Type")), "application/json") {
		var body Health
		if err := decodeJSON(resp.Body, &body); err != nil || body == nil {
			return unhealthy(malformedJSONMessage)
		}
		return body
	}

	// 非 JSON 响应，只要能响应就认为健康
	return Health{"status": HealthStatusHealthy, "message": "Server is responding"}
}
