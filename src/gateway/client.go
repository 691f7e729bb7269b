// Package gateway 预测网关客户端：负责与远端预测服务通信，
// 对响应进行分类并统一返回 Result，调用方永远不会收到 error 或 panic。
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"agropulse/src/configs"
	"agropulse/src/core/utils"
)

// 响应体读取上限
const maxBodyBytes = 10 << 20

var errEmptyImage = errors.New("Please select an image first")

// Config 网关客户端配置
type Config struct {
	BaseURL    string
	Timeout    time.Duration // 0 表示不设置超时
	HTTPClient *http.Client
}

// ConfigFrom 从全局配置构造网关配置
func ConfigFrom(gc configs.GatewayConfig) Config {
	return Config{
		BaseURL: gc.ResolveBaseURL(),
		Timeout: configs.ParseDuration(gc.Timeout, 0),
	}
}

// Client 预测网关客户端，无内部可变状态，可并发使用
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *utils.TaggedLogger
}

// NewClient 创建网关客户端
func NewClient(cfg Config, logger *utils.Logger) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = utils.NopLogger()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		logger:     logger.WithTag("gateway"),
	}
}

// BaseURL 当前使用的预测服务地址
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Predict 调用 kind 对应的预测接口，所有失败都转换为失败的 Result
func (c *Client) Predict(ctx context.Context, kind Kind, params Params) Result {
	start := time.Now()

	req, ferr := c.newPredictRequest(ctx, kind, params)
	if ferr != nil {
		c.logger.Warn("预测请求构造失败", map[string]interface{}{
			"kind":  kind,
			"error": ferr.Message,
		})
		return failure(ferr)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("预测服务连接失败", map[string]interface{}{
			"kind":  kind,
			"url":   req.URL.String(),
			"error": err.Error(),
		})
		return failure(&Error{Kind: FailureNetwork, Message: networkFailureMessage, Err: err})
	}
	defer drainAndClose(resp.Body)

	result := classify(resp)
	fields := map[string]interface{}{
		"kind":        kind,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if result.Err != nil {
		fields["failure"] = result.Err.Kind
		fields["error"] = result.Err.Message
		c.logger.Warn("预测请求失败", fields)
	} else {
		c.logger.Info("预测请求完成", fields)
	}
	return result
}

// PredictCrop 作物推荐
func (c *Client) PredictCrop(ctx context.Context, params CropParams) Result {
	return c.Predict(ctx, KindCrop, params)
}

// PredictFertilizer 肥料推荐
func (c *Client) PredictFertilizer(ctx context.Context, params FertilizerParams) Result {
	return c.Predict(ctx, KindFertilizer, params)
}

// PredictPest 害虫图片识别
func (c *Client) PredictPest(ctx context.Context, upload ImageUpload) Result {
	return c.Predict(ctx, KindPest, upload)
}

func (c *Client) newPredictRequest(ctx context.Context, kind Kind, params Params) (*http.Request, *Error) {
	path, ok := kind.Endpoint()
	if !ok {
		return nil, invalidRequest("unknown prediction kind: %q", string(kind))
	}
	if params == nil {
		return nil, invalidRequest("missing request parameters for %s prediction", kind)
	}
	if params.Multipart() != kind.Multipart() {
		if kind.Multipart() {
			return nil, invalidRequest("%s prediction requires an image upload", kind)
		}
		return nil, invalidRequest("%s prediction requires JSON fields", kind)
	}

	body, contentType, err := params.Encode()
	if err != nil {
		if errors.Is(err, errEmptyImage) {
			return nil, &Error{Kind: FailureInvalidRequest, Message: err.Error(), Err: err}
		}
		return nil, &Error{Kind: FailureInvalidRequest, Message: "Failed to encode request: " + err.Error(), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, &Error{Kind: FailureInvalidRequest, Message: "Failed to build request", Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// classify 按顺序对响应分类：非 2xx 先看 HTML，再看 JSON，最后按状态码；
// 2xx 只接受 JSON 对象
func classify(resp *http.Response) Result {
	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	isHTML := strings.Contains(contentType, "text/html")
	isJSON := strings.Contains(contentType, "application/json")
	status := resp.StatusCode

	if !isSuccessStatus(status) {
		switch {
		case isHTML:
			// 代理或错误页面，不读取正文
			return failure(&Error{
				Kind:    FailureServerHTML,
				Status:  status,
				Message: "Server error: " + statusLine(resp),
			})
		case isJSON:
			ferr := statusFailure(FailureServerJSON, status)
			var body map[string]interface{}
			if err := decodeJSON(resp.Body, &body); err == nil {
				if msg, ok := body["error"].(string); ok && msg != "" {
					ferr.Message = msg
				}
			}
			return failure(ferr)
		default:
			return failure(statusFailure(FailureServerStatus, status))
		}
	}

	if !isJSON {
		return failure(&Error{Kind: FailureUnexpectedContentType, Status: status, Message: expectedJSONMessage})
	}

	var payload Payload
	if err := decodeJSON(resp.Body, &payload); err != nil || payload == nil {
		return failure(&Error{Kind: FailureMalformedJSON, Status: status, Message: malformedJSONMessage, Err: err})
	}
	return success(status, payload)
}

func isSuccessStatus(status int) bool {
	return status >= 200 && status <= 299
}

// decodeJSON 数字保留为 json.Number，重新编码时不丢精度
func decodeJSON(r io.Reader, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r, maxBodyBytes))
	dec.UseNumber()
	return dec.Decode(v)
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxBodyBytes))
	_ = body.Close()
}
