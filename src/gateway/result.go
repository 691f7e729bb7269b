package gateway

import (
	"fmt"
	"net/http"
)

// FailureKind 网关失败分类
type FailureKind string

const (
	FailureNetwork               FailureKind = "network_failure"
	FailureServerHTML            FailureKind = "server_html_error"
	FailureServerJSON            FailureKind = "server_json_error"
	FailureServerStatus          FailureKind = "server_status_error"
	FailureUnexpectedContentType FailureKind = "unexpected_content_type"
	FailureMalformedJSON         FailureKind = "malformed_json"
	FailureInvalidRequest        FailureKind = "invalid_request"
)

const (
	networkFailureMessage = "Failed to connect to the prediction server"
	expectedJSONMessage   = "Expected JSON response from server"
	malformedJSONMessage  = "Invalid JSON response from server"
)

// Error 网关错误，Message 是可以直接展示给用户的文本
type Error struct {
	Kind    FailureKind
	Status  int // HTTP 状态码，未收到响应时为 0
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func statusFailure(kind FailureKind, status int) *Error {
	return &Error{
		Kind:    kind,
		Status:  status,
		Message: fmt.Sprintf("Request failed with status %d", status),
	}
}

func invalidRequest(format string, args ...interface{}) *Error {
	return &Error{Kind: FailureInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

// Payload 后端 2xx JSON 响应体，原样保留全部字段
type Payload map[string]interface{}

// Result 一次网关调用的结果：Payload 与 Err 有且仅有一个非空
type Result struct {
	Payload Payload
	Err     *Error
	Status  int
}

func success(status int, payload Payload) Result {
	return Result{Payload: payload, Status: status}
}

func failure(err *Error) Result {
	return Result{Err: err, Status: err.Status}
}

// OK 请求是否成功（与业务结果无关）
func (r Result) OK() bool {
	return r.Err == nil
}

// Envelope 渲染统一响应信封
func (r Result) Envelope() map[string]interface{} {
	if r.Err != nil {
		return map[string]interface{}{
			"success": false,
			"error":   r.Err.Message,
		}
	}
	envelope := make(map[string]interface{}, len(r.Payload)+1)
	for k, v := range r.Payload {
		envelope[k] = v
	}
	if _, ok := envelope["success"]; !ok {
		envelope["success"] = true
	}
	return envelope
}

// Succeeded 后端是否报告业务成功
func (r Result) Succeeded() bool {
	if r.Err != nil {
		return false
	}
	if v, ok := r.Payload["success"].(bool); ok {
		return v
	}
	return true
}

// Prediction 作物/肥料预测结果
func (r Result) Prediction() string {
	return r.stringField("prediction")
}

// Pest 识别出的害虫名称
func (r Result) Pest() string {
	return r.stringField("pest")
}

// ImageURL 结果配图地址
func (r Result) ImageURL() string {
	return r.stringField("imageUrl")
}

// Message 失败时的错误文本，成功时为空
func (r Result) Message() string {
	if r.Err != nil {
		return r.Err.Message
	}
	if s, ok := r.Payload["error"].(string); ok {
		return s
	}
	return ""
}

func (r Result) stringField(key string) string {
	if r.Payload == nil {
		return ""
	}
	s, _ := r.Payload[key].(string)
	return s
}

// statusLine 返回 "<code> <text>"，不读取响应体
func statusLine(resp *http.Response) string {
	if resp.Status != "" {
		return resp.Status
	}
	return fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
}
