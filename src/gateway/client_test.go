package gateway

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{BaseURL: server.URL + "/"}, nil)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, body)
}

func TestPredictCropReturnsBackendObject(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/crop-predict", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(40), body["nitrogen"])
		assert.Equal(t, 6.5, body["ph"])

		writeJSON(w, http.StatusOK, `{"success":true,"prediction":"Wheat"}`)
	})

	result := client.PredictCrop(context.Background(), CropParams{
		Nitrogen: 40, Phosphorous: 30, Potassium: 20, PH: 6.5,
		Rainfall: 200, Temperature: 25, Humidity: 70,
	})

	require.True(t, result.OK())
	assert.Equal(t, map[string]interface{}{"success": true, "prediction": "Wheat"}, result.Envelope())
	assert.Equal(t, "Wheat", result.Prediction())
	assert.True(t, result.Succeeded())
}

func TestPredictPassesPayloadFieldForField(t *testing.T) {
	body := `{"success":true,"recommendations":{"nitrogen":"add urea"},"differences":{"nitrogen":12},"imageUrl":"/static/x.jpg"}`
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, body)
	})

	result := client.PredictFertilizer(context.Background(), FertilizerParams{CropName: "rice", Nitrogen: 10})
	require.True(t, result.OK())

	encoded, err := json.Marshal(result.Envelope())
	require.NoError(t, err)
	assert.JSONEq(t, body, string(encoded))
	assert.Equal(t, json.Number("12"), result.Payload["differences"].(map[string]interface{})["nitrogen"])
	assert.Equal(t, "/static/x.jpg", result.ImageURL())
}

func TestPredictKeepsLargeIntegers(t *testing.T) {
	body := `{"success":true,"prediction":"rice","batch":9007199254740993,"confidence":0.875}`
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, body)
	})

	result := client.Predict(context.Background(), KindCrop, Fields{"nitrogen": 1})
	require.True(t, result.OK())

	encoded, err := json.Marshal(result.Envelope())
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"batch":9007199254740993`)
	assert.Contains(t, string(encoded), `"confidence":0.875`)
}

func TestEnvelopeAddsSuccessOnlyWhenMissing(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"prediction":"Maize"}`)
	})

	result := client.Predict(context.Background(), KindCrop, Fields{"nitrogen": 1})
	require.True(t, result.OK())
	assert.Equal(t, Payload{"prediction": "Maize"}, result.Payload)
	assert.Equal(t, map[string]interface{}{"success": true, "prediction": "Maize"}, result.Envelope())
}

func TestPredictClassification(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
		kind        FailureKind
		message     string
	}{
		{
			name:        "非2xx HTML 不泄露正文",
			status:      http.StatusBadGateway,
			contentType: "text/html; charset=utf-8",
			body:        "<html><body>nginx secret page</body></html>",
			kind:        FailureServerHTML,
			message:     "Server error: 502 Bad Gateway",
		},
		{
			name:        "非2xx JSON 使用 error 字段",
			status:      http.StatusBadRequest,
			contentType: "application/json",
			body:        `{"success":false,"error":"invalid literal for int()"}`,
			kind:        FailureServerJSON,
			message:     "invalid literal for int()",
		},
		{
			name:        "非2xx JSON 无 error 字段",
			status:      http.StatusInternalServerError,
			contentType: "application/json",
			body:        `{"detail":"boom"}`,
			kind:        FailureServerJSON,
			message:     "Request failed with status 500",
		},
		{
			name:        "非2xx JSON 格式错误",
			status:      http.StatusServiceUnavailable,
			contentType: "application/json",
			body:        `{"error":`,
			kind:        FailureServerJSON,
			message:     "Request failed with status 503",
		},
		{
			name:        "非2xx 其他类型",
			status:      http.StatusNotFound,
			contentType: "text/plain",
			body:        "not found",
			kind:        FailureServerStatus,
			message:     "Request failed with status 404",
		},
		{
			name:        "2xx 非 JSON",
			status:      http.StatusOK,
			contentType: "text/plain",
			body:        "ok",
			kind:        FailureUnexpectedContentType,
			message:     "Expected JSON response from server",
		},
		{
			name:        "2xx JSON 格式错误",
			status:      http.StatusOK,
			contentType: "application/json",
			body:        `{"prediction":`,
			kind:        FailureMalformedJSON,
			message:     "Invalid JSON response from server",
		},
		{
			name:        "2xx JSON 数组",
			status:      http.StatusOK,
			contentType: "application/json",
			body:        `["Wheat"]`,
			kind:        FailureMalformedJSON,
			message:     "Invalid JSON response from server",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			result := client.Predict(context.Background(), KindCrop, Fields{"nitrogen": 40})

			require.False(t, result.OK())
			assert.Equal(t, tt.kind, result.Err.Kind)
			assert.Equal(t, tt.message, result.Err.Message)
			assert.Equal(t, tt.status, result.Status)
			assert.Equal(t, map[string]interface{}{"success": false, "error": tt.message}, result.Envelope())
			assert.NotContains(t, result.Message(), "<html>")
		})
	}
}

func TestHTMLErrorAlwaysCarriesStatusCode(t *testing.T) {
	for _, status := range []int{400, 403, 404, 500, 502, 503, 504} {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(status)
			io.WriteString(w, "<!DOCTYPE html><title>Oops</title>")
		})

		result := client.Predict(context.Background(), KindFertilizer, Fields{"cropname": "rice"})
		require.False(t, result.OK())
		assert.Contains(t, result.Message(), http.StatusText(status))
		assert.Contains(t, result.Message(), itoa(status))
		assert.NotContains(t, result.Message(), "Oops")
	}
}

func TestPredictPestUploadsImageField(t *testing.T) {
	image := []byte{0xFF, 0xD8, 0xFF, 0xE0, 1, 2, 3}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pest-predict", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, image, data)
		assert.Equal(t, "leaf.jpg", header.Filename)
		assert.Equal(t, "image/jpeg", header.Header.Get("Content-Type"))

		writeJSON(w, http.StatusOK, `{"success":true,"pest":"aphids","imageUrl":"/static/user_uploaded/leaf.jpg"}`)
	})

	result := client.PredictPest(context.Background(), ImageUpload{
		Filename: "../../leaf.jpg", ContentType: "image/jpeg", Data: image,
	})

	require.True(t, result.OK())
	assert.Equal(t, "aphids", result.Pest())
}

func TestPredictPestTooLarge(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusRequestEntityTooLarge, `{"error":"file too large"}`)
	})

	result := client.Predict(context.Background(), KindPest, ImageUpload{Filename: "big.png", Data: []byte("png")})

	assert.Equal(t, map[string]interface{}{"success": false, "error": "file too large"}, result.Envelope())
}

func TestPredictNetworkFailureResolves(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	client := NewClient(Config{BaseURL: "http://" + addr + "/api"}, nil)

	var result Result
	require.NotPanics(t, func() {
		result = client.PredictCrop(context.Background(), CropParams{Nitrogen: 40})
	})
	require.False(t, result.OK())
	assert.Equal(t, FailureNetwork, result.Err.Kind)
	assert.Equal(t, 0, result.Status)
	assert.NotEmpty(t, result.Err.Unwrap())
	assert.Equal(t, false, result.Envelope()["success"])
	assert.NotEmpty(t, result.Envelope()["error"])
}

func TestPredictRejectsInvalidRequests(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeJSON(w, http.StatusOK, `{}`)
	})

	tests := []struct {
		name   string
		kind   Kind
		params Params
	}{
		{name: "未知类型", kind: Kind("weather"), params: Fields{}},
		{name: "缺少参数", kind: KindCrop, params: nil},
		{name: "害虫接口收到JSON", kind: KindPest, params: Fields{"image": "x"}},
		{name: "作物接口收到图片", kind: KindCrop, params: ImageUpload{Data: []byte{1}}},
		{name: "空图片", kind: KindPest, params: ImageUpload{Filename: "a.jpg"}},
		{name: "无法编码的字段", kind: KindCrop, params: Fields{"ph": math.NaN()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := client.Predict(context.Background(), tt.kind, tt.params)
			require.False(t, result.OK())
			assert.Equal(t, FailureInvalidRequest, result.Err.Kind)
		})
	}
	assert.Zero(t, calls)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Pest ")
	require.NoError(t, err)
	assert.Equal(t, KindPest, k)

	_, err = ParseKind("soil")
	assert.Error(t, err)
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}
