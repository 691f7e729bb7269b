package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"path/filepath"
	"strings"
)

// Kind 预测类型，决定调用的后端接口
type Kind string

const (
	KindCrop       Kind = "crop"
	KindFertilizer Kind = "fertilizer"
	KindPest       Kind = "pest"
)

var endpoints = map[Kind]string{
	KindCrop:       "/crop-predict",
	KindFertilizer: "/fertilizer-predict",
	KindPest:       "/pest-predict",
}

// Endpoint 返回该类型对应的接口路径
func (k Kind) Endpoint() (string, bool) {
	path, ok := endpoints[k]
	return path, ok
}

// Multipart 该类型是否使用 multipart 上传
func (k Kind) Multipart() bool {
	return k == KindPest
}

// ParseKind 从字符串解析预测类型
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := endpoints[k]; !ok {
		return "", fmt.Errorf("unknown prediction kind: %q", s)
	}
	return k, nil
}

// Params 请求参数：JSON 字段或 multipart 图片
type Params interface {
	// Encode 返回请求体与 Content-Type
	Encode() (io.Reader, string, error)
	Multipart() bool
}

// Fields 平铺的 JSON 请求字段
type Fields map[string]interface{}

func (f Fields) Encode() (io.Reader, string, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, "", err
	}
	return bytes.NewReader(data), "application/json", nil
}

func (f Fields) Multipart() bool { return false }

// CropParams 作物推荐表单
type CropParams struct {
	Nitrogen    float64 `json:"nitrogen"`
	Phosphorous float64 `json:"phosphorous"`
	Potassium   float64 `json:"potassium"`
	PH          float64 `json:"ph"`
	Rainfall    float64 `json:"rainfall"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
}

// Fields 转为 JSON 请求字段
func (p CropParams) Fields() Fields {
	return Fields{
		"nitrogen":    p.Nitrogen,
		"phosphorous": p.Phosphorous,
		"potassium":   p.Potassium,
		"ph":          p.PH,
		"rainfall":    p.Rainfall,
		"temperature": p.Temperature,
		"humidity":    p.Humidity,
	}
}

func (p CropParams) Encode() (io.Reader, string, error) { return p.Fields().Encode() }

func (p CropParams) Multipart() bool { return false }

// FertilizerParams 肥料推荐表单
type FertilizerParams struct {
	CropName    string  `json:"cropname" binding:"required"`
	Nitrogen    float64 `json:"nitrogen"`
	Phosphorous float64 `json:"phosphorous"`
	Potassium   float64 `json:"potassium"`
}

// Fields 转为 JSON 请求字段
func (p FertilizerParams) Fields() Fields {
	return Fields{
		"cropname":    p.CropName,
		"nitrogen":    p.Nitrogen,
		"phosphorous": p.Phosphorous,
		"potassium":   p.Potassium,
	}
}

func (p FertilizerParams) Encode() (io.Reader, string, error) { return p.Fields().Encode() }

func (p FertilizerParams) Multipart() bool { return false }

// ImageFieldName multipart 中图片字段名
const ImageFieldName = "image"

// ImageUpload 害虫图片上传
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (u ImageUpload) Encode() (io.Reader, string, error) {
	if len(u.Data) == 0 {
		return nil, "", errEmptyImage
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	filename := filepath.Base(u.Filename)
	if filename == "." || filename == string(filepath.Separator) {
		filename = ""
	}
	contentType := u.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="%s"; filename="%s"`, ImageFieldName, escapeQuotes(filename)))
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(u.Data); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buf, writer.FormDataContentType(), nil
}

func (u ImageUpload) Multipart() bool { return true }

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
