package image

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"sync/atomic"

	"agropulse/src/configs"
	"agropulse/src/core/utils"

	_ "image/gif"  // 注册GIF解码器
	_ "image/jpeg" // 注册JPEG解码器
	_ "image/png"  // 注册PNG解码器

	_ "golang.org/x/image/webp" // 注册WEBP解码器
)

var (
	ErrEmptyUpload       = errors.New("Please select an image first")
	ErrFileTooLarge      = errors.New("Image file is too large")
	ErrUnsupportedFormat = errors.New("Unsupported image format")
	ErrSuspiciousContent = errors.New("Image failed the security check")
	ErrUndecodable       = errors.New("File is not a valid image")
	ErrDimensionsTooBig  = errors.New("Image dimensions are too large")
)

// 图片格式魔数签名
var imageSignatures = map[string][]byte{
	"jpeg": {0xFF, 0xD8},
	"jpg":  {0xFF, 0xD8},
	"png":  {0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
	"gif":  {0x47, 0x49, 0x46, 0x38},
	"webp": {0x52, 0x49, 0x46, 0x46}, // RIFF，还需检查 WEBP 标识
}

var mimeFormats = map[string]string{
	"image/jpeg": "jpeg",
	"image/jpg":  "jpeg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// UploadValidator 上传图片安全校验器，可并发使用
type UploadValidator struct {
	config  *configs.SecurityConfig
	logger  *utils.TaggedLogger
	metrics UploadMetrics
}

// NewUploadValidator 创建上传图片校验器
func NewUploadValidator(config *configs.SecurityConfig, logger *utils.Logger) *UploadValidator {
	if logger == nil {
		logger = utils.NopLogger()
	}
	return &UploadValidator{
		config: config,
		logger: logger.WithTag("upload"),
	}
}

// Metrics 返回统计快照
func (v *UploadValidator) Metrics() UploadMetrics {
	return UploadMetrics{
		TotalValidated:    atomic.LoadInt64(&v.metrics.TotalValidated),
		FailedValidations: atomic.LoadInt64(&v.metrics.FailedValidations),
		SecurityIncidents: atomic.LoadInt64(&v.metrics.SecurityIncidents),
	}
}

// Validate 校验上传文件：大小、格式、内容扫描、解码与尺寸
func (v *UploadValidator) Validate(upload Upload) ValidationResult {
	atomic.AddInt64(&v.metrics.TotalValidated, 1)

	result := v.validate(upload)
	if !result.IsValid {
		atomic.AddInt64(&v.metrics.FailedValidations, 1)
		v.logger.Warn("上传图片校验失败", map[string]interface{}{
			"filename": filepath.Base(upload.Filename),
			"size":     len(upload.Data),
			"error":    result.Error.Error(),
			"risk":     result.SecurityRisk,
		})
	}
	return result
}

func (v *UploadValidator) validate(upload Upload) ValidationResult {
	data := upload.Data
	result := ValidationResult{FileSize: int64(len(data))}

	if len(data) == 0 {
		result.Error = ErrEmptyUpload
		return result
	}

	// 1. 大小检查
	if v.config.MaxFileSize > 0 && int64(len(data)) > v.config.MaxFileSize {
		result.Error = ErrFileTooLarge
		result.SecurityRisk = fmt.Sprintf("文件大小 %d 超过上限 %d", len(data), v.config.MaxFileSize)
		return result
	}

	// 2. 声明格式检查
	declared := DeclaredFormat(upload.Filename, upload.ContentType)
	if declared != "" && !v.isFormatAllowed(declared) {
		result.Error = ErrUnsupportedFormat
		result.SecurityRisk = "使用了不被允许的格式: " + declared
		return result
	}

	// 3. 恶意内容检测
	if v.config.EnableDeepScan {
		if risk := scanForMaliciousContent(data); risk != "" {
			atomic.AddInt64(&v.metrics.SecurityIncidents, 1)
			result.Error = ErrSuspiciousContent
			result.SecurityRisk = risk
			return result
		}
	}

	// 4. 解码校验
	cfg, actual, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		result.Error = ErrUndecodable
		result.SecurityRisk = "解码失败: " + err.Error()
		if declared != "" && !validateFileSignature(data, declared) {
			result.SecurityRisk += "，文件头与声明格式不符"
		}
		return result
	}
	result.Format = actual
	if !v.isFormatAllowed(actual) {
		result.Error = ErrUnsupportedFormat
		result.SecurityRisk = "实际格式不被允许: " + actual
		return result
	}

	// 5. 尺寸检查
	if (v.config.MaxWidth > 0 && cfg.Width > v.config.MaxWidth) ||
		(v.config.MaxHeight > 0 && cfg.Height > v.config.MaxHeight) {
		result.Error = ErrDimensionsTooBig
		result.SecurityRisk = fmt.Sprintf("图片尺寸 %dx%d 超限", cfg.Width, cfg.Height)
		return result
	}
	totalPixels := int64(cfg.Width) * int64(cfg.Height)
	if v.config.MaxPixels > 0 && totalPixels > v.config.MaxPixels {
		result.Error = ErrDimensionsTooBig
		result.SecurityRisk = fmt.Sprintf("像素总数 %d 超限", totalPixels)
		return result
	}

	result.IsValid = true
	result.Width = cfg.Width
	result.Height = cfg.Height

	v.logger.Debug("上传图片校验通过", map[string]interface{}{
		"format": result.Format,
		"width":  result.Width,
		"height": result.Height,
		"size":   result.FileSize,
	})
	return result
}

// DeclaredFormat 根据 MIME 类型或文件扩展名推断声明格式
func DeclaredFormat(filename, contentType string) string {
	mediaType := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	if format, ok := mimeFormats[mediaType]; ok {
		return format
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "jpg" {
		return "jpeg"
	}
	return ext
}

func (v *UploadValidator) isFormatAllowed(format string) bool {
	format = strings.ToLower(format)
	for _, allowed := range v.config.AllowedFormats {
		if strings.ToLower(allowed) == format {
			return true
		}
	}
	return false
}

func validateFileSignature(data []byte, format string) bool {
	signature, exists := imageSignatures[strings.ToLower(format)]
	if !exists || !bytes.HasPrefix(data, signature) {
		return false
	}
	if strings.ToLower(format) == "webp" {
		return len(data) >= 12 && bytes.Equal(data[8:12], []byte("WEBP"))
	}
	return true
}

var fileSignatures = []struct {
	name      string
	signature []byte
}{
	{"PE", []byte{0x4D, 0x5A}},
	{"ELF", []byte{0x7F, 0x45, 0x4C, 0x46}},
	{"Mach-O", []byte{0xCA, 0xFE, 0xBA, 0xBE}},
	{"ZIP", []byte{0x50, 0x4B, 0x03, 0x04}},
	{"GZIP", []byte{0x1F, 0x8B, 0x08}},
}

var suspiciousScripts = []string{
	"<script",
	"javascript:",
	"vbscript:",
	"onload=",
	"onerror=",
	"<iframe",
	"<object",
	"<embed",
}

// scanForMaliciousContent 返回风险描述，安全时返回空串
func scanForMaliciousContent(data []byte) string {
	for _, s := range fileSignatures {
		if bytes.HasPrefix(data, s.signature) {
			return "文件开头检测到" + s.name + "签名"
		}
	}

	lower := bytes.ToLower(data)
	if bytes.Contains(lower, []byte("<svg")) {
		for _, suspicious := range suspiciousScripts {
			if bytes.Contains(lower, []byte(suspicious)) {
				return "SVG 中包含可疑脚本: " + suspicious
			}
		}
	}
	return ""
}
