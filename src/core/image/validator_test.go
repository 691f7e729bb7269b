package image

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"testing"

	"agropulse/src/configs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *configs.SecurityConfig {
	return &configs.SecurityConfig{
		MaxFileSize:    1 << 20,
		MaxPixels:      10_000,
		MaxWidth:       200,
		MaxHeight:      200,
		AllowedFormats: []string{"jpeg", "jpg", "png", "webp"},
		EnableDeepScan: true,
	}
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 10, G: 200, B: 30, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeGIF(t *testing.T) []byte {
	t.Helper()
	img := image.NewPaletted(image.Rect(0, 0, 4, 4), color.Palette{color.Black, color.White})
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestValidateAcceptsPNG(t *testing.T) {
	v := NewUploadValidator(testConfig(), nil)

	result := v.Validate(Upload{Filename: "leaf.png", ContentType: "image/png", Data: encodePNG(t, 32, 16)})

	require.True(t, result.IsValid, "error: %v", result.Error)
	assert.Equal(t, "png", result.Format)
	assert.Equal(t, 32, result.Width)
	assert.Equal(t, 16, result.Height)
	assert.Equal(t, UploadMetrics{TotalValidated: 1}, v.Metrics())
}

func TestValidateRejections(t *testing.T) {
	pngData := encodePNG(t, 8, 8)

	tests := []struct {
		name   string
		cfg    func(*configs.SecurityConfig)
		upload Upload
		err    error
	}{
		{
			name:   "空文件",
			upload: Upload{Filename: "a.png"},
			err:    ErrEmptyUpload,
		},
		{
			name:   "超过大小",
			cfg:    func(c *configs.SecurityConfig) { c.MaxFileSize = 10 },
			upload: Upload{Filename: "a.png", Data: pngData},
			err:    ErrFileTooLarge,
		},
		{
			name:   "声明格式不允许",
			upload: Upload{Filename: "a.bmp", Data: pngData},
			err:    ErrUnsupportedFormat,
		},
		{
			name:   "实际格式不允许",
			upload: Upload{Filename: "anim", ContentType: "application/octet-stream", Data: encodeGIF(t)},
			err:    ErrUnsupportedFormat,
		},
		{
			name:   "可执行文件",
			upload: Upload{Filename: "a.jpg", Data: append([]byte{0x4D, 0x5A}, bytes.Repeat([]byte{0}, 64)...)},
			err:    ErrSuspiciousContent,
		},
		{
			name:   "SVG 脚本",
			upload: Upload{Filename: "a.png", Data: []byte(`<svg><script>alert(1)</script></svg>`)},
			err:    ErrSuspiciousContent,
		},
		{
			name:   "无法解码",
			upload: Upload{Filename: "a.jpg", ContentType: "image/jpeg", Data: []byte{0xFF, 0xD8, 0x00, 0x01}},
			err:    ErrUndecodable,
		},
		{
			name:   "宽度超限",
			upload: Upload{Filename: "wide.png", Data: encodePNG(t, 300, 1)},
			err:    ErrDimensionsTooBig,
		},
		{
			name:   "像素超限",
			upload: Upload{Filename: "big.png", Data: encodePNG(t, 150, 150)},
			err:    ErrDimensionsTooBig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			if tt.cfg != nil {
				tt.cfg(cfg)
			}
			v := NewUploadValidator(cfg, nil)

			result := v.Validate(tt.upload)

			assert.False(t, result.IsValid)
			assert.ErrorIs(t, result.Error, tt.err)
			assert.Equal(t, int64(1), v.Metrics().FailedValidations)
		})
	}
}

func TestDeepScanDisabledSkipsSignatureCheck(t *testing.T) {
	cfg := testConfig()
	cfg.EnableDeepScan = false
	v := NewUploadValidator(cfg, nil)

	result := v.Validate(Upload{Filename: "a.jpg", Data: []byte{0x4D, 0x5A, 0x00}})

	assert.ErrorIs(t, result.Error, ErrUndecodable)
	assert.Zero(t, v.Metrics().SecurityIncidents)
}

func TestDeclaredFormat(t *testing.T) {
	assert.Equal(t, "png", DeclaredFormat("x.jpg", "image/png; charset=binary"))
	assert.Equal(t, "jpeg", DeclaredFormat("photo.JPG", ""))
	assert.Equal(t, "webp", DeclaredFormat("leaf.webp", "application/octet-stream"))
	assert.Equal(t, "", DeclaredFormat("noext", ""))
}

func TestValidateFileSignature(t *testing.T) {
	assert.True(t, validateFileSignature(encodePNG(t, 1, 1), "png"))
	assert.False(t, validateFileSignature([]byte("RIFF0000WAVE"), "webp"))
	assert.True(t, validateFileSignature([]byte("RIFF0000WEBP"), "webp"))
}
