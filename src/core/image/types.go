package image

// Upload 待校验的上传文件
type Upload struct {
	Filename    string // 客户端提供的文件名
	ContentType string // 客户端声明的 MIME 类型
	Data        []byte
}

// ValidationResult 上传图片校验结果
type ValidationResult struct {
	IsValid      bool   // 是否有效
	Format       string // 解码得到的实际格式
	Width        int    // 图片宽度
	Height       int    // 图片高度
	FileSize     int64  // 文件大小
	Error        error  // 面向用户的错误
	SecurityRisk string // 安全风险描述，仅记录日志
}

// UploadMetrics 上传校验统计
type UploadMetrics struct {
	TotalValidated    int64 // 总校验次数
	FailedValidations int64 // 校验失败次数
	SecurityIncidents int64 // 安全事件次数
}
