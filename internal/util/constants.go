package util

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// StatusClientClosedRequest 客户端在响应前断开（nginx 约定的 499）
const StatusClientClosedRequest = 499

// gin 上下文键
const (
	ContextClaimsKey = "claims"
	RequestIDKey     = "request_id"
	RequestIDHeader  = "X-Request-ID"
)

// 知识库上传相关常量
const (
	MimeText = "text/"

	MaxDocumentBytes = 2 << 20
)

var (
	AllowedDocumentExtensions = []string{".txt", ".md", ".markdown"}
)
