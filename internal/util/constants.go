package util

const (
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// 文件上传相关常量
const (
	MimeVideo = "video/"
	MimeImage = "image/"
	MimePDF   = "application/pdf"
	MimeText  = "text/plain"
	MimeZip   = "application/zip"

	MaxSubmissionFileSize = 20 << 20
	MaxVideoFileSize      = 500 << 20
)

var (
	AllowedVideoExtensions = []string{".mp4", ".mov", ".avi", ".mkv", ".wmv", ".flv", ".webm"}
	AllowedSubmissionTypes = []string{MimeImage, MimePDF, MimeText, MimeZip}
)
