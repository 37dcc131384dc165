package util

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
)

// sniffLen http.DetectContentType 最多只看前 512 字节
const sniffLen = 512

// ValidateMimeType 按文件内容嗅探 MIME 类型并与 allowedTypes 的前缀比对。
// 读取后把 reader 复位到起点，调用方可以直接继续上传。
func ValidateMimeType(reader io.ReadSeeker, allowedTypes []string) (string, error) {
	buffer := make([]byte, sniffLen)
	n, err := io.ReadFull(reader, buffer)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", err
	}
	if _, err := reader.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	mimeType := http.DetectContentType(buffer[:n])
	for _, allowed := range allowedTypes {
		if strings.HasPrefix(mimeType, allowed) {
			return mimeType, nil
		}
	}
	return mimeType, fmt.Errorf("%w: content type %s", ErrInvalidFile, mimeType)
}

// VideoExtension 返回小写扩展名，不在 AllowedVideoExtensions 中时报 ErrInvalidFile
func VideoExtension(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range AllowedVideoExtensions {
		if ext == allowed {
			return ext, nil
		}
	}
	return "", fmt.Errorf("%w: unsupported video format %q", ErrInvalidFile, ext)
}
