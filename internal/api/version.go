package api

import (
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// DeprecatedVersionInfo 废弃版本信息
type DeprecatedVersionInfo struct {
	Version         string
	DeprecationDate time.Time
	SunsetDate      time.Time
	MigrationPath   string
}

var (
	deprecatedVersions = make(map[string]DeprecatedVersionInfo)
	deprecatedMu       sync.RWMutex
)

// RegisterDeprecatedVersion 注册废弃版本
func RegisterDeprecatedVersion(info DeprecatedVersionInfo) {
	deprecatedMu.Lock()
	defer deprecatedMu.Unlock()
	deprecatedVersions[info.Version] = info
}

// requestedVersion 解析请求的 API 版本
// API-Version 请求头优先于 URL 路径中的版本段
func requestedVersion(c *gin.Context) string {
	version := "v1"
	parts := strings.Split(c.Request.URL.Path, "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] == "api" && strings.HasPrefix(parts[i+1], "v") && len(parts[i+1]) > 1 {
			version = parts[i+1]
			break
		}
	}
	if header := c.GetHeader("API-Version"); header != "" {
		version = header
	}
	return version
}

// VersionMiddleware API 版本中间件
// 对已废弃版本的请求附加弃用与下线响应头,引导调用方迁移
func VersionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		version := requestedVersion(c)

		deprecatedMu.RLock()
		info, deprecated := deprecatedVersions[version]
		deprecatedMu.RUnlock()

		if deprecated {
			c.Header("X-API-Deprecated", "true")
			c.Header("X-API-Deprecation-Date", info.DeprecationDate.Format("2006-01-02"))
			c.Header("X-API-Sunset-Date", info.SunsetDate.Format("2006-01-02"))
			if info.MigrationPath != "" {
				c.Header("X-API-Migration-Path", info.MigrationPath)
			}
		}

		c.Set("api_version", version)
		c.Next()
	}
}

// GetAPIVersion 从请求上下文读取 API 版本
func GetAPIVersion(c *gin.Context) string {
	if version, ok := c.Get("api_version"); ok {
		if v, ok := version.(string); ok {
			return v
		}
	}
	return "v1"
}
