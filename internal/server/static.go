package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// mountStatic serves the built board UI. Unknown non-API paths fall back to
// index.html so client-side routes survive a refresh.
func (s *Server) mountStatic() {
	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
	})

	if s.staticDir == "" {
		s.logger.Warn("static directory not configured; API only mode")
		return
	}
	if !isDir(s.staticDir) {
		s.logger.Warn("static directory missing", "path", s.staticDir)
		return
	}

	index := filepath.Join(s.staticDir, "index.html")
	if !isFile(index) {
		s.logger.Warn("index.html not found", "path", index)
		return
	}

	root := gin.Dir(s.staticDir, false)
	s.engine.NoRoute(func(c *gin.Context) {
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api/") || c.Request.Method != http.MethodGet {
			c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
			return
		}
		if clean := filepath.Clean(filepath.FromSlash(path)); clean != string(filepath.Separator) &&
			isFile(filepath.Join(s.staticDir, clean)) {
			c.FileFromFS(path, root)
			return
		}
		c.File(index)
	})
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
