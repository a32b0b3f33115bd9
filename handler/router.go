package handler

import (
	"github.com/TIANLI0/VoxelKit/config"
	"github.com/TIANLI0/VoxelKit/middleware"
	"github.com/gin-gonic/gin"
)

// BuildInfo 版本信息
type BuildInfo struct {
	Version   string
	BuildTime string
	BuildID   string
	GitCommit string
	GitBranch string
}

// NewRouter 创建路由
func NewRouter(cfg *config.Config, info BuildInfo, convert *ConvertHandler, edges *EdgeHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS())

	r.MaxMultipartMemory = cfg.Upload.MaxSize

	r.Static(cfg.Output.URLPrefix, cfg.Output.Dir)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"version": info.Version,
		})
	})

	r.GET("/version", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"version":    info.Version,
			"build_time": info.BuildTime,
			"build_id":   info.BuildID,
			"git_commit": info.GitCommit,
			"git_branch": info.GitBranch,
		})
	})

	api := r.Group("/api/v1")
	{
		api.POST("/convert", convert.Convert)
		api.GET("/result/:key", convert.GetResult)
		api.POST("/edges", edges.Preview)
	}

	return r
}
