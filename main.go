package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/TIANLI0/VoxelKit/config"
	"github.com/TIANLI0/VoxelKit/handler"
	"github.com/TIANLI0/VoxelKit/service"
	"github.com/TIANLI0/VoxelKit/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	BuildID   = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

func main() {
	// 加载配置
	cfg := config.New()

	// 初始化日志
	if err := utils.InitLogger(cfg.Server.Mode); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer utils.Sync()

	utils.Logger.Info("starting VoxelKit server",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
		zap.String("git_branch", GitBranch))

	// 确保目录存在
	for _, dir := range []string{cfg.Upload.UploadDir, cfg.Output.Dir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			utils.Logger.Fatal("failed to create directory", zap.String("dir", dir), zap.Error(err))
		}
	}

	// 初始化Redis
	redisService := service.NewRedisService(&cfg.Redis)
	if err := redisService.Ping(context.Background()); err != nil {
		utils.Logger.Warn("redis connection failed, cache disabled", zap.Error(err))
	} else {
		utils.Logger.Info("redis connected successfully")
	}
	defer redisService.Close()

	// 初始化转换服务
	source, err := service.NewMaskSource(cfg.Mask)
	if err != nil {
		utils.Logger.Fatal("invalid mask config", zap.Error(err))
	}

	var stlOpts []service.STLOption
	if cfg.Extrusion.Normals {
		stlOpts = append(stlOpts, service.WithNormals())
	}
	converter := service.NewConverter(source, &cfg.Convert, stlOpts...)

	// 初始化Handler
	convertHandler := handler.NewConvertHandler(cfg, redisService, converter)
	edgeHandler := handler.NewEdgeHandler(cfg)

	// 设置Gin模式
	gin.SetMode(cfg.Server.Mode)

	// 创建路由
	r := handler.NewRouter(cfg, handler.BuildInfo{
		Version:   Version,
		BuildTime: BuildTime,
		BuildID:   BuildID,
		GitCommit: GitCommit,
		GitBranch: GitBranch,
	}, convertHandler, edgeHandler)

	// 启动服务器
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	utils.Logger.Info("server starting", zap.String("port", cfg.Server.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		utils.Logger.Fatal("failed to start server", zap.Error(err))
	}
}
