package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Upload    UploadConfig    `mapstructure:"upload"`
	Output    OutputConfig    `mapstructure:"output"`
	Mask      MaskConfig      `mapstructure:"mask"`
	Extrusion ExtrusionConfig `mapstructure:"extrusion"`
	Convert   ConvertConfig   `mapstructure:"convert"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type UploadConfig struct {
	MaxSize      int64    `mapstructure:"max_size"`
	UploadDir    string   `mapstructure:"upload_dir"`
	AllowedTypes []string `mapstructure:"allowed_types"`
}

// OutputConfig STL 输出目录及对外访问前缀
type OutputConfig struct {
	Dir       string `mapstructure:"dir"`
	URLPrefix string `mapstructure:"url_prefix"`
}

// MaskConfig 二值化策略
type MaskConfig struct {
	Mode          string  `mapstructure:"mode"` // edge, adaptive, otsu, luma
	Threshold     float64 `mapstructure:"threshold"`
	BlurSize      int     `mapstructure:"blur_size"`
	CloseSize     int     `mapstructure:"close_size"`
	BlockSize     int     `mapstructure:"block_size"`
	C             float64 `mapstructure:"c"`
	Invert        bool    `mapstructure:"invert"`
	LumaThreshold uint8   `mapstructure:"luma_threshold"`
}

// ExtrusionConfig 默认挤出参数，BackgroundHeight 为 0 时不生成背景文件
type ExtrusionConfig struct {
	Height           float64 `mapstructure:"height"`
	BaseThickness    float64 `mapstructure:"base_thickness"`
	BackgroundHeight float64 `mapstructure:"background_height"`
	Normals          bool    `mapstructure:"normals"`
}

type ConvertConfig struct {
	MaxConcurrent    int  `mapstructure:"max_concurrent"`
	QueueTimeout     int  `mapstructure:"queue_timeout"`
	Parallel         bool `mapstructure:"parallel"`
	CleanupTempFiles bool `mapstructure:"cleanup_temp_files"`
}

// Load 从 YAML 文件加载配置
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("voxelkit")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// New 使用默认配置路径加载配置
func New() *Config {
	cfg, err := Load("config.yaml")
	if err != nil {
		return Default()
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)

	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.ttl", d.Redis.TTL)

	v.SetDefault("upload.max_size", d.Upload.MaxSize)
	v.SetDefault("upload.upload_dir", d.Upload.UploadDir)
	v.SetDefault("upload.allowed_types", d.Upload.AllowedTypes)

	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("output.url_prefix", d.Output.URLPrefix)

	v.SetDefault("mask.mode", d.Mask.Mode)
	v.SetDefault("mask.threshold", d.Mask.Threshold)
	v.SetDefault("mask.blur_size", d.Mask.BlurSize)
	v.SetDefault("mask.close_size", d.Mask.CloseSize)
	v.SetDefault("mask.block_size", d.Mask.BlockSize)
	v.SetDefault("mask.c", d.Mask.C)
	v.SetDefault("mask.invert", d.Mask.Invert)
	v.SetDefault("mask.luma_threshold", d.Mask.LumaThreshold)

	v.SetDefault("extrusion.height", d.Extrusion.Height)
	v.SetDefault("extrusion.base_thickness", d.Extrusion.BaseThickness)
	v.SetDefault("extrusion.background_height", d.Extrusion.BackgroundHeight)
	v.SetDefault("extrusion.normals", d.Extrusion.Normals)

	v.SetDefault("convert.max_concurrent", d.Convert.MaxConcurrent)
	v.SetDefault("convert.queue_timeout", d.Convert.QueueTimeout)
	v.SetDefault("convert.parallel", d.Convert.Parallel)
	v.SetDefault("convert.cleanup_temp_files", d.Convert.CleanupTempFiles)
}

// Default 默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         ":8080",
			Mode:         "debug",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
			TTL:  24 * time.Hour,
		},
		Upload: UploadConfig{
			MaxSize:      10 * 1024 * 1024,
			UploadDir:    "./static/uploads",
			AllowedTypes: []string{"image/jpeg", "image/png", "image/jpg", "image/bmp", "image/webp"},
		},
		Output: OutputConfig{
			Dir:       "./static/processed",
			URLPrefix: "/files",
		},
		Mask: MaskConfig{
			Mode:          "edge",
			Threshold:     50,
			BlurSize:      5,
			CloseSize:     3,
			BlockSize:     11,
			C:             2,
			Invert:        false,
			LumaThreshold: 128,
		},
		Extrusion: ExtrusionConfig{
			Height:           10,
			BaseThickness:    2,
			BackgroundHeight: 2,
		},
		Convert: ConvertConfig{
			MaxConcurrent:    3,
			QueueTimeout:     30,
			CleanupTempFiles: true,
		},
	}
}
