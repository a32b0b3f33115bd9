package model

// ConversionResult 一次转换的结果
type ConversionResult struct {
	MD5       string         `json:"md5,omitempty"`
	Width     int            `json:"width"`
	Height    int            `json:"height"`
	Solid     int            `json:"solid"`
	Targets   []TargetResult `json:"targets"`
	Timestamp int64          `json:"timestamp"`
}

// TargetStatus 单个目标的处理状态
type TargetStatus string

const (
	TargetDone    TargetStatus = "done"
	TargetFailed  TargetStatus = "failed"
	TargetSkipped TargetStatus = "skipped"
)

// TargetResult 单个输出文件
type TargetResult struct {
	Name        string        `json:"name"`
	Spec        ExtrusionSpec `json:"spec"`
	Status      TargetStatus  `json:"status"`
	Destination string        `json:"-"`
	URL         string        `json:"url,omitempty"`
	Vertices    int           `json:"vertices"`
	Faces       int           `json:"faces"`
	Bytes       int64         `json:"bytes"`
	Error       string        `json:"error,omitempty"`
}

// ConvertResponse 转换响应
type ConvertResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    *ConversionResult `json:"data,omitempty"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
	Error   string `json:"error,omitempty"`
	// Data 部分成功时已写出的目标
	Data *ConversionResult `json:"data,omitempty"`
}
