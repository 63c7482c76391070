// Package types defines the configuration and result types shared by the
// parser command line tools.
package types

// Config 解析器配置
type Config struct {
	Strictness      string   `json:"strictness"`       // "strict", "warn" 或 "silent"
	Packages        []string `json:"packages"`         // 解析前预加载的宏包
	Encoding        string   `json:"encoding"`         // 源文件编码，"auto" 表示自动探测
	LogLevel        string   `json:"log_level"`        // debug, info, warn, error
	LogFile         string   `json:"log_file"`         // 为空时只输出到 stderr
	CheckInvariants bool     `json:"check_invariants"` // 开启兄弟链表一致性检查
	TrimOutput      bool     `json:"trim_output"`      // 打印时去掉首尾空白
	HistoryFile     string   `json:"history_file"`     // 交互模式历史记录文件
	HistorySize     int      `json:"history_size"`     // 交互模式保留的历史条数
}

// InputKind 输入来源
type InputKind string

const (
	InputFile  InputKind = "file"
	InputStdin InputKind = "stdin"
	InputREPL  InputKind = "repl"
)

// InputHistoryItem 输入历史记录项
type InputHistoryItem struct {
	Input     string    `json:"input"`     // 文件路径或交互输入
	Timestamp int64     `json:"timestamp"` // 时间戳（Unix 毫秒）
	Kind      InputKind `json:"kind"`
}

// CheckResult is the outcome of checking one source file
type CheckResult struct {
	Path      string `json:"path"`
	Encoding  string `json:"encoding"`
	OK        bool   `json:"ok"`
	Cached    bool   `json:"cached,omitempty"` // 内容未变, 沿用上次结果
	Stage     string `json:"stage,omitempty"`  // 失败阶段: read, parse, round_trip
	Elements  int    `json:"elements"`
	Error     string `json:"error,omitempty"`
	Line      int    `json:"line,omitempty"`
	Column    int    `json:"column,omitempty"`
	Mismatch  int    `json:"mismatch,omitempty"` // 第一处源码不一致的字节偏移
	ElapsedMS int64  `json:"elapsed_ms"`
}

// CheckSummary 批量检查汇总
type CheckSummary struct {
	Files    int            `json:"files"`
	Passed   int            `json:"passed"`
	Failed   int            `json:"failed"`
	Cached   int            `json:"cached"`
	Results  []*CheckResult `json:"results"`
	ByStage  map[string]int `json:"by_stage,omitempty"`
	Duration int64          `json:"duration_ms"`
}

// ErrorCode 错误代码枚举
type ErrorCode string

const (
	ErrFileNotFound ErrorCode = "FILE_NOT_FOUND"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrEncoding     ErrorCode = "ENCODING_ERROR"
	ErrParse        ErrorCode = "PARSE_ERROR"
	ErrConfig       ErrorCode = "CONFIG_ERROR"
	ErrInternal     ErrorCode = "INTERNAL_ERROR"
)

// AppError 应用错误
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface for AppError
func (e *AppError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

// Unwrap returns the underlying cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new AppError with the given code, message, and optional cause
func NewAppError(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewAppErrorWithDetails creates a new AppError with details
func NewAppErrorWithDetails(code ErrorCode, message, details string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
		Cause:   cause,
	}
}
