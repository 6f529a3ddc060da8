package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultLogDir is where session logs are written unless another directory is given
const DefaultLogDir = "logs"

// Logger represents a file logger for one estimation or backtest session
type Logger struct {
	symbol  string
	method  string
	runID   string
	logFile *os.File
	logger  *log.Logger
	mu      sync.Mutex
	logPath string
}

// LogLevel represents different types of log entries
type LogLevel string

const (
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARN"
	LogLevelError   LogLevel = "ERROR"
	LogLevelTrade   LogLevel = "TRADE"
	LogLevelStatus  LogLevel = "STATUS"
)

// NewLogger creates a session logger under DefaultLogDir
func NewLogger(symbol, method, runID string) (*Logger, error) {
	return NewLoggerInDir(DefaultLogDir, symbol, method, runID)
}

// NewLoggerInDir creates a session logger writing <symbol>_<method>_<date>.log in dir
func NewLoggerInDir(dir, symbol, method, runID string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	if symbol == "" {
		symbol = "series"
	}
	filename := fmt.Sprintf("%s_%s_%s.log", symbol, method, time.Now().Format("2006-01-02"))
	logPath := filepath.Join(dir, filename)

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l := &Logger{
		symbol:  symbol,
		method:  method,
		runID:   runID,
		logFile: file,
		logger:  log.New(file, "", 0),
		logPath: logPath,
	}
	l.writeSessionHeader()

	return l, nil
}

func (l *Logger) writeSessionHeader() {
	l.mu.Lock()
	defer l.mu.Unlock()

	header := fmt.Sprintf(`
================================================================================
OU SESSION STARTED
================================================================================
Symbol: %s | Method: %s | Run: %s
Started: %s
================================================================================
`, l.symbol, l.method, l.runID, time.Now().Format("2006-01-02 15:04:05"))

	l.logger.Print(header)
}

// Log writes a formatted log entry with the specified level
func (l *Logger) Log(level LogLevel, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	message := fmt.Sprintf(format, args...)
	l.logger.Println(fmt.Sprintf("[%s] [%s] %s", timestamp, level, message))
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.Log(LogLevelInfo, format, args...)
}

// Warning logs a warning message
func (l *Logger) Warning(format string, args ...interface{}) {
	l.Log(LogLevelWarning, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.Log(LogLevelError, format, args...)
}

// Trade logs a trading action
func (l *Logger) Trade(format string, args ...interface{}) {
	l.Log(LogLevelTrade, format, args...)
}

// Status logs model status information
func (l *Logger) Status(format string, args ...interface{}) {
	l.Log(LogLevelStatus, format, args...)
}

// LogFit records the outcome of a parameter fit
func (l *Logger) LogFit(theta, mu, sigma, halfLife float64) {
	l.Status("Fitted %s: theta=%.6f mu=%.4f sigma=%.6f half-life=%.4f", l.method, theta, mu, sigma, halfLife)
}

// LogTradeOpen records a position entry at bar index
func (l *Logger) LogTradeOpen(side string, index int, price float64, shares int, cash float64) {
	l.Trade("OPEN %s bar=%d price=%.4f shares=%d cash=%.2f", side, index, price, shares, cash)
}

// LogTradeClose records a position exit at bar index
func (l *Logger) LogTradeClose(side, reason string, index int, price float64, shares int, pnl, cash float64) {
	l.Trade("CLOSE %s (%s) bar=%d price=%.4f shares=%d pnl=%.2f cash=%.2f", side, reason, index, price, shares, pnl, cash)
}

// LogError logs error with context
func (l *Logger) LogError(context string, err error) {
	l.Error("%s: %v", context, err)
}

// Close writes the session footer and closes the log file
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile == nil {
		return nil
	}
	footer := fmt.Sprintf(`
================================================================================
OU SESSION ENDED
================================================================================
Run: %s
Ended: %s
================================================================================

`, l.runID, time.Now().Format("2006-01-02 15:04:05"))
	l.logger.Print(footer)

	err := l.logFile.Close()
	l.logFile = nil
	return err
}

// GetLogPath returns the current log file path
func (l *Logger) GetLogPath() string {
	return l.logPath
}
