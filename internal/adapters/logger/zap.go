package logger

import (
	"context"
	"os"
	"strings"

	"github.com/athebyme/gomarket-seeder/pkg/interfaces"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger адаптер для Zap, реализующий LoggerPort
type ZapLogger struct {
	logger *zap.SugaredLogger
	level  zap.AtomicLevel
	// runID уже прикреплен к logger через WithRunID
	runID string
}

// NewZapLogger создает новый логгер на основе Zap
func NewZapLogger(level string, isProduction bool) (interfaces.LoggerPort, error) {
	var config zap.Config

	if isProduction {
		config = zap.NewProductionConfig()
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		// стек нужен только для фатальных ошибок команды
		config.DisableStacktrace = true
	}

	atomic := zap.NewAtomicLevelAt(parseLevel(level))
	config.Level = atomic
	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}
	return &ZapLogger{logger: logger.Sugar(), level: atomic}, nil
}

// NewFromZap оборачивает готовый zap.Logger; уровень задается AtomicLevel ядра
func NewFromZap(logger *zap.Logger, level zap.AtomicLevel) interfaces.LoggerPort {
	return &ZapLogger{logger: logger.Sugar(), level: level}
}

// NewNop логгер, который ничего не пишет
func NewNop() interfaces.LoggerPort {
	return &ZapLogger{logger: zap.NewNop().Sugar(), level: zap.NewAtomicLevel()}
}

func parseLevel(levelStr string) zapcore.Level {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(levelStr))); err != nil {
		return zapcore.InfoLevel
	}
	return level
}

// GetLoggerLevel преобразует строковый уровень логирования в LogLevel
func GetLoggerLevel(levelStr string) interfaces.LogLevel {
	switch strings.ToLower(levelStr) {
	case "debug":
		return interfaces.DebugLevel
	case "warn", "warning":
		return interfaces.WarnLevel
	case "error":
		return interfaces.ErrorLevel
	case "fatal":
		return interfaces.FatalLevel
	default:
		return interfaces.InfoLevel
	}
}

// convertToZapFields преобразует LogField в zap.Field
func convertToZapFields(args ...interface{}) []interface{} {
	for i, arg := range args {
		if field, ok := arg.(interfaces.LogField); ok {
			args[i] = zap.Any(field.Key, field.Value)
		}
	}
	return args
}

// extractFieldsFromContext извлекает поля из контекста
func (z *ZapLogger) extractFieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}
	if z.runID != "" {
		return fields
	}
	if runID, ok := interfaces.RunIDFromContext(ctx); ok {
		fields = append(fields, zap.String("run_id", runID))
	}
	return fields
}

func (z *ZapLogger) Debug(msg string, args ...interface{}) {
	z.logger.Debugw(msg, convertToZapFields(args...)...)
}

func (z *ZapLogger) Info(msg string, args ...interface{}) {
	z.logger.Infow(msg, convertToZapFields(args...)...)
}

func (z *ZapLogger) Warn(msg string, args ...interface{}) {
	z.logger.Warnw(msg, convertToZapFields(args...)...)
}

func (z *ZapLogger) Error(msg string, args ...interface{}) {
	z.logger.Errorw(msg, convertToZapFields(args...)...)
}

// Fatal пишет сообщение и завершает процесс
func (z *ZapLogger) Fatal(msg string, args ...interface{}) {
	z.logger.Fatalw(msg, convertToZapFields(args...)...)
	os.Exit(1)
}

func (z *ZapLogger) InfoWithContext(ctx context.Context, msg string, args ...interface{}) {
	fields := z.extractFieldsFromContext(ctx)
	z.logger.Infow(msg, append(convertToZapFields(args...), fields...)...)
}

func (z *ZapLogger) ErrorWithContext(ctx context.Context, msg string, args ...interface{}) {
	fields := z.extractFieldsFromContext(ctx)
	z.logger.Errorw(msg, append(convertToZapFields(args...), fields...)...)
}

func (z *ZapLogger) WithFields(fields ...interfaces.LogField) interfaces.LoggerPort {
	zapFields := make([]interface{}, 0, len(fields)*2)
	for _, field := range fields {
		zapFields = append(zapFields, field.Key, field.Value)
	}
	return &ZapLogger{logger: z.logger.With(zapFields...), level: z.level, runID: z.runID}
}

func (z *ZapLogger) WithField(key string, value interface{}) interfaces.LoggerPort {
	return &ZapLogger{logger: z.logger.With(key, value), level: z.level, runID: z.runID}
}

func (z *ZapLogger) WithRunID(runID string) interfaces.LoggerPort {
	return &ZapLogger{logger: z.logger.With("run_id", runID), level: z.level, runID: runID}
}

// SetLevel меняет уровень у логгера и всех производных от него
func (z *ZapLogger) SetLevel(level interfaces.LogLevel) {
	switch level {
	case interfaces.DebugLevel:
		z.level.SetLevel(zapcore.DebugLevel)
	case interfaces.WarnLevel:
		z.level.SetLevel(zapcore.WarnLevel)
	case interfaces.ErrorLevel:
		z.level.SetLevel(zapcore.ErrorLevel)
	case interfaces.FatalLevel:
		z.level.SetLevel(zapcore.FatalLevel)
	default:
		z.level.SetLevel(zapcore.InfoLevel)
	}
}

func (z *ZapLogger) GetLevel() interfaces.LogLevel {
	switch z.level.Level() {
	case zapcore.DebugLevel:
		return interfaces.DebugLevel
	case zapcore.WarnLevel:
		return interfaces.WarnLevel
	case zapcore.ErrorLevel:
		return interfaces.ErrorLevel
	case zapcore.FatalLevel, zapcore.PanicLevel, zapcore.DPanicLevel:
		return interfaces.FatalLevel
	default:
		return interfaces.InfoLevel
	}
}

func (z *ZapLogger) Sync() error {
	return z.logger.Sync()
}
