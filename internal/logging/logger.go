package logging

import (
	"os"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const defaultLevel = logrus.InfoLevel

type LoggerSetupParams struct {
	LogFileName      string
	LogToStdout      bool
	LogLevel         string
	LogFormatJSON    bool
	Environment      string
	SentryEnabled    bool
	SentryDSN        string
	SentryServerName string
}

// Setup configures the global logrus logger. The returned func closes the
// rotating log file, if one was opened.
func Setup(params LoggerSetupParams) func() {
	if params.LogFormatJSON {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	if params.SentryEnabled {
		err := sentry.Init(sentry.ClientOptions{
			Environment:      params.Environment,
			Dsn:              params.SentryDSN,
			TracesSampleRate: 1.0,
			ServerName:       params.SentryServerName,
		})
		if err != nil {
			logrus.Errorf("sentry.Init: %s", err)
		} else {
			logrus.AddHook(NewSentryHook([]logrus.Level{
				logrus.PanicLevel,
				logrus.FatalLevel,
				logrus.ErrorLevel,
			}))
			logrus.Infoln("Sentry set up successfully")
		}
	}

	logrus.SetLevel(GetLevel(params.LogLevel))

	if params.LogFileName == "" {
		logrus.SetOutput(os.Stdout)
		logrus.Println("writing logs only to STDOUT")
		return func() {}
	}

	logFile := rotatingFile(params.LogFileName)
	if params.LogToStdout {
		logrus.SetOutput(newTeeWriter(os.Stdout, logFile))
		logrus.Printf("writing logs to %s and STDOUT", logFile.Filename)
	} else {
		logrus.SetOutput(logFile)
	}

	return func() {
		logrus.SetOutput(os.Stdout)
		if err := logFile.Close(); err != nil {
			logrus.Errorf("close log file: %s", err)
		}
	}
}

func rotatingFile(name string) *lumberjack.Logger {
	if !strings.HasSuffix(name, ".log") {
		name += ".log"
	}
	return &lumberjack.Logger{
		Filename:   name,
		MaxSize:    50, // megabytes
		MaxBackups: 30,
		MaxAge:     180, // days
		Compress:   true,
	}
}

// GetLevel parses a level name, falling back to info for unknown names.
func GetLevel(level string) logrus.Level {
	parsed, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		if level != "" {
			logrus.Warnf("unknown log level [%s], using %s", level, defaultLevel)
		}
		return defaultLevel
	}
	return parsed
}
