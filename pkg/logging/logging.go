package logging

import (
	"go.uber.org/zap"
)

// Init builds the process logger. Production encoding unless LOG_DEV is set
// by the caller choosing dev.
func Init(dev bool) (*zap.SugaredLogger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if dev {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// Agent returns a child logger tagged with the pipeline agent name.
func Agent(log *zap.SugaredLogger, name string) *zap.SugaredLogger {
	return log.With("agent", name)
}
