package autoload

import (
	configx "github.com/Dispatch-AI-com/AI/pkg/config"
	logx "github.com/Dispatch-AI-com/AI/pkg/logger"
)

// Blank-import this package to initialize the global logger from the
// LOG_* environment variables before main runs.
func init() {
	conf, err := configx.New[logx.Config]("LOG")
	if err != nil {
		logx.Init()
		return
	}
	logx.Init(*conf)
}
