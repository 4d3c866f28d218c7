// Package main 是应用程序入口
package main

import (
	"go.uber.org/zap"

	"github.com/chenhao2025/logistics-settlement-backend/internal/common/config"
	"github.com/chenhao2025/logistics-settlement-backend/internal/scheduler"
)

// startScheduler 启动后台定时任务
func startScheduler(cfg *config.Config, logger *zap.Logger, deps *routerDeps) *scheduler.Scheduler {
	sched := scheduler.NewScheduler(logger)
	taskHandler := scheduler.NewTaskHandler(deps.batchService, deps.tierService, logger)
	scheduler.SetupTasks(sched, taskHandler, cfg.Business.Settlement.ScanInterval())
	sched.Start()
	return sched
}
