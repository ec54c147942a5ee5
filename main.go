package main

import (
	"os"

	"github.com/qphase-sched/qphase-sched/cmd/qphase/app"
	"github.com/qphase-sched/qphase-sched/internal/qlog"
)

func main() {
	err := app.NewRootCommand().Execute()
	if err != nil {
		qlog.LogError(err)
		os.Exit(1)
	}
}
