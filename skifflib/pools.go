package skifflib

import "fmt"

func StartPoolMetrics() {
	timerPool.m.start()
	pendingWritePool.m.start()
}

func ReleasePoolMetrics() {
	timerPool.m.release()
	pendingWritePool.m.release()
}

func JsonStringPoolMetrics() string {
	return fmt.Sprintf("{\"TimerPool\" = %s, \"pendingWritePool\" = %s}",
		timerPool.m.metricsString(),
		pendingWritePool.m.metricsString(),
	)
}
