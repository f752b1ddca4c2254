// Package parallel partitions an index range across the available CPUs.
package parallel

import (
	"runtime"
	"sync"
)

// Execute processes the work function in parallel over [iStart, iEnd) and
// waits for all partitions to complete.
func Execute(iStart, iEnd int, work func(int, int)) {
	<-ExecuteAsync(iStart, iEnd, work)
}

// ExecuteAsync processes the work function in parallel over [iStart, iEnd)
// and returns a channel that is notified when all partitions are done.
func ExecuteAsync(iStart, iEnd int, work func(int, int)) chan struct{} {
	nbIterations := iEnd - iStart // iEnd is not included
	nbTasks := runtime.NumCPU()
	nbIterationsPerCPU := nbIterations / nbTasks

	// more CPUs than iterations: one iteration per task
	if nbIterationsPerCPU < 1 {
		nbIterationsPerCPU = 1
		nbTasks = nbIterations
	}

	var wg sync.WaitGroup

	extraTasks := nbIterations - nbTasks*nbIterationsPerCPU
	extraTasksOffset := 0

	for i := 0; i < nbTasks; i++ {
		wg.Add(1)
		start := iStart + i*nbIterationsPerCPU + extraTasksOffset
		end := start + nbIterationsPerCPU
		if extraTasks > 0 {
			end++
			extraTasks--
			extraTasksOffset++
		}
		go func() {
			work(start, end)
			wg.Done()
		}()
	}

	chDone := make(chan struct{}, 1)
	go func() {
		wg.Wait()
		chDone <- struct{}{}
	}()
	return chDone
}
