package opmon

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yondr/yondr/engine/consts"
	"github.com/yondr/yondr/engine/gwlog"
)

var monitor = newMonitor()

func init() {
	if consts.OPMON_DUMP_INTERVAL > 0 {
		go func() {
			for {
				time.Sleep(consts.OPMON_DUMP_INTERVAL)
				gwlog.Infof("opmon:\n%s", Dump())
			}
		}()
	}
}

// OpStats is the accumulated stats of one operation name
type OpStats struct {
	Count         uint64
	TotalDuration time.Duration
	MaxDuration   time.Duration
}

// Avg returns the average duration
func (s OpStats) Avg() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(s.Count)
}

type _Monitor struct {
	sync.Mutex
	opInfos map[string]*OpStats
}

func newMonitor() *_Monitor {
	return &_Monitor{
		opInfos: map[string]*OpStats{},
	}
}

func (monitor *_Monitor) record(opname string, duration time.Duration) {
	monitor.Lock()
	info := monitor.opInfos[opname]
	if info == nil {
		info = &OpStats{}
		monitor.opInfos[opname] = info
	}
	info.Count += 1
	info.TotalDuration += duration
	if duration > info.MaxDuration {
		info.MaxDuration = duration
	}
	monitor.Unlock()
}

// Stats returns the stats recorded for an operation name
func Stats(opname string) (OpStats, bool) {
	monitor.Lock()
	defer monitor.Unlock()
	info := monitor.opInfos[opname]
	if info == nil {
		return OpStats{}, false
	}
	return *info, true
}

// Dump formats all recorded stats sorted by name, and clears them
func Dump() string {
	monitor.Lock()
	opInfos := monitor.opInfos
	monitor.opInfos = map[string]*OpStats{}
	monitor.Unlock()

	names := make([]string, 0, len(opInfos))
	for name := range opInfos {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		info := opInfos[name]
		fmt.Fprintf(&sb, "%-30sx%-10d AVG %-10s MAX %-10s\n", name, info.Count, info.Avg(), info.MaxDuration)
	}
	return sb.String()
}

// Operation is the type of operation to be monitored
type Operation struct {
	name      string
	startTime time.Time
}

// StartOperation creates a new operation
func StartOperation(operationName string) *Operation {
	return &Operation{
		name:      operationName,
		startTime: time.Now(),
	}
}

// Finish finishes the operation and records the duration of operation
func (op *Operation) Finish(warnThreshold time.Duration) {
	takeTime := time.Since(op.startTime)
	monitor.record(op.name, takeTime)
	if takeTime >= warnThreshold {
		gwlog.Warnf("opmon: operation %s takes %s > %s", op.name, takeTime, warnThreshold)
	}
}
