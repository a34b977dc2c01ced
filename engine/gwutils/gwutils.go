package gwutils

import (
	"fmt"

	"github.com/yondr/yondr/engine/gwlog"
)

// RunPanicless calls a function panic-freely
func RunPanicless(f func()) (paniced bool) {
	defer func() {
		err := recover()
		if err != nil {
			gwlog.TraceError("%p panic: %v", f, err)
			paniced = true
		}
	}()

	f()
	return
}

// CatchPanic runs f and returns a panic raised by it as an error
func CatchPanic(f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			gwlog.TraceError("recovered panic: %v", r)
			if e, ok := r.(error); ok {
				err = e
			} else {
				err = panicError{r}
			}
		}
	}()
	return f()
}

type panicError struct {
	val interface{}
}

func (pe panicError) Error() string {
	return fmt.Sprintf("panic: %v", pe.val)
}
