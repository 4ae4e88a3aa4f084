// +build !windows

package consumer

import (
	"os"
	"os/signal"
	"syscall"
)

// defaultBindSignals maps SIGTERM, SIGINT and SIGQUIT to Shutdown, SIGUSR2 to
// Pause and SIGCONT to Resume. The returned function unregisters them.
func (c *Consumer) defaultBindSignals() func() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(
		sigCh,
		syscall.SIGTERM,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGUSR2,
		syscall.SIGCONT,
	)
	doneCh := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-sigCh:
				c.handleSignal(sig)
			case <-doneCh:
				return
			}
		}
	}()
	return func() {
		signal.Stop(sigCh)
		close(doneCh)
	}
}

func (c *Consumer) handleSignal(sig os.Signal) {
	switch sig {
	case syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT:
		c.Shutdown()
	case syscall.SIGUSR2:
		c.Pause()
	case syscall.SIGCONT:
		c.Resume()
	}
}
