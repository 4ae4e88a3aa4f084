package consumer

// defaultBindSignals is a no-op on Windows, which does not deliver the signals
// porter relies on. Consumers there can only be stopped gracefully by
// canceling the context passed to Consume or by calling Shutdown directly.
func (c *Consumer) defaultBindSignals() func() {
	return func() {}
}
