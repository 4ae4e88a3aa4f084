package main

const (
	flagBackend         = "backend"
	flagsBackend        = "backend, b"
	flagBody            = "body"
	flagsBody           = "body, d"
	flagControlAddress  = "control-address"
	flagDelay           = "delay"
	flagsDelay          = "delay"
	flagFile            = "file"
	flagsFile           = "file, f"
	flagMaxMessages     = "max-messages"
	flagsMaxMessages    = "max-messages, m"
	flagMaxRuntime      = "max-runtime"
	flagsMaxRuntime     = "max-runtime, t"
	flagName            = "name"
	flagsName           = "name, n"
	flagRequeueOnReject = "requeue-on-reject"
	flagStopOnError     = "stop-on-error"
	flagStopWhenEmpty   = "stop-when-empty"
	flagVerbosity       = "verbosity"
	flagsVerbosity      = "verbosity"
)
