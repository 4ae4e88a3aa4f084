package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/golang/glog"
	"github.com/krancour/porter/pkg/version"
	"github.com/urfave/cli"
)

func main() {
	// glog registers its options with the standard flag package. They are
	// populated from our own flags instead of os.Args.
	if err := flag.Set("logtostderr", "true"); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	app := cli.NewApp()
	app.Name = "porter"
	app.Usage = "Consume and produce queued messages"
	app.Version = fmt.Sprintf(
		"%s -- commit %s",
		version.Version(),
		version.Commit(),
	)
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   flagsBackend,
			Usage:  "Queue backend; supported backends: memory, redis, mongodb, amqp",
			Value:  backendRedis,
			EnvVar: "PORTER_BACKEND",
		},
		cli.IntFlag{
			Name:   flagsVerbosity,
			Usage:  "Log verbosity; 2 and above logs every poll",
			EnvVar: "PORTER_VERBOSITY",
		},
	}
	app.Before = func(c *cli.Context) error {
		return flag.Set("v", strconv.Itoa(c.Int(flagVerbosity)))
	}
	app.Commands = []cli.Command{
		{
			Name:      "consume",
			Usage:     "Consume messages from a queue",
			ArgsUsage: "QUEUE",
			Flags: []cli.Flag{
				cli.DurationFlag{
					Name:   flagsMaxRuntime,
					Usage:  "Stop after running this long; unbounded if unset",
					EnvVar: "PORTER_MAX_RUNTIME",
				},
				cli.IntFlag{
					Name:   flagsMaxMessages,
					Usage:  "Stop after processing this many messages; unbounded if unset",
					EnvVar: "PORTER_MAX_MESSAGES",
				},
				cli.BoolFlag{
					Name:   flagStopWhenEmpty,
					Usage:  "Stop when the queue has no messages available",
					EnvVar: "PORTER_STOP_WHEN_EMPTY",
				},
				cli.BoolFlag{
					Name:   flagStopOnError,
					Usage:  "Stop and exit non-zero when a message fails",
					EnvVar: "PORTER_STOP_ON_ERROR",
				},
				cli.BoolFlag{
					Name: flagRequeueOnReject,
					Usage: "Return failed messages to the queue instead of " +
						"discarding them",
					EnvVar: "PORTER_REQUEUE_ON_REJECT",
				},
				cli.StringFlag{
					Name: flagControlAddress,
					Usage: "Serve the control endpoint on this address, e.g. " +
						":8080; disabled if unset",
					EnvVar: "PORTER_CONTROL_ADDRESS",
				},
			},
			Action: consume,
		},
		{
			Name:      "produce",
			Usage:     "Place messages on a queue",
			ArgsUsage: "QUEUE",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  flagsName,
					Usage: "The name of the message to produce",
				},
				cli.StringFlag{
					Name:  flagsBody,
					Usage: "The body of the message to produce",
				},
				cli.StringFlag{
					Name: flagsFile,
					Usage: "A JSON file holding an array of messages to produce; " +
						"overrides --name and --body",
				},
				cli.DurationFlag{
					Name:  flagsDelay,
					Usage: "Delay delivery of the produced messages by this long",
				},
			},
			Action: produce,
		},
		{
			Name:      "queues",
			Usage:     "Show the number of messages awaiting delivery on queues",
			ArgsUsage: "QUEUE...",
			Action:    queues,
		},
	}
	fmt.Println()
	err := app.Run(os.Args)
	glog.Flush()
	if err != nil {
		fmt.Printf("\n%s\n\n", err)
		os.Exit(1)
	}
	fmt.Println()
}
