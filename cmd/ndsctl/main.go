// Command ndsctl drives an NDS runtime's FLUSH, SNAPSHOT, PRELOAD, and
// CLEARSTATS subcommands from a shell, the way an operator would reach for
// them outside of the host process that normally issues them.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/freezerdb/nds/eventloop"
	"github.com/freezerdb/nds/log"
	"github.com/freezerdb/nds/memstore"
	"github.com/freezerdb/nds/nds"
)

var (
	dirFlag = &cli.StringFlag{
		Name:     "dir",
		Usage:    "environment directory holding the NDS data file",
		Required: true,
	}
	databasesFlag = &cli.IntFlag{
		Name:  "databases",
		Usage: "number of logical databases",
		Value: nds.DefaultDatabases,
	}
	timeoutFlag = &cli.DurationFlag{
		Name:  "timeout",
		Usage: "how long to wait for a deferred reply",
		Value: 30 * time.Second,
	}
	logFileFlag = &cli.StringFlag{
		Name:  "log-file",
		Usage: "write ndsctl's own logs to this rotating file instead of stderr",
	}
)

func main() {
	app := &cli.App{
		Name:  "ndsctl",
		Usage: "drive the NDS FLUSH|SNAPSHOT|PRELOAD|CLEARSTATS command surface",
		Commands: []*cli.Command{
			flushCommand("flush", nds.CmdFlush, "run NDS FLUSH against --dir"),
			flushCommand("snapshot", nds.CmdSnapshot, "run NDS SNAPSHOT against --dir"),
			flushCommand("preload", nds.CmdPreload, "run NDS PRELOAD against --dir"),
			flushCommand("clearstats", nds.CmdClearStats, "run NDS CLEARSTATS against --dir"),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Error("ndsctl failed", "err", err)
		os.Exit(1)
	}
}

func flushCommand(name string, kind nds.CommandKind, usage string) *cli.Command {
	return &cli.Command{
		Name:   name,
		Usage:  usage,
		Flags:  []cli.Flag{dirFlag, databasesFlag, timeoutFlag, logFileFlag},
		Action: runCommand(kind),
	}
}

// setupLogging redirects the process-wide logger to an AsyncFileWriter when
// --log-file is given, so a long PRELOAD run doesn't block on disk I/O for
// its own log lines the way it avoids blocking foreground traffic for data.
func setupLogging(c *cli.Context) func() {
	path := c.String(logFileFlag.Name)
	if path == "" {
		return func() {}
	}
	w := log.NewAsyncFileWriter(path, 100, 5, 28)
	w.Start()
	log.SetDefault(log.New(w, log.LevelInfo))
	return w.Stop
}

func runCommand(kind nds.CommandKind) cli.ActionFunc {
	return func(c *cli.Context) error {
		stopLogging := setupLogging(c)
		defer stopLogging()

		databases := c.Int(databasesFlag.Name)
		stores := make([]memstore.Store, databases)
		for i := range stores {
			stores[i] = memstore.NewMap()
		}

		loop := eventloop.New(16)
		go loop.Run()
		defer loop.Stop()

		rt, err := nds.NewRuntime(nds.Config{
			Dir:       c.String(dirFlag.Name),
			Databases: databases,
		}, stores, loop, nil)
		if err != nil {
			return fmt.Errorf("ndsctl: build runtime: %w", err)
		}
		defer rt.Close()

		reply := make(chan nds.Reply, 1)
		if err := rt.Dispatch(nds.Command{Kind: kind}, reply); err != nil {
			return err
		}

		select {
		case rep := <-reply:
			if rep.Err != nil {
				return rep.Err
			}
			log.Info("ndsctl: command completed", "command", kind.String(), "ok", rep.OK)
			return nil
		case <-time.After(c.Duration(timeoutFlag.Name)):
			return fmt.Errorf("ndsctl: timed out waiting for %s to complete", kind)
		}
	}
}
