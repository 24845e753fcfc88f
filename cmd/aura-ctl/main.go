package main

import (
	"fmt"
	"os"
	"strings"

	cli "github.com/spf13/pflag"

	"aura/internal/ipc"
	"aura/internal/store"
)

const usage = `usage: aura-ctl [flags] <command>

commands:
  status                 report the assistant state
  start                  start the listening loop
  stop                   stop the listening loop
  trigger                skip wake-word detection once
  simulate <text>        run a typed command through the assistant
  simulate-audio <file>  transcribe an audio file and run it as a command
  history                print recent conversation turns
  stats                  print command usage counters
  pref <key> [value]     read or write a preference
`

func main() {
	socket := cli.StringP("socket", "s", "/tmp/aura.sock", "Daemon control socket")
	limit := cli.IntP("limit", "n", 20, "Max history entries")
	days := cli.IntP("days", "d", 7, "Stats window in days")
	cli.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		cli.PrintDefaults()
	}
	cli.Parse()

	args := cli.Args()
	if len(args) == 0 {
		cli.Usage()
		os.Exit(2)
	}

	req := ipc.Request{Cmd: args[0], Limit: *limit, Days: *days}
	switch args[0] {
	case ipc.CmdSimulate:
		req.Text = strings.Join(args[1:], " ")
	case ipc.CmdSimulateAudio:
		if len(args) > 1 {
			req.Text = args[1]
		}
	case "pref":
		if len(args) < 2 {
			cli.Usage()
			os.Exit(2)
		}
		req.Key = args[1]
		if len(args) > 2 {
			req.Cmd = ipc.CmdPrefSet
			req.Value = strings.Join(args[2:], " ")
		} else {
			req.Cmd = ipc.CmdPrefGet
		}
	}

	resp, err := ipc.Send(*socket, req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "aura-daemon not running:", err)
		os.Exit(1)
	}
	if !resp.OK {
		fmt.Fprintln(os.Stderr, "error:", resp.Error)
		os.Exit(1)
	}

	render(req.Cmd, resp)
}

func render(cmd string, resp ipc.Response) {
	switch cmd {
	case ipc.CmdHistory:
		for _, m := range resp.Messages {
			fmt.Printf("%s  %-9s  %s\n", m.Timestamp, m.Speaker, m.Text)
		}
	case ipc.CmdStats:
		printStats(resp.Stats)
	case ipc.CmdSimulate, ipc.CmdSimulateAudio:
		fmt.Println(resp.Reply)
	case ipc.CmdPrefGet, ipc.CmdPrefSet:
		fmt.Println(resp.Value)
	default:
		if resp.Status != "" {
			fmt.Println(resp.Status)
		}
	}
}

func printStats(stats []store.CommandStat) {
	if len(stats) == 0 {
		fmt.Println("no commands recorded")
		return
	}
	fmt.Printf("%-12s %8s %12s\n", "command", "count", "successful")
	for _, s := range stats {
		fmt.Printf("%-12s %8d %12d\n", s.Type, s.Count, s.Successful)
	}
}
