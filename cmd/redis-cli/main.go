package main

import (
	"flag"
	"fmt"
	"os"

	"miniredis/internal/client"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 1
	}

	switch args[0] {
	case "ping":
		return runPing(args[1:])
	case "get":
		return runGet(args[1:])
	case "set":
		return runSet(args[1:])
	case "publish":
		return runPublish(args[1:])
	case "subscribe":
		return runSubscribe(args[1:])
	case "help", "-h", "--help":
		printUsage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand: %s\n", args[0])
		printUsage()
		return 1
	}
}

func printUsage() {
	fmt.Println(`Usage: redis-cli <command> [-addr host:port] [args...]

Commands:
  ping [message]
  get <key>
  set [--ttl <duration>] <key> <value>
  publish <channel> <message>
  subscribe <channel> [channel...]`)
}

func dial(addr string) (*client.Client, error) {
	return client.Connect(addr)
}

func runPing(args []string) int {
	fs := flag.NewFlagSet("ping", flag.ContinueOnError)
	addr := fs.String("addr", "127.0.0.1:6379", "server address")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	msg := ""
	if fs.NArg() > 0 {
		msg = fs.Arg(0)
	}

	c, err := dial(*addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		return 1
	}
	defer c.Close()

	reply, err := c.Ping(msg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "PING: %v\n", err)
		return 1
	}
	fmt.Println(reply)
	return 0
}

func runGet(args []string) int {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	addr := fs.String("addr", "127.0.0.1:6379", "server address")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: get <key>")
		return 2
	}

	c, err := dial(*addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		return 1
	}
	defer c.Close()

	value, ok, err := c.Get(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "GET: %v\n", err)
		return 1
	}
	if !ok {
		fmt.Println("(nil)")
		return 0
	}
	fmt.Println(string(value))
	return 0
}

func runSet(args []string) int {
	fs := flag.NewFlagSet("set", flag.ContinueOnError)
	addr := fs.String("addr", "127.0.0.1:6379", "server address")
	ttl := fs.Duration("ttl", 0, "expire after this duration")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "usage: set [--ttl <duration>] <key> <value>")
		return 2
	}

	c, err := dial(*addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		return 1
	}
	defer c.Close()

	key, value := fs.Arg(0), []byte(fs.Arg(1))
	if *ttl > 0 {
		err = c.SetExpires(key, value, *ttl)
	} else {
		err = c.Set(key, value)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "SET: %v\n", err)
		return 1
	}
	fmt.Println("OK")
	return 0
}

func runPublish(args []string) int {
	fs := flag.NewFlagSet("publish", flag.ContinueOnError)
	addr := fs.String("addr", "127.0.0.1:6379", "server address")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "usage: publish <channel> <message>")
		return 2
	}

	c, err := dial(*addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		return 1
	}
	defer c.Close()

	n, err := c.Publish(fs.Arg(0), []byte(fs.Arg(1)))
	if err != nil {
		fmt.Fprintf(os.Stderr, "PUBLISH: %v\n", err)
		return 1
	}
	fmt.Println(n)
	return 0
}

func runSubscribe(args []string) int {
	fs := flag.NewFlagSet("subscribe", flag.ContinueOnError)
	addr := fs.String("addr", "127.0.0.1:6379", "server address")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: subscribe <channel> [channel...]")
		return 2
	}

	c, err := dial(*addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		return 1
	}

	sub, err := c.Subscribe(fs.Args()...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "SUBSCRIBE: %v\n", err)
		c.Close()
		return 1
	}
	defer sub.Close()

	for {
		msg, err := sub.NextMessage()
		if err != nil {
			fmt.Fprintf(os.Stderr, "subscribe: %v\n", err)
			return 1
		}
		if msg == nil {
			return 0
		}
		fmt.Printf("%s: %s\n", msg.Channel, msg.Content)
	}
}
