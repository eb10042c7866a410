// Command irproxy-send publishes IR key patterns to the relay topic.
//
//	irproxy-send -broker mqtt://host:1883 CH_PLUS.xml
//
// Without file arguments it starts an interactive shell where keys are
// bound to pattern files and pressed by name.
package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"irproxy/host/keypad"
	"irproxy/relay"
)

const keypadKey = "$keypad"

var (
	brokerURL = flag.String("broker", "mqtt://localhost:1883", "Broker URL")
	topic     = flag.String("topic", relay.DefaultTopic, "Topic the relay subscribes to")
	keys      = flag.String("keys", "", "Comma separated NAME=FILE bindings loaded at start")
)

func keypadFrom(c *ishell.Context) *keypad.Keypad {
	return c.Get(keypadKey).(*keypad.Keypad)
}

var (
	keyCmd = ishell.Cmd{
		Name: "key",
		Help: "NAME FILE  bind a pattern file to a key",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 2 {
				c.Err(fmt.Errorf("usage: key NAME FILE"))
				return
			}
			def, err := keypadFrom(c).Bind(c.Args[0], c.Args[1])
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("%s bound to %s %q\n", c.Args[0], def.Source, def.ID)
		},
	}

	sendCmd = ishell.Cmd{
		Name:    "send",
		Aliases: []string{"s", "press"},
		Help:    "NAME...  publish the key patterns",
		Func: func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Err(fmt.Errorf("usage: send NAME..."))
				return
			}
			for _, name := range c.Args {
				if err := keypadFrom(c).Press(name); err != nil {
					c.Err(err)
					return
				}
			}
		},
	}

	listCmd = ishell.Cmd{
		Name:    "list",
		Aliases: []string{"l"},
		Help:    "show bound keys",
		Func: func(c *ishell.Context) {
			k := keypadFrom(c)
			names := k.Names()
			if len(names) == 0 {
				c.Println("No keys bound")
				return
			}
			for _, name := range names {
				c.Println(k.Describe(name))
			}
		},
	}
)

func main() {
	flag.Parse()
	defer glog.Flush()

	broker, err := relay.NewPahoBroker(*brokerURL, relay.ClientID("irproxy-send"))
	if err != nil {
		glog.Fatalf("broker: %v", err)
	}
	if err := broker.Connect(); err != nil {
		glog.Fatalf("connect %s: %v", *brokerURL, err)
	}
	defer broker.Disconnect()

	k := keypad.New(broker, *topic)
	if *keys != "" {
		for _, binding := range strings.Split(*keys, ",") {
			name, path, ok := strings.Cut(binding, "=")
			if !ok {
				glog.Fatalf("bad key binding %q", binding)
			}
			if _, err := k.Bind(strings.TrimSpace(name), strings.TrimSpace(path)); err != nil {
				glog.Fatal(err)
			}
		}
	}

	if flag.NArg() > 0 {
		for _, path := range flag.Args() {
			if _, err := k.Bind(path, path); err != nil {
				glog.Fatal(err)
			}
			if err := k.Press(path); err != nil {
				glog.Fatal(err)
			}
		}
		return
	}

	shell := ishell.New()
	shell.Set(keypadKey, k)
	shell.SetPrompt("irproxy > ")
	shell.AddCmd(&keyCmd)
	shell.AddCmd(&sendCmd)
	shell.AddCmd(&listCmd)
	shell.Printf("Publishing to %s on %s\n", *topic, *brokerURL)
	shell.Run()
}
