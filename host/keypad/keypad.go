// Package keypad maps remote key names to IR pattern files and publishes
// the encoded frames to the relay topic.
package keypad

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/golang/glog"

	"irproxy/host/patternfile"
	"irproxy/relay"
)

var ErrUnknownKey = errors.New("unknown key")

type key struct {
	path    string
	def     *patternfile.Definition
	payload string
}

// Keypad holds the loaded keys
type Keypad struct {
	broker relay.Broker
	topic  string

	mu   sync.Mutex
	keys map[string]*key
}

// New creates an empty keypad publishing to topic
func New(broker relay.Broker, topic string) *Keypad {
	if topic == "" {
		topic = relay.DefaultTopic
	}
	return &Keypad{
		broker: broker,
		topic:  topic,
		keys:   make(map[string]*key),
	}
}

// Bind loads path and binds it to name, replacing any earlier binding
func (k *Keypad) Bind(name, path string) (*patternfile.Definition, error) {
	def, err := patternfile.Load(path)
	if err != nil {
		return nil, err
	}
	payload, err := def.Payload()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	k.mu.Lock()
	k.keys[name] = &key{path: path, def: def, payload: payload}
	k.mu.Unlock()
	glog.V(1).Infof("key %s -> %s (%d pulses)", name, path, len(def.Pattern.Pulses))
	return def, nil
}

// Payload returns the hex payload bound to name
func (k *Keypad) Payload(name string) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	key, ok := k.keys[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, name)
	}
	return key.payload, nil
}

// Press publishes the frame bound to name
func (k *Keypad) Press(name string) error {
	payload, err := k.Payload(name)
	if err != nil {
		return err
	}
	if err := k.broker.Publish(k.topic, []byte(payload)); err != nil {
		return fmt.Errorf("publish %s: %w", name, err)
	}
	glog.Infof("sent %s: %s", name, payload)
	return nil
}

// Names returns the bound key names in order
func (k *Keypad) Names() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	names := make([]string, 0, len(k.keys))
	for name := range k.keys {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns a one-line summary of a key
func (k *Keypad) Describe(name string) string {
	k.mu.Lock()
	defer k.mu.Unlock()
	key, ok := k.keys[name]
	if !ok {
		return name + ": unbound"
	}
	return fmt.Sprintf("%s: %s %q from %s, %d pulses", name,
		key.def.Source, key.def.ID, key.path, len(key.def.Pattern.Pulses))
}
