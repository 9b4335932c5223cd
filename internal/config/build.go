package config

import (
	"fmt"

	"github.com/chirpotle-go/wormhole/modem"
	"github.com/chirpotle-go/wormhole/wormhole"
)

// BuiltWormhole is a constructed wormhole together with the nodes that
// back it, so callers can close every modem client on shutdown.
type BuiltWormhole struct {
	Entry    []*wormhole.Node
	Exit     []*wormhole.Node
	Wormhole *wormhole.Wormhole
}

func (c *Config) channel() modem.Channel {
	return modem.Channel{
		Frequency:       c.Channel.Frequency,
		Bandwidth:       c.Channel.Bandwidth,
		SpreadingFactor: c.Channel.SpreadingFactor,
		SyncWord:        c.Channel.SyncWord,
		CodingRate:      c.Channel.CodingRate,
		ExplicitHeader:  true,
	}
}

// Build connects to every configured modem and assembles the wormhole
// described by the strategy section. Callers must call Close on every
// returned node's Client when finished.
func (c *Config) Build() (*BuiltWormhole, error) {
	var entryNodes, exitNodes []*wormhole.Node
	for _, nc := range c.Nodes {
		client, err := modem.NewClient(nc.Name, nc.Modem)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", nc.Name, err)
		}
		n := wormhole.NewNode(nc.Name, client)
		switch nc.Role {
		case "entry":
			entryNodes = append(entryNodes, n)
		case "exit":
			exitNodes = append(exitNodes, n)
		}
	}

	var w *wormhole.Wormhole
	switch c.Strategy.Kind {
	case "passthrough":
		w = wormhole.NewWormhole(entryNodes, exitNodes)
	case "rx2":
		w = wormhole.NewRx2Wormhole(entryNodes, exitNodes, c.RX1Delay()).Wormhole
	case "downlink-delayed":
		w = wormhole.NewDownlinkDelayedWormhole(entryNodes, exitNodes, c.RX1Delay()).Wormhole
	default:
		return nil, fmt.Errorf("unknown strategy %q", c.Strategy.Kind)
	}

	ch := c.channel()
	w.SetLoRaChannel(modem.ChannelUpdate{
		Frequency:       &ch.Frequency,
		Bandwidth:       &ch.Bandwidth,
		SpreadingFactor: &ch.SpreadingFactor,
		SyncWord:        &ch.SyncWord,
		CodingRate:      &ch.CodingRate,
		ExplicitHeader:  &ch.ExplicitHeader,
	})

	return &BuiltWormhole{Entry: entryNodes, Exit: exitNodes, Wormhole: w}, nil
}
