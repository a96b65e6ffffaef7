// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "fmt"

// SelectChannel picks the channel to watch. A non-empty name matches a
// channel's Name or ID; otherwise a non-negative index selects by position;
// otherwise the first configured channel is used.
func (c AppConfig) SelectChannel(index int, name string) (Channel, error) {
	if len(c.Channels) == 0 {
		return Channel{}, ErrNoChannels
	}
	if name != "" {
		for _, ch := range c.Channels {
			if ch.Name == name || ch.ID == name {
				return ch, nil
			}
		}
		return Channel{}, fmt.Errorf("%w: name %q", ErrChannelNotFound, name)
	}
	if index >= 0 {
		if index >= len(c.Channels) {
			return Channel{}, fmt.Errorf("%w: index %d out of range (have %d)", ErrChannelNotFound, index, len(c.Channels))
		}
		return c.Channels[index], nil
	}
	return c.Channels[0], nil
}
