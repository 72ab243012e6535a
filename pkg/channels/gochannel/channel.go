// Package gochannel provides an in-process event channel for local runs and tests.
package gochannel

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// OutputBuffer is the per-subscriber buffer. Publishing never blocks on acks.
const OutputBuffer = 256

// CreateChannel creates a GoChannel-based publisher and subscriber. Action
// events never leave the process and are dropped once delivered.
func CreateChannel(logger watermill.LoggerAdapter) (*gochannel.GoChannel, *gochannel.GoChannel, error) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: OutputBuffer}, logger)

	return pubSub, pubSub, nil
}
