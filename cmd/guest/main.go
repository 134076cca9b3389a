package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Dreamconnectxr/Headphone-Party/internal/client"
	"github.com/Dreamconnectxr/Headphone-Party/internal/types"
	"go.uber.org/zap"
)

// A terminal guest: follows the party event stream and prints the
// playback delay that would align a local stream to the host's beat.
func main() {
	var server string
	flag.StringVar(&server, "server", "http://localhost:4173", "party control server URL")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.New(server, logger)

	c.OnState = func(state types.StatePayload, offsetMs int64) {
		fields := []zap.Field{
			zap.Uint64("message_id", state.MessageID),
			zap.Int64("clock_offset_ms", offsetMs),
			zap.Bool("host_connected", state.HostConnected),
		}
		if state.BPM != nil {
			fields = append(fields, zap.Float64("bpm", *state.BPM))
		}
		if delay, ok := c.RecommendedDelay(); ok {
			fields = append(fields, zap.Float64("recommended_delay_ms", delay))
		}
		logger.Info("party state", fields...)
	}

	c.OnHost = func(connected bool) {
		logger.Info("host status changed", zap.Bool("connected", connected))
	}

	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("guest stopped", zap.Error(err))
	}
}
