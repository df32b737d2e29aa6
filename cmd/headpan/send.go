package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/skypro1111/headpan/internal/protocol"
)

var sendCommand = &cli.Command{
	Name:  "send",
	Usage: "Emit synthetic telemetry frames that sweep yaw and pitch",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "address", Usage: "Destination host:port; defaults to the configured telemetry address"},
		&cli.Float64Flag{Name: "rate", Usage: "Frames per second", Value: 60},
		&cli.DurationFlag{Name: "duration", Usage: "How long to send; 0 sends until interrupted", Value: 10 * time.Second},
		&cli.DurationFlag{Name: "period", Usage: "Duration of one full yaw sweep", Value: 4 * time.Second},
		&cli.Float64Flag{Name: "yaw", Usage: "Yaw sweep amplitude in degrees", Value: 45},
		&cli.Float64Flag{Name: "pitch", Usage: "Pitch sweep amplitude in degrees", Value: 15},
	},
	Action: func(c *cli.Context) error {
		sess, err := setup(c)
		if err != nil {
			return err
		}

		address := c.String("address")
		if address == "" {
			address = sess.config.Server.GetAddress()
		}

		sweep := sweepConfig{
			Period:         c.Duration("period"),
			YawAmplitude:   c.Float64("yaw"),
			PitchAmplitude: c.Float64("pitch"),
		}
		if sweep.Period <= 0 {
			return cli.Exit("Sweep period must be positive", 1)
		}

		rate := c.Float64("rate")
		if rate <= 0 {
			return cli.Exit("Frame rate must be positive", 1)
		}

		ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
		defer stop()

		if d := c.Duration("duration"); d > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}

		sent, err := sendFrames(ctx, address, time.Duration(float64(time.Second)/rate), sweep)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}

		sess.logger.Info("Synthetic telemetry sent",
			slog.String("address", address),
			slog.Int("frames", sent),
		)
		return nil
	},
}

// sweepConfig describes the synthetic head motion
type sweepConfig struct {
	Period         time.Duration
	YawAmplitude   float64
	PitchAmplitude float64
}

// At returns the orientation elapsed into the sweep. Yaw follows one sine per
// period, pitch a sine at twice that rate, roll stays level.
func (s sweepConfig) At(elapsed time.Duration) protocol.Orientation {
	phase := 2 * math.Pi * elapsed.Seconds() / s.Period.Seconds()
	return protocol.Orientation{
		Yaw:   s.YawAmplitude * math.Sin(phase),
		Pitch: s.PitchAmplitude * math.Sin(2*phase),
	}
}

// sendFrames writes one frame per interval until ctx is done and returns how many were sent
func sendFrames(ctx context.Context, address string, interval time.Duration, sweep sweepConfig) (int, error) {
	conn, err := net.Dial("udp", address)
	if err != nil {
		return 0, fmt.Errorf("failed to dial %s: %w", address, err)
	}
	defer conn.Close()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	start := time.Now()
	sent := 0
	for {
		select {
		case <-ctx.Done():
			return sent, nil
		case now := <-ticker.C:
			data := protocol.EncodeFrame(protocol.Frame{Orientation: sweep.At(now.Sub(start))})
			if _, err := conn.Write(data); err != nil {
				return sent, fmt.Errorf("failed to send frame: %w", err)
			}
			sent++
		}
	}
}
