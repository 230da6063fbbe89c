package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Emits synthetic TriSonica-format telemetry lines for soak-testing the
// logger without hardware, e.g.:
//
//	windtrace-sim -rate 10 | windtrace -replay -
var (
	rate     = flag.Float64("rate", 10, "Lines per second")
	duration = flag.Duration("duration", 0, "How long to run (0 = until interrupted)")
	commas   = flag.Bool("commas", true, "Emit the comma-separated wire layout instead of bare pairs")
	noise    = flag.Float64("noise", 0.02, "Probability of emitting a corrupted line")
)

func main() {
	flag.Parse()

	if *rate <= 0 {
		log.Fatal("rate must be positive")
	}

	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-signals
		cancel()
	}()

	if *duration > 0 {
		var timeoutCancel context.CancelFunc
		ctx, timeoutCancel = context.WithTimeout(ctx, *duration)
		defer timeoutCancel()
	}

	ticker := time.NewTicker(time.Duration(float64(time.Second) / *rate))
	defer ticker.Stop()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for {
		select {
		case <-ticker.C:
			fmt.Println(generateLine(rng))

		case <-ctx.Done():
			return
		}
	}
}

// generateLine produces one plausible anemometer line: wind speed around
// 5 m/s with gusts, a slowly wandering direction, and room temperature.
func generateLine(rng *rand.Rand) string {
	if rng.Float64() < *noise {
		// Line mangled in transit; the logger must absorb these.
		return "###garbage###"
	}

	speed := 5.0 + rng.NormFloat64()*1.5
	if speed < 0 {
		speed = 0
	}
	if rng.Float64() < 0.05 { // occasional gust
		speed += rng.Float64() * 10.0
	}
	speed2 := speed * (0.9 + rng.Float64()*0.2)
	dir := float64(rng.Intn(360))
	temp := 21.0 + rng.NormFloat64()*0.8
	humidity := 45.0 + rng.NormFloat64()*3.0

	if *commas {
		return fmt.Sprintf("S %05.2f, S2 %05.2f, D %03.0f, T %05.2f, H %05.2f",
			speed, speed2, dir, temp, humidity)
	}
	return fmt.Sprintf("S %05.2f S2 %05.2f D %03.0f T %05.2f H %05.2f",
		speed, speed2, dir, temp, humidity)
}
