// rfm95 talks to an RFM95/SX1276 LoRa radio on a host SPI port.
//
// Usage:
//
//	rfm95 [flags] info
//	rfm95 [flags] tx <payload>
//	rfm95 [flags] rx
//	rfm95 [flags] dump
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/NV4RE/rfm95"
	"periph.io/x/conn/v3/driver/driverreg"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

var (
	spiDev      = flag.String("spi", "", "SPI port name, empty for the first one")
	resetPin    = flag.String("reset", "GPIO25", "reset GPIO name, empty if not wired")
	freq        = flag.Uint("freq", uint(rfm95.Freq868_1M), "carrier frequency in Hz")
	sf          = flag.Uint("sf", 7, "spreading factor (6-12)")
	bw          = flag.Uint("bw", 125000, "bandwidth in Hz")
	cr          = flag.Uint("cr", 5, "coding rate denominator (5-8)")
	syncWord    = flag.Uint("sync", 0x12, "sync word")
	preamble    = flag.Uint("preamble", 8, "preamble length in symbols")
	crc         = flag.Bool("crc", true, "enable payload CRC")
	implicit    = flag.Bool("implicit", false, "implicit header mode")
	invertIQ    = flag.Bool("invert-iq", false, "invert I and Q")
	hexPayload  = flag.Bool("hex", false, "tx payload is hex encoded")
	rxTimeout   = flag.Duration("timeout", 0, "rx timeout, 0 for the longest the configuration allows")
	count       = flag.Int("count", 1, "number of packets to receive, 0 for no limit")
	poll        = flag.Duration("poll", 5*time.Millisecond, "interval between completion polls")
	skipVersion = flag.Bool("skip-version", false, "accept any silicon revision")
	verbose     = flag.Bool("v", false, "log mode changes")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] info|tx <payload>|rx|dump\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	l, err := open(flag.Arg(0) == "dump")
	if err != nil {
		log.Fatal(err)
	}
	switch flag.Arg(0) {
	case "info":
		err = info(l)
	case "tx":
		err = transmit(ctx, l, flag.Arg(1))
	case "rx":
		err = receive(ctx, l)
	case "dump":
		err = dump(l)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func open(diagnostics bool) (*rfm95.Lora, error) {
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	if _, err := driverreg.Init(); err != nil {
		return nil, err
	}

	p, err := spireg.Open(*spiDev)
	if err != nil {
		return nil, err
	}
	conn, err := rfm95.Open(p)
	if err != nil {
		return nil, err
	}

	var reset gpio.PinOut
	if *resetPin != "" {
		pin := gpioreg.ByName(*resetPin)
		if pin == nil {
			return nil, fmt.Errorf("failed to find reset pin %q", *resetPin)
		}
		reset = pin
	}

	opts := &rfm95.Options{
		SkipVersionCheck: *skipVersion,
		Diagnostics:      diagnostics,
	}
	if *verbose {
		opts.Logger = log.Printf
	}
	l, err := rfm95.New(conn, reset, opts)
	if err != nil {
		return nil, err
	}
	return l, l.SetConfig(config())
}

func config() rfm95.Config {
	cfg := rfm95.DefaultConfig(rfm95.Frequency(*freq))
	cfg.SpreadingFactor = rfm95.SpreadingFactor(*sf)
	cfg.Bandwidth = rfm95.Bandwidth(*bw)
	cfg.CodingRate = rfm95.CodingRate(*cr - 4)
	cfg.SyncWord = rfm95.SyncWord(*syncWord)
	cfg.PreambleLength = rfm95.PreambleLength(*preamble)
	if !*crc {
		cfg.CrcMode = rfm95.CrcDisabled
	}
	if *implicit {
		cfg.HeaderMode = rfm95.HeaderImplicit
	}
	if *invertIQ {
		cfg.Polarity = rfm95.PolarityInverted
	}
	return cfg
}

func info(l *rfm95.Lora) error {
	v, err := l.Version()
	if err != nil {
		return err
	}
	cfg, err := l.Config()
	if err != nil {
		return err
	}
	ldo, err := l.LowDataRateOptimize()
	if err != nil {
		return err
	}
	maxTimeout, err := l.RxTimeoutMax()
	if err != nil {
		return err
	}
	fmt.Printf("version:     %#x\n", v)
	fmt.Printf("frequency:   %v\n", cfg.Frequency)
	fmt.Printf("modulation:  %v %v CR %v, LDO %v\n", cfg.SpreadingFactor, cfg.Bandwidth, cfg.CodingRate, ldo)
	fmt.Printf("packet:      %v header, %v, IQ %v, sync %#x, preamble %d\n",
		cfg.HeaderMode, cfg.CrcMode, cfg.Polarity, uint8(cfg.SyncWord), cfg.PreambleLength)
	fmt.Printf("symbol:      %v, max rx timeout %v\n", cfg.SymbolAirtime(), maxTimeout)
	return nil
}

func transmit(ctx context.Context, l *rfm95.Lora, payload string) error {
	data := []byte(payload)
	if *hexPayload {
		var err error
		if data, err = hex.DecodeString(payload); err != nil {
			return err
		}
	}
	cfg, err := l.Config()
	if err != nil {
		return err
	}
	// Give up well after the packet should have left the antenna.
	deadline := 2*rfm95.TimeOnAir(cfg, len(data)) + 100*time.Millisecond
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	if err := l.StartTx(data); err != nil {
		return err
	}
	t := time.NewTicker(*poll)
	defer t.Stop()
	for {
		n, done, err := l.CompleteTx()
		if err != nil {
			return err
		}
		if done {
			log.Printf("sent %d bytes", n)
			return l.Standby()
		}
		select {
		case <-ctx.Done():
			log.Printf("tx not done after %v, aborting", deadline)
			if err := l.Standby(); err != nil {
				return err
			}
			return ctx.Err()
		case <-t.C:
		}
	}
}

func receive(ctx context.Context, l *rfm95.Lora) error {
	timeout := *rxTimeout
	if timeout == 0 {
		var err error
		if timeout, err = l.RxTimeoutMax(); err != nil {
			return err
		}
	}
	buf := make([]byte, rfm95.MaxPktLength)
	t := time.NewTicker(*poll)
	defer t.Stop()
	for received := 0; *count == 0 || received < *count; {
		if ctx.Err() != nil {
			return l.Standby()
		}
		if err := l.StartRx(timeout); err != nil {
			return err
		}
	wait:
		for {
			m, err := l.PollMessage(buf)
			switch {
			case errors.Is(err, rfm95.ErrTimeout):
				break wait
			case errors.Is(err, rfm95.ErrInvalidMessage):
				log.Print(err)
				break wait
			case err != nil:
				return err
			case m != nil:
				fmt.Printf("%s rssi=%d snr=%d strength=%d\n", hex.EncodeToString(m.Data), m.RSSI, m.SNR, m.Strength)
				received++
				break wait
			}
			select {
			case <-ctx.Done():
				return l.Standby()
			case <-t.C:
			}
		}
	}
	return l.Standby()
}

func dump(l *rfm95.Lora) error {
	regs, err := l.DumpRegisters()
	if err != nil {
		return err
	}
	fifo, err := l.DumpFIFO()
	if err != nil {
		return err
	}
	flags, err := l.IRQFlags()
	if err != nil {
		return err
	}
	fmt.Println(regs)
	fmt.Printf("irq flags: %v\n", flags)
	fmt.Print(hex.Dump(fifo[:]))
	return nil
}
