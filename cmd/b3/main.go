// Command b3 decodes an audio file, plays it to a sound device, and drives
// GPIO-actuated body/mouth motors in sync with the signal.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/codeandkey/b3/internal/actuator"
	"github.com/codeandkey/b3/internal/config"
	"github.com/codeandkey/b3/internal/decode"
	"github.com/codeandkey/b3/internal/pipeline"
	"github.com/codeandkey/b3/internal/queue"
	"github.com/codeandkey/b3/internal/sound"
)

var (
	verbose  = pflag.BoolP("verbose", "v", false, "enable debug logging")
	file     = pflag.StringP("file", "f", "", "audio file to play, resolved against --audio-dir")
	lpfHz    = pflag.Float64("lpf", config.DefaultLPFCutoff, "low-pass filter cutoff, Hz")
	hpfHz    = pflag.Float64("hpf", config.DefaultHPFCutoff, "high-pass filter cutoff, Hz")
	seekUs   = pflag.Int64("seek", 0, "seek offset, microseconds")
	body     = pflag.Int("body", config.DefaultBodyThreshold, "body actuation RMS threshold")
	mouth    = pflag.Int("mouth", config.DefaultMouthThreshold, "mouth actuation RMS threshold")
	confPath = pflag.String("config", defaultConfigPath(), "live config file path")
	pinPath  = pflag.String("pinmap", "", "GPIO pin map YAML file (defaults built in if unset)")
	audioDir = pflag.String("audio-dir", ".", "base directory -f is resolved against")
)

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "b3.ini"
	}
	return filepath.Join(home, ".config", "b3.ini")
}

func usage() {
	fmt.Fprintln(os.Stderr, "b3 - audio-driven animatronic actuator controller")
	fmt.Fprintln(os.Stderr, "usage: b3 -f FILE [flags]")
	pflag.PrintDefaults()
}

func main() {
	pflag.Usage = usage
	pflag.Parse()

	logger := log.New(os.Stderr)
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}

	if *file == "" {
		logger.Error("no file specified, use -f")
		os.Exit(-1)
	}

	cfg := config.New(logger)
	if err := cfg.Init(*confPath); err != nil {
		logger.Error("failed to load config", "err", err)
	}
	cfg.LPFCutoff = *lpfHz
	cfg.HPFCutoff = *hpfHz
	cfg.BodyThreshold = *body
	cfg.MouthThreshold = *mouth
	cfg.SeekTimeUs = *seekUs

	pinMap := config.DefaultPinMap()
	if *pinPath != "" {
		loaded, err := config.LoadPinMap(*pinPath)
		if err != nil {
			logger.Error("failed to load pin map", "err", err)
			os.Exit(-1)
		}
		pinMap = loaded
	}

	path := filepath.Join(*audioDir, *file)
	dec, err := decode.Open(path, cfg.SeekTimeUs)
	if err != nil {
		logger.Error("failed to open audio file", "path", path, "err", err)
		os.Exit(-1)
	}

	frameQueue := queue.New()

	var snd interface {
		UpdateChannelData(sampleRate float64, channels, framesPerPeriod int) (int, error)
		Write(pcm []int16) error
		Close() error
	}

	dev, err := sound.Open(float64(dec.SampleRate()), dec.Channels(), int(cfg.ChunkSizeMs*float64(dec.SampleRate())/1000))
	if err != nil {
		logger.Warn("failed to open sound device, falling back to null sink", "err", err)
		snd = sound.NewNullDevice(logger)
	} else {
		snd = dev
	}

	pl := pipeline.New(cfg, frameQueue, logger)
	if err := pl.Load(dec, snd); err != nil {
		logger.Error("failed to load pipeline", "err", err)
		os.Exit(-1)
	}

	act := actuator.New(frameQueue, cfg, pinMap, dec.SampleRate(), logger)
	act.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT)
	shouldExit := make(chan struct{})
	go func() {
		<-sigCh
		logger.Info("SIGINT received, shutting down")
		close(shouldExit)
	}()

	logger.Info("starting playback", "file", path)

	target := pipeline.Playing
	for {
		select {
		case <-shouldExit:
			target = pipeline.Stopped
		default:
		}

		cfg.Poll()
		pl.Tick(target)

		if pl.State() == pipeline.Stopped {
			break
		}

		time.Sleep(time.Millisecond)
	}

	act.Stop()
	logger.Info("shutdown complete")
}
