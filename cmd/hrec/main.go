// File: cmd/hrec/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// hrec is a small recorder built on the hioload-rec pipeline: it
// produces periods of synthesized test audio on a fixed schedule,
// pushes them through a BufferedWriter and stores entries as WAV files.
// It doubles as an end-to-end exercise of the buffering core.

package main

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/momentics/hioload-rec/api"
	"github.com/momentics/hioload-rec/sink"
	"github.com/momentics/hioload-rec/writer"
)

type fixedTimebase struct {
	rate  int
	epoch time.Time
}

func (t *fixedTimebase) SampleRate() int { return t.rate }

func (t *fixedTimebase) FrameTime(frame uint64) int64 {
	offset := time.Duration(frame) * time.Second / time.Duration(t.rate)
	return t.epoch.Add(offset).UnixMicro()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "hrec",
		Short:         "Ring-buffered real-time audio recorder",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: none)")

	record := &cobra.Command{
		Use:   "record",
		Short: "Record synthesized test audio to WAV entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile != "" {
				viper.SetConfigFile(cfgFile)
				if err := viper.ReadInConfig(); err != nil {
					return fmt.Errorf("read config: %w", err)
				}
			}
			return runRecord()
		},
	}
	fl := record.Flags()
	fl.Int("rate", 48000, "sample rate in Hz")
	fl.Int("channels", 2, "number of channels")
	fl.Int("period", 256, "frames per period")
	fl.Int("buffer-frames", 16384, "ring buffer capacity in frames")
	fl.Int("cpu", -1, "pin the writer thread to this CPU (-1: no pinning)")
	fl.Float64("freq", 440, "test tone frequency in Hz")
	fl.Duration("duration", 5*time.Second, "recording duration")
	fl.String("out", "recordings", "output directory for WAV entries")
	_ = viper.BindPFlags(fl)
	viper.SetEnvPrefix("HREC")
	viper.AutomaticEnv()

	root.AddCommand(record)
	return root
}

func runRecord() error {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger()

	rate := viper.GetInt("rate")
	channels := viper.GetInt("channels")
	period := viper.GetInt("period")
	freq := viper.GetFloat64("freq")
	duration := viper.GetDuration("duration")

	tb := &fixedTimebase{rate: rate, epoch: time.Now()}
	s, err := sink.NewWAVSink(viper.GetString("out"),
		sink.WithSampleRate(rate),
		sink.WithLogger(log))
	if err != nil {
		return err
	}
	w, err := writer.New(s,
		writer.WithBufferFrames(uint32(viper.GetInt("buffer-frames"))),
		writer.WithChannels(uint32(channels)),
		writer.WithLogger(log),
		writer.WithCPU(viper.GetInt("cpu")),
		writer.WithTimebase(tb))
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}

	nbytes := period * api.DefaultSampleBytes
	data := make([]byte, nbytes*channels)
	interval := time.Duration(period) * time.Second / time.Duration(rate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Int("rate", rate).Int("channels", channels).
		Int("period", period).Dur("duration", duration).Msg("recording")

	var frame uint64
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		<-ticker.C
		for ch := 0; ch < channels; ch++ {
			payload := data[ch*nbytes : (ch+1)*nbytes]
			for i := 0; i < period; i++ {
				phase := 2 * math.Pi * freq * float64(frame+uint64(i)) / float64(rate)
				sample := int16(0.5 * math.MaxInt16 * math.Sin(phase))
				binary.LittleEndian.PutUint16(payload[i*2:], uint16(sample))
			}
		}
		hdr := api.PeriodHeader{
			Time:      frame,
			NBytes:    uint32(nbytes),
			NChannels: uint32(channels),
		}
		if w.Push(data, hdr) == 0 {
			w.Xrun()
			log.Warn().Uint64("frame", frame).Msg("buffer full, period dropped")
		}
		w.DataReady()
		frame += uint64(period)
	}

	w.CloseEntry(frame)
	w.Stop()
	w.Join()

	for name, value := range w.Metrics().Snapshot() {
		log.Info().Uint64(name, value).Msg("metric")
	}
	return nil
}
