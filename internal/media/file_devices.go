package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	pion "github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/ivfreader"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"
	"github.com/ravipandeydu/interview-pro-sub002/internal/callerr"
)

const (
	oggPageDuration   = 20 * time.Millisecond
	opusClockRate     = 48000
	defaultFrameDelay = 33 * time.Millisecond
)

// FileDevices plays IVF files as camera and screen and an Ogg/Opus file as
// microphone. Camera and microphone loop forever; the screen ends at end of
// file like a capture the user stopped.
type FileDevices struct {
	Camera     string
	Microphone string
	Screen     string
	Logger     *slog.Logger
}

func NewFileDevices(camera, microphone, screen string, logger *slog.Logger) *FileDevices {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileDevices{
		Camera:     camera,
		Microphone: microphone,
		Screen:     screen,
		Logger:     logger.With("component", "media"),
	}
}

func (d *FileDevices) UserMedia(ctx context.Context, c Constraints) (*Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, callerr.MediaAccess("user media", err, "cancelled")
	}

	stream := &Stream{ID: uuid.NewString()}

	if c.Audio {
		track, err := d.openAudio(stream.ID)
		if err != nil {
			return nil, err
		}
		stream.Audio = track
	}

	if c.Video {
		track, err := d.openVideo("camera", d.Camera, SourceCamera, stream.ID, true)
		if err != nil {
			stream.Stop()
			return nil, err
		}
		stream.Video = track
	}

	return stream, nil
}

func (d *FileDevices) DisplayMedia(ctx context.Context) (*Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, callerr.MediaAccess("display media", err, "cancelled")
	}
	return d.openVideo("display media", d.Screen, SourceScreen, uuid.NewString(), false)
}

func (d *FileDevices) openVideo(op, path string, source Source, streamID string, loop bool) (*Track, error) {
	file, err := openSource(op, path)
	if err != nil {
		return nil, err
	}

	reader, header, err := ivfreader.NewWith(file)
	if err != nil {
		file.Close()
		return nil, callerr.MediaAccess(op, err, "unreadable")
	}

	codec, err := videoCodec(header.FourCC)
	if err != nil {
		file.Close()
		return nil, callerr.MediaAccess(op, err, "unsupported codec")
	}

	track, err := NewTrack(KindVideo, source, codec, streamID)
	if err != nil {
		file.Close()
		return nil, callerr.MediaAccess(op, err, "")
	}

	delay := defaultFrameDelay
	if header.TimebaseDenominator > 0 && header.TimebaseNumerator > 0 {
		delay = time.Duration(float64(header.TimebaseNumerator) / float64(header.TimebaseDenominator) * float64(time.Second))
	}

	d.Logger.Debug("video source opened", "source", source, "path", path, "codec", header.FourCC, "frame", delay)
	go d.pumpVideo(track, file, reader, delay, loop)
	return track, nil
}

func (d *FileDevices) pumpVideo(track *Track, file *os.File, reader *ivfreader.IVFReader, delay time.Duration, loop bool) {
	defer file.Close()

	ticker := time.NewTicker(delay)
	defer ticker.Stop()

	for {
		select {
		case <-track.Done():
			return
		case <-ticker.C:
		}

		frame, _, err := reader.ParseNextFrame()
		if errors.Is(err, io.EOF) {
			if !loop {
				track.End()
				return
			}
			if reader, err = rewindIVF(file); err != nil {
				d.Logger.Warn("video source rewind failed", "source", track.Source(), "err", err)
				track.End()
				return
			}
			continue
		}
		if err != nil {
			d.Logger.Warn("video source read failed", "source", track.Source(), "err", err)
			track.End()
			return
		}

		if err := track.WriteSample(pionmedia.Sample{Data: frame, Duration: delay}); err != nil {
			d.Logger.Debug("write video sample", "err", err)
		}
	}
}

func (d *FileDevices) openAudio(streamID string) (*Track, error) {
	const op = "microphone"

	file, err := openSource(op, d.Microphone)
	if err != nil {
		return nil, err
	}

	reader, _, err := oggreader.NewWith(file)
	if err != nil {
		file.Close()
		return nil, callerr.MediaAccess(op, err, "unreadable")
	}

	codec := pion.RTPCodecCapability{MimeType: pion.MimeTypeOpus, ClockRate: opusClockRate, Channels: 2}
	track, err := NewTrack(KindAudio, SourceMicrophone, codec, streamID)
	if err != nil {
		file.Close()
		return nil, callerr.MediaAccess(op, err, "")
	}

	go d.pumpAudio(track, file, reader)
	return track, nil
}

func (d *FileDevices) pumpAudio(track *Track, file *os.File, reader *oggreader.OggReader) {
	defer file.Close()

	ticker := time.NewTicker(oggPageDuration)
	defer ticker.Stop()

	var lastGranule uint64
	for {
		select {
		case <-track.Done():
			return
		case <-ticker.C:
		}

		page, header, err := reader.ParseNextPage()
		if errors.Is(err, io.EOF) {
			if reader, err = rewindOgg(file); err != nil {
				d.Logger.Warn("audio source rewind failed", "err", err)
				track.End()
				return
			}
			lastGranule = 0
			continue
		}
		if err != nil {
			d.Logger.Warn("audio source read failed", "err", err)
			track.End()
			return
		}

		samples := header.GranulePosition - lastGranule
		lastGranule = header.GranulePosition
		duration := time.Duration(float64(samples) / opusClockRate * float64(time.Second))

		if err := track.WriteSample(pionmedia.Sample{Data: page, Duration: duration}); err != nil {
			d.Logger.Debug("write audio sample", "err", err)
		}
	}
}

func rewindIVF(file *os.File) (*ivfreader.IVFReader, error) {
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	reader, _, err := ivfreader.NewWith(file)
	return reader, err
}

func rewindOgg(file *os.File) (*oggreader.OggReader, error) {
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	reader, _, err := oggreader.NewWith(file)
	return reader, err
}

func videoCodec(fourCC string) (pion.RTPCodecCapability, error) {
	switch fourCC {
	case "VP80":
		return pion.RTPCodecCapability{MimeType: pion.MimeTypeVP8, ClockRate: 90000}, nil
	case "VP90":
		return pion.RTPCodecCapability{MimeType: pion.MimeTypeVP9, ClockRate: 90000}, nil
	case "AV01":
		return pion.RTPCodecCapability{MimeType: pion.MimeTypeAV1, ClockRate: 90000}, nil
	}
	return pion.RTPCodecCapability{}, fmt.Errorf("fourcc %q", fourCC)
}
