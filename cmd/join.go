package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ravipandeydu/interview-pro-sub002/internal/callerr"
	"github.com/ravipandeydu/interview-pro-sub002/internal/logging"
	"github.com/ravipandeydu/interview-pro-sub002/internal/media"
	"github.com/ravipandeydu/interview-pro-sub002/internal/rtc"
	"github.com/ravipandeydu/interview-pro-sub002/internal/session"
	"github.com/ravipandeydu/interview-pro-sub002/internal/signaling"
	"github.com/ravipandeydu/interview-pro-sub002/internal/ui"
)

var (
	joinFlags      clientFlags
	flagCamera     string
	flagMicrophone string
	flagScreen     string
	flagNoVideo    bool
	flagNoAudio    bool
)

var joinCmd = &cobra.Command{
	Use:     "join <room-id | room-link>",
	Aliases: []string{"j"},
	Short:   "Join an interview room",
	Long: `Join an interview room and start the call.

Camera and screen are played from IVF files (VP8, VP9 or AV1) and the
microphone from an Ogg/Opus file.

Keys during the call:
  m  mute or unmute the microphone
  v  turn the camera off or on
  s  start or stop screen sharing
  r  reconnect
  q  leave

Examples:
  interviewpro join otter-maple-cobalt-brave --camera cam.ivf --mic mic.ogg
  interviewpro join https://meet.interviewpro.dev/r/otter-maple-cobalt-brave --no-video`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		roomID, err := roomFromArg(args[0])
		if err != nil {
			return err
		}
		return joinRoom(cmd, roomID)
	},
}

func joinRoom(cmd *cobra.Command, roomID string) error {
	if flagNoVideo && flagNoAudio {
		return fmt.Errorf("--no-video and --no-audio cannot be combined")
	}

	opts := joinFlags.options()
	opts.Camera = flagCamera
	opts.Microphone = flagMicrophone
	opts.Screen = flagScreen
	cfg, err := LoadConfig(opts)
	if err != nil {
		return err
	}

	if _, err := media.ValidateSources(map[media.Source]string{
		media.SourceCamera:     cfg.Camera,
		media.SourceMicrophone: cfg.Microphone,
		media.SourceScreen:     cfg.Screen,
	}); err != nil {
		return err
	}

	factory, err := rtc.NewPionFactory(cfg, logging.Component("rtc"))
	if err != nil {
		return callerr.NewError("set up WebRTC", err)
	}

	// The session and media packages tag their own component.
	notices := make(session.ChanNotifier, 32)
	call := session.New(session.Options{
		Dialer:  signaling.NewDialer(cfg.WebSocketURL),
		Factory: factory,
		Devices: media.NewFileDevices(cfg.Camera, cfg.Microphone, cfg.Screen, slog.Default()),
		Token:   cfg.Token,
		Media: media.Constraints{
			Video: !flagNoVideo,
			Audio: !flagNoAudio,
		},
		Notifier: notices,
		Logger:   slog.Default(),
	})
	defer call.Close()

	ctx := cmd.Context()

	// Connect reports failures as notices too; the call view shows them and
	// offers reconnect.
	go call.Connect(ctx, roomID)

	if err := ui.RunCall(ctx, call, notices, cfg.GetRoomLink(roomID)); err != nil {
		return err
	}
	return call.Disconnect()
}

func init() {
	rootCmd.AddCommand(joinCmd)

	joinFlags.register(joinCmd)
	joinFlags.registerICE(joinCmd)
	joinCmd.Flags().StringVar(&flagCamera, "camera", "", "IVF file played as the camera")
	joinCmd.Flags().StringVar(&flagMicrophone, "mic", "", "Ogg/Opus file played as the microphone")
	joinCmd.Flags().StringVar(&flagScreen, "screen", "", "IVF file played as the shared screen")
	joinCmd.Flags().BoolVar(&flagNoVideo, "no-video", false, "Join without a camera")
	joinCmd.Flags().BoolVar(&flagNoAudio, "no-audio", false, "Join without a microphone")
}
