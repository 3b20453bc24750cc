package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/ravipandeydu/interview-pro-sub002/internal/callerr"
	"github.com/ravipandeydu/interview-pro-sub002/internal/config"
	"github.com/ravipandeydu/interview-pro-sub002/internal/signaling"
	"github.com/ravipandeydu/interview-pro-sub002/internal/ui"
)

const requestTimeout = 15 * time.Second

var (
	roomFlags         clientFlags
	participantsFlags clientFlags
)

var roomCmd = &cobra.Command{
	Use:   "room",
	Short: "Manage interview rooms",
}

var roomNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a room code to share with participants",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(roomFlags.options())
		if err != nil {
			return err
		}

		stop := ui.RunConnectionSpinner("Creating room...")
		var created struct {
			RoomID string `json:"roomId"`
		}
		err = callService(cmd.Context(), cfg, http.MethodPost, "/rooms", &created)
		stop()
		if err != nil {
			return callerr.NewError("create room", err)
		}

		fmt.Println(ui.RoomInfo{RoomID: created.RoomID, RoomLink: cfg.GetRoomLink(created.RoomID)}.View())
		return nil
	},
}

var participantsCmd = &cobra.Command{
	Use:   "participants <room-id | room-link>",
	Short: "List who is in a room",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		roomID, err := roomFromArg(args[0])
		if err != nil {
			return err
		}
		cfg, err := LoadConfig(participantsFlags.options())
		if err != nil {
			return err
		}

		stop := ui.RunConnectionSpinner("Fetching participants...")
		var list struct {
			Participants []signaling.Participant `json:"participants"`
		}
		err = callService(cmd.Context(), cfg, http.MethodGet, "/rooms/"+roomID+"/participants", &list)
		stop()
		if err != nil {
			return callerr.NewError("list participants", err)
		}

		fmt.Println(ui.ParticipantsTable(roomID, list.Participants))
		return nil
	},
}

// callService makes an authenticated request to the coordination service
// and decodes the JSON response into out.
func callService(ctx context.Context, cfg *config.Config, method, path string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, cfg.ServerURL+path, nil)
	if err != nil {
		return err
	}
	if cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.Token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return callerr.Connection(method+" "+path, err, cfg.Domain)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return callerr.WrapError(method+" "+path, callerr.ErrUnauthorized, resp.Status)
	case resp.StatusCode >= 300:
		var body struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&body)
		return fmt.Errorf("%s %s: %s %s", method, path, resp.Status, body.Error)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func init() {
	rootCmd.AddCommand(roomCmd)
	roomCmd.AddCommand(roomNewCmd)
	rootCmd.AddCommand(participantsCmd)

	roomFlags.register(roomNewCmd)
	participantsFlags.register(participantsCmd)
}
