// Package amedos is the slash command that posts the current rain radar map
// for a prefecture into the invoking channel.
package amedos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gadget-bot/amedos/dispatch"
	"github.com/gadget-bot/amedos/models"
	"github.com/gadget-bot/amedos/radar"
	"github.com/gadget-bot/amedos/router"
	"github.com/rs/zerolog/log"
	"github.com/slack-go/slack"
)

const DefaultCommandName = "amedos"

// Command is the part of a slash command invocation the handler needs.
type Command struct {
	Text        string
	Token       string
	ChannelID   string
	ResponseURL string
}

type Handler struct {
	imageURL   radar.ImageURLOptions
	dispatcher dispatch.Dispatcher
	// Now is the clock used to pick the radar snapshot.
	Now func() time.Time
}

func NewHandler(imageURL radar.ImageURLOptions, dispatcher dispatch.Dispatcher) *Handler {
	return &Handler{imageURL: imageURL, dispatcher: dispatcher, Now: radar.Now}
}

// RegionKey picks the region token from the command text. Unknown tokens fall
// back to the default prefecture so the uploaded filename names what is shown.
func RegionKey(text string) (string, *models.Prefecture) {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return models.DefaultPrefectureKey, models.ResolvePrefecture(models.DefaultPrefectureKey)
	}
	if prefecture, ok := models.LookupPrefecture(fields[0]); ok {
		return fields[0], prefecture
	}
	return models.DefaultPrefectureKey, models.ResolvePrefecture(models.DefaultPrefectureKey)
}

// Payload assembles the operation payload for cmd without dispatching it.
func (h *Handler) Payload(cmd Command) radar.Payload {
	key, prefecture := RegionKey(cmd.Text)
	now := h.Now()

	return radar.Payload{
		AuthToken:           cmd.Token,
		ImageRequestURL:     radar.BuildImageURL(h.imageURL, prefecture.Latitude(), prefecture.Longitude(), radar.ImageWidth, radar.ImageHeight, now),
		ResponseDestination: cmd.ResponseURL,
		ChannelID:           cmd.ChannelID,
		RegionKey:           key,
		RegionDisplayName:   prefecture.Name(),
	}
}

// Handle builds the payload for cmd and submits it. The returned payload is
// what was submitted, even when submission fails.
func (h *Handler) Handle(ctx context.Context, cmd Command) (radar.Payload, error) {
	payload := h.Payload(cmd)
	if err := payload.Validate(); err != nil {
		return payload, err
	}

	if err := h.dispatcher.Submit(ctx, payload); err != nil {
		return payload, fmt.Errorf("dispatch %s: %w", payload.RegionKey, err)
	}
	return payload, nil
}

// GetSlashCommandRoute registers handler under /<commandName>.
func GetSlashCommandRoute(commandName, botToken string, handler *Handler) *router.SlashCommandRoute {
	if commandName == "" {
		commandName = DefaultCommandName
	}

	var pluginRoute router.SlashCommandRoute
	pluginRoute.Name = "amedos.radar"
	pluginRoute.Command = router.NormalizeCommand(commandName)
	pluginRoute.Description = "Posts the current rain radar map for a prefecture"
	pluginRoute.Help = pluginRoute.Command + " [prefecture]"
	pluginRoute.Plugin = func(router router.Router, route router.Route, api slack.Client, cmd slack.SlashCommand) {
		payload, err := handler.Handle(context.Background(), Command{
			Text:        cmd.Text,
			Token:       botToken,
			ChannelID:   cmd.ChannelID,
			ResponseURL: cmd.ResponseURL,
		})
		if err != nil {
			log.Error().Err(err).Str("plugin", route.Name).Str("user", cmd.UserID).Object("payload", payload).Msg("Failed to dispatch radar operation")
			return
		}
		log.Debug().Str("plugin", route.Name).Str("mode", handler.dispatcher.Mode()).Object("payload", payload).Msg("Dispatched radar operation")
	}
	return &pluginRoute
}
