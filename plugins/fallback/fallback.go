package fallback

import (
	"github.com/gadget-bot/amedos/plugins/helpers"
	"github.com/gadget-bot/amedos/router"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

// GetMentionRoute answers mentions no other route matched with a short usage
// note naming the slash command.
func GetMentionRoute(commandName string) *router.MentionRoute {
	var pluginRoute router.MentionRoute
	pluginRoute.Name = "fallback"
	command := router.NormalizeCommand(commandName)
	pluginRoute.Plugin = func(router router.Router, route router.Route, api slack.Client, ev slackevents.AppMentionEvent, message string) {
		helpers.AddReaction(api, ev.Channel, route.Name, "umbrella", ev.TimeStamp)
		helpers.PostMessage(api, ev.Channel, route.Name,
			slack.MsgOptionText("Hi there, <@"+ev.User+">! Try `"+command+" osaka` for the current rain radar, or mention me with `prefectures` for the list of places I know.", false),
			helpers.ThreadReplyOption(ev.ThreadTimeStamp),
		)
	}
	return &pluginRoute
}
