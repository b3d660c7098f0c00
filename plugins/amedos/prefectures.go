package amedos

import (
	"fmt"
	"strings"

	"github.com/gadget-bot/amedos/models"
	"github.com/gadget-bot/amedos/plugins/helpers"
	"github.com/gadget-bot/amedos/router"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

func GetMentionRoutes() []router.MentionRoute {
	return []router.MentionRoute{
		*listPrefectures(),
	}
}

// PrefectureListing renders one "`key` name" line per canonical prefecture.
func PrefectureListing() string {
	var b strings.Builder
	for _, key := range models.PrefectureKeys() {
		fmt.Fprintf(&b, "`%s` %s\n", key, models.ResolvePrefecture(key).Name())
	}
	return b.String()
}

func listPrefectures() *router.MentionRoute {
	var pluginRoute router.MentionRoute
	pluginRoute.Name = "amedos.listPrefectures"
	pluginRoute.Pattern = `(?i)^(prefectures|list prefectures)[?!.]*$`
	pluginRoute.Description = "Lists the prefectures the radar command understands"
	pluginRoute.Help = "prefectures"
	pluginRoute.Plugin = func(router router.Router, route router.Route, api slack.Client, ev slackevents.AppMentionEvent, message string) {
		text := "Here are the prefectures I know, <@" + ev.User + ">:\n" + PrefectureListing()
		helpers.PostMessage(api, ev.Channel, route.Name,
			slack.MsgOptionText(text, false),
			helpers.ThreadReplyOption(ev.ThreadTimeStamp),
		)
	}
	return &pluginRoute
}
