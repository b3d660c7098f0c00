package core

import (
	"encoding/json"
	"reflect"

	"github.com/slack-go/slack/slackevents"
)

func userFromInnerEvent(event *slackevents.EventsAPIInnerEvent) string {
	v := reflect.ValueOf(event.Data)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return ""
	}
	field := v.Elem().FieldByName("User")
	if !field.IsValid() || field.Kind() != reflect.String {
		return ""
	}
	return field.String()
}

type eventAuthorizations struct {
	Authorizations []struct {
		UserID string `json:"user_id"`
	} `json:"authorizations"`
}

// botUIDFromBody returns the bot user the event was delivered for. It is read
// per request so concurrent events never share state.
func botUIDFromBody(body []byte) (string, error) {
	var auths eventAuthorizations
	if err := json.Unmarshal(body, &auths); err != nil {
		return "", err
	}
	if len(auths.Authorizations) == 0 {
		return "", nil
	}
	return auths.Authorizations[0].UserID, nil
}
