package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/gadget-bot/amedos/conf"
	"github.com/gadget-bot/amedos/dispatch"
	"github.com/gadget-bot/amedos/plugins/amedos"
	"github.com/gadget-bot/amedos/plugins/fallback"
	"github.com/gadget-bot/amedos/radar"
	"github.com/gadget-bot/amedos/router"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

const shutdownTimeout = 10 * time.Second

type Bot struct {
	Router     router.Router
	Client     *slack.Client
	Metrics    *radar.Metrics
	Dispatcher dispatch.Dispatcher

	signingSecret string
	listenPort    string
}

func requestLog(code int, r http.Request, requestID string) {
	string_code := strconv.Itoa(code)
	log.Info().Str("method", r.Method).Str("code", string_code).Str("uri", r.URL.Path).Str("request_id", requestID).Msg("")
}

// verifySlackRequest reads the request body, verifies the Slack signing secret,
// and returns the body bytes. On failure it writes the appropriate HTTP status
// and returns a non-nil error.
func verifySlackRequest(w http.ResponseWriter, r *http.Request, signingSecret string) ([]byte, int, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return nil, http.StatusBadRequest, err
	}

	sv, err := slack.NewSecretsVerifier(r.Header, signingSecret)
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return nil, http.StatusUnauthorized, err
	}
	if _, err := sv.Write(body); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return nil, http.StatusInternalServerError, err
	}
	if err := sv.Ensure(); err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return nil, http.StatusUnauthorized, err
	}

	return body, http.StatusOK, nil
}

func stripBotMention(body string, botUuid string) string {
	return strings.TrimSpace(strings.ReplaceAll(body, "<@"+botUuid+">", ""))
}

// safeGo runs fn in its own goroutine. A panic is logged through logger
// instead of taking the process down.
func safeGo(routeName string, logger zerolog.Logger, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error().
					Interface("panic", r).
					Str("route", routeName).
					Str("stack", string(debug.Stack())).
					Msg("Plugin panicked")
			}
		}()
		fn()
	}()
}

// NewMetrics creates the process metrics registry shared by the frontend and
// the embedded worker.
func NewMetrics() (*radar.Metrics, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return radar.NewMetrics(reg)
}

// NewOperation wires the production collaborators of the fetch-and-upload
// operation.
func NewOperation(metrics *radar.Metrics) *radar.Operation {
	return radar.NewOperation(
		radar.HTTPFetcher{UserAgent: conf.Executable + "/" + conf.GitVersion},
		radar.SlackUploader{},
		radar.WebhookNotifier{},
		metrics,
	)
}

// NewDispatcher picks inline or remote delivery from cfg.
func NewDispatcher(cfg conf.Config, metrics *radar.Metrics) (dispatch.Dispatcher, error) {
	if cfg.Inline {
		return dispatch.NewInline(NewOperation(metrics), metrics), nil
	}

	opt, err := dispatch.RedisConnOpt(cfg.RedisURL, cfg.RedisTLSInsecure)
	if err != nil {
		return nil, err
	}
	return dispatch.NewRemote(opt, dispatch.TaskName(cfg.Service, cfg.Stage), cfg.Queue, metrics), nil
}

// Setup builds the bot from cfg. metrics may be nil, in which case a fresh
// registry is created.
func Setup(cfg conf.Config, metrics *radar.Metrics) (*Bot, error) {
	if err := cfg.ValidateServer(); err != nil {
		return nil, err
	}

	if metrics == nil {
		var err error
		metrics, err = NewMetrics()
		if err != nil {
			return nil, err
		}
	}

	dispatcher, err := NewDispatcher(cfg, metrics)
	if err != nil {
		return nil, err
	}

	bot := &Bot{
		Router:        *router.NewRouter(),
		Client:        slack.New(cfg.SlackBotToken),
		Metrics:       metrics,
		Dispatcher:    dispatcher,
		signingSecret: cfg.SlackSigningSecret,
		listenPort:    cfg.ListenPort,
	}

	handler := amedos.NewHandler(radar.ImageURLOptions{
		Endpoint: cfg.MapEndpoint,
		AppID:    cfg.MapClientID,
		Mode:     cfg.MapMode,
	}, dispatcher)

	bot.Router.DefaultMentionRoute = *fallback.GetMentionRoute(cfg.SlashCommandName)
	bot.Router.AddMentionRoutes(amedos.GetMentionRoutes())
	bot.Router.AddSlashCommandRoute(*amedos.GetSlashCommandRoute(cfg.SlashCommandName, cfg.SlackBotToken, handler))

	log.Debug().Str("mode", dispatcher.Mode()).Strs("routes", routeNames(bot.Router)).Msg("Bot configured")
	return bot, nil
}

func routeNames(r router.Router) []string {
	var names []string
	for _, route := range r.RegisteredRoutes() {
		names = append(names, route.Name)
	}
	return names
}

func (bot Bot) handleEvents(w http.ResponseWriter, r *http.Request) {
	statusCode := http.StatusOK
	requestID := uuid.NewString()
	defer func() { requestLog(statusCode, *r, requestID) }()

	body, code, err := verifySlackRequest(w, r, bot.signingSecret)
	if err != nil {
		statusCode = code
		return
	}

	eventsAPIEvent, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		statusCode = http.StatusInternalServerError
		w.WriteHeader(statusCode)
		return
	}

	if eventsAPIEvent.Type == slackevents.URLVerification {
		var res *slackevents.ChallengeResponse

		err := json.Unmarshal(body, &res)
		if err != nil {
			statusCode = http.StatusInternalServerError
			w.WriteHeader(statusCode)
			return
		}
		w.Header().Set("Content-Type", "text")
		w.Write([]byte(res.Challenge))
		return
	}

	if eventsAPIEvent.Type != slackevents.CallbackEvent {
		return
	}

	innerEvent := eventsAPIEvent.InnerEvent
	botUID, err := botUIDFromBody(body)
	if err != nil {
		statusCode = http.StatusInternalServerError
		w.WriteHeader(statusCode)
		return
	}

	// Ignore everything the bot itself produces to avoid loops
	if botUID != "" && botUID == userFromInnerEvent(&innerEvent) {
		return
	}

	switch ev := innerEvent.Data.(type) {
	case *slackevents.AppMentionEvent:
		trimmedMessage := stripBotMention(ev.Text, botUID)
		route, exists := bot.Router.FindMentionRouteByMessage(trimmedMessage)
		if !exists {
			route = bot.Router.DefaultMentionRoute
		}

		logger := log.With().Str("request_id", requestID).Str("user", ev.User).Str("route", route.Name).Logger()
		logger.Debug().Msg(trimmedMessage)

		if route.Plugin == nil {
			return
		}
		safeGo(route.Name, logger, func() { route.Execute(bot.Router, *bot.Client, *ev, trimmedMessage) })
	}
}

func (bot Bot) handleCommands(w http.ResponseWriter, r *http.Request) {
	statusCode := http.StatusOK
	requestID := uuid.NewString()
	defer func() { requestLog(statusCode, *r, requestID) }()

	body, code, err := verifySlackRequest(w, r, bot.signingSecret)
	if err != nil {
		statusCode = code
		return
	}

	// Restore body so SlashCommandParse can read it via ParseForm
	r.Body = io.NopCloser(bytes.NewBuffer(body))
	cmd, err := slack.SlashCommandParse(r)
	if err != nil {
		statusCode = http.StatusBadRequest
		w.WriteHeader(statusCode)
		return
	}

	route, exists := bot.Router.FindSlashCommandRouteByCommand(cmd.Command)
	if !exists {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response_type":"ephemeral","text":"Unknown command."}`))
		return
	}

	logger := log.With().Str("request_id", requestID).Str("user", cmd.UserID).Str("route", route.Name).Logger()
	logger.Debug().Str("command", cmd.Command).Msg("Slash command")

	// The acknowledgment is written before the route runs so that slow work
	// never holds up Slack's deadline.
	if route.ImmediateResponse != "" {
		resp, _ := json.Marshal(map[string]string{
			"response_type": "ephemeral",
			"text":          route.ImmediateResponse,
		})
		w.Header().Set("Content-Type", "application/json")
		w.Write(resp)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	safeGo(route.Name, logger, func() { route.Execute(bot.Router, *bot.Client, cmd) })
}

// Handler returns an http.Handler with all routes registered.
func (bot Bot) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/slack/events", bot.handleEvents)
	mux.HandleFunc("/slack/commands", bot.handleCommands)
	mux.Handle("/metrics", promhttp.HandlerFor(bot.Metrics.Gatherer(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})
	return mux
}

func (bot Bot) addr() string {
	port := bot.listenPort
	if port == "" {
		port = "3000"
	}
	return ":" + port
}

// Run serves until ctx is done and then shuts down gracefully.
func (bot Bot) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              bot.addr(),
		Handler:           bot.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msg(fmt.Sprintf("Server listening on %s", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		bot.closeDispatcher()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	bot.closeDispatcher()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (bot Bot) closeDispatcher() {
	if c, ok := bot.Dispatcher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close dispatcher")
		}
	}
}
