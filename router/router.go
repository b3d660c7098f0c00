package router

import (
	"regexp"
	"sort"
	"strings"
)

//Route The primary type used by event specific routes
type Route struct {
	Name        string
	Pattern     string
	Description string
	Help        string
	Priority    int
}

//Router the HTTP router which handles Events and slash commands from Slack
type Router struct {
	MentionRoutes       map[string]MentionRoute
	SlashCommandRoutes  map[string]SlashCommandRoute
	DefaultMentionRoute MentionRoute
}

// NewRouter returns a new Router
func NewRouter() *Router {
	var newRouter Router
	newRouter.MentionRoutes = make(map[string]MentionRoute)
	newRouter.SlashCommandRoutes = make(map[string]SlashCommandRoute)
	return &newRouter
}

// FindMentionRouteByName Returns the named mention route
func (router Router) FindMentionRouteByName(name string) (MentionRoute, bool) {
	route, exists := router.MentionRoutes[name]
	return route, exists
}

// FindMentionRouteByMessage Returns the route to execute based on the first matched Route.Pattern.
func (router Router) FindMentionRouteByMessage(message string) (MentionRoute, bool) {
	var matchingRoute MentionRoute
	foundRoute := false
	sortedRoutes := make([]MentionRoute, 0, len(router.MentionRoutes))

	// Just need the Routes themselves for sorting
	for _, value := range router.MentionRoutes {
		sortedRoutes = append(sortedRoutes, value)
	}
	sort.Sort(mentionRoutesSortedByPriority(sortedRoutes))

	for _, route := range sortedRoutes {
		re := regexp.MustCompile(route.Pattern)
		if re.MatchString(message) {
			matchingRoute = route
			foundRoute = true
			break
		}
	}
	return matchingRoute, foundRoute
}

// FindSlashCommandRouteByCommand returns the route registered for `command`.
// The leading slash is optional on both sides.
func (router Router) FindSlashCommandRouteByCommand(command string) (SlashCommandRoute, bool) {
	route, exists := router.SlashCommandRoutes[NormalizeCommand(command)]
	return route, exists
}

// AddMentionRoute sets upserts and element into `MentionRoutes` whose key is the provided `Name` field
func (router Router) AddMentionRoute(route MentionRoute) {
	router.MentionRoutes[route.Name] = route
}

// AddMentionRoutes calls `AddMentionRoute()` for each element in `routes`
func (router Router) AddMentionRoutes(routes []MentionRoute) {
	for _, route := range routes {
		router.AddMentionRoute(route)
	}
}

// AddSlashCommandRoute upserts `route` keyed by its normalized Command
func (router Router) AddSlashCommandRoute(route SlashCommandRoute) {
	route.Command = NormalizeCommand(route.Command)
	router.SlashCommandRoutes[route.Command] = route
}

const (
	RouteTypeMention      = "mention"
	RouteTypeSlashCommand = "slash_command"
)

// RouteInfo describes a registered route for help and introspection
type RouteInfo struct {
	Route
	Type    string
	Command string
}

// RegisteredRoutes returns every registered route, highest priority first and
// then by name. The default mention route is not included.
func (router Router) RegisteredRoutes() []RouteInfo {
	routes := make([]RouteInfo, 0, len(router.MentionRoutes)+len(router.SlashCommandRoutes))
	for _, route := range router.MentionRoutes {
		routes = append(routes, RouteInfo{Route: route.Route, Type: RouteTypeMention})
	}
	for _, route := range router.SlashCommandRoutes {
		routes = append(routes, RouteInfo{Route: route.Route, Type: RouteTypeSlashCommand, Command: route.Command})
	}

	sort.SliceStable(routes, func(i, j int) bool {
		if routes[i].Priority != routes[j].Priority {
			return routes[i].Priority > routes[j].Priority
		}
		return routes[i].Name < routes[j].Name
	})
	return routes
}

// NormalizeCommand returns `command` with exactly one leading slash
func NormalizeCommand(command string) string {
	return "/" + strings.TrimLeft(strings.TrimSpace(command), "/")
}
