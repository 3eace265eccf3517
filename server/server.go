package server

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/softwareInkhub/auth-brmh/gateway"
	"github.com/softwareInkhub/auth-brmh/identifier"
	"github.com/softwareInkhub/auth-brmh/internal/config"
	"github.com/softwareInkhub/auth-brmh/oauthstate"
	"github.com/softwareInkhub/auth-brmh/storage"
	"github.com/softwareInkhub/auth-brmh/storage/memory"
	"github.com/softwareInkhub/auth-brmh/verification"
)

// Server hosts the identity front-end over HTTP. The two KV tiers are
// process-local, matching the single-browser-profile model the library
// was designed around; real cookies flow through a per-request jar.
type Server struct {
	env        string
	mux        *http.ServeMux
	routes     []string
	config     config.Config
	gateway    *gateway.Client
	classifier *identifier.Classifier
	durable    storage.Store
	ephemeral  storage.Store
	handshakes *oauthstate.Manager

	gateLock sync.Mutex
	gate     *verification.Gate
}

func New(cfg config.Config, gatewayClient *gateway.Client) (*Server, error) {
	if gatewayClient == nil {
		return nil, errors.New("[server.New] gateway client is required")
	}

	durable := memory.NewStore()
	handshakes, err := oauthstate.New(durable,
		oauthstate.WithURLSource(gatewayClient),
		oauthstate.WithStateLength(cfg.GetStateLength()),
		oauthstate.WithHostedUI(oauthstate.HostedUIConfig{
			AuthURL:     cfg.GetHostedUIAuthURL(),
			ClientID:    cfg.GetOAuthClientID(),
			RedirectURI: cfg.GetOAuthRedirectURI(),
			Scopes:      cfg.GetOAuthScopes(),
		}))
	if err != nil {
		return nil, errors.Wrap(err, "[server.New] creating handshake manager")
	}

	s := &Server{
		mux:        http.NewServeMux(),
		config:     cfg,
		gateway:    gatewayClient,
		classifier: identifier.New(cfg.GetDefaultCountryCode()),
		durable:    durable,
		ephemeral:  memory.NewStore(),
		handshakes: handshakes,
	}
	s.env = cfg.GetEnv()

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Info().Msgf("[%-19s] %s", displayMethod, path)
}
