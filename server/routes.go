package server

import (
	"net/http"

	"github.com/softwareInkhub/auth-brmh/verification"
)

func (s *Server) initRoutes() {
	// Preflights never match the method-specific patterns below, so CORS
	// handles them through a catch-all.
	s.RegisterRouteHandler("OPTIONS /", ChainMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, s.APIMiddleware()...))

	// Credential auth
	s.RegisterRouteHandler("POST "+RouteLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))

	// OAuth flow
	s.RegisterRouteHandler("GET "+RouteOAuthInitiate, ChainMiddleware(s.OAuthInitiateHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteCallback, ChainMiddleware(s.CallbackHandler(), s.APIMiddleware()...))

	// Registration & verification
	s.RegisterRouteHandler("POST "+RouteRegister, ChainMiddleware(s.RegisterHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteRegisterComplete, ChainMiddleware(s.RegisterCompleteHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteVerifyEmail, ChainMiddleware(s.VerifyCodeHandler(verification.ChannelEmail), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteVerifyEmailResend, ChainMiddleware(s.ResendCodeHandler(verification.ChannelEmail), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteVerifyPhone, ChainMiddleware(s.VerifyCodeHandler(verification.ChannelPhone), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteVerifyPhoneResend, ChainMiddleware(s.ResendCodeHandler(verification.ChannelPhone), s.APIMiddleware()...))

	// Password reset
	s.RegisterRouteHandler("POST "+RouteForgotPassword, ChainMiddleware(s.ForgotPasswordHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteResetPassword, ChainMiddleware(s.ResetPasswordHandler(), s.APIMiddleware()...))

	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
}
