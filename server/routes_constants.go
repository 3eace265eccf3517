package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Auth Routes - Login & Logout
	RouteLogin    = "/auth/login"
	RouteLogout   = "/auth/logout"
	RouteCallback = "/callback"

	// Auth Routes - OAuth initiation
	RouteOAuthInitiate = "/auth/oauth/{provider}"

	// Auth Routes - Registration & Verification
	RouteRegister          = "/auth/register"
	RouteRegisterComplete  = "/auth/register/complete"
	RouteVerifyEmail       = "/auth/verify/email"
	RouteVerifyEmailResend = "/auth/verify/email/resend"
	RouteVerifyPhone       = "/auth/verify/phone"
	RouteVerifyPhoneResend = "/auth/verify/phone/resend"

	// Auth Routes - Password Management
	RouteForgotPassword = "/auth/password/forgot"
	RouteResetPassword  = "/auth/password/reset"

	// Operational
	RouteHealth = "/healthz"
)
