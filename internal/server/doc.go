// Package server provides HTTP routing, middleware and OAuth callback handling for the CLI.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] added first runs outermost. [BasicRouter] registers method patterns such as
// "GET /callback" on an [http.ServeMux], which answers other methods with 405.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback. It validates the state parameter,
// exchanges the authorization code for tokens and sends the result through a channel.
// It only processes one callback.
//
// [AwaitToken] serves the handler on a listener until the callback arrives, the context ends or the
// timeout passes, and then shuts the server down. `spindle auth` uses it with the redirect URI's host.
package server
